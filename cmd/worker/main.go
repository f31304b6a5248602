package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nurture_backend/internal/calls"
	"nurture_backend/internal/events"
	"nurture_backend/internal/gateway"
	"nurture_backend/internal/leads"
	"nurture_backend/internal/messaging"
	"nurture_backend/internal/notification"
	"nurture_backend/internal/scheduler"
	"nurture_backend/platform/config"
	"nurture_backend/platform/db"
	"nurture_backend/platform/keyedlock"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	locks := keyedlock.New()

	gatewayClient := gateway.NewClient(cfg, log)
	if gatewayClient == nil {
		log.Warn("GATEWAY_URL not configured; outbound delivery disabled")
	}

	// Worker-side module wiring; no HTTP routes are mounted here. In-app
	// notifications still need the subscriber so worker-sent replies land
	// in the operator inbox.
	leadsModule := leads.NewModule(pool, eventBus, locks, val, log)
	messagingModule := messaging.NewModule(messaging.Config{
		Pool:      pool,
		Leads:     leadsModule.Repository(),
		Matcher:   leadsModule.Matcher(),
		Scheduler: leadsModule.Scheduling(),
		Sender:    gatewayClient,
		EventBus:  eventBus,
		Locks:     locks,
		AIConfig:  cfg,
		Cfg:       cfg,
		Validator: val,
		Logger:    log,
	})
	callsModule := calls.NewModule(calls.Config{
		Pool:     pool,
		Leads:    leadsModule.Repository(),
		Matcher:  leadsModule.Matcher(),
		Caller:   gatewayClient,
		EventBus: eventBus,
		Locks:    locks,
		Gateway:  cfg,
		Cfg:      cfg,
		Logger:   log,
	})
	notificationModule := notification.NewModule(pool, eventBus, log)
	defer notificationModule.Close()

	sweeper, err := scheduler.NewSweeper(cfg, log)
	if err != nil {
		log.Error("failed to initialize sweeper", "error", err)
		panic("failed to initialize sweeper: " + err.Error())
	}
	defer func() { _ = sweeper.Close() }()
	go sweeper.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, messagingModule.Service(), callsModule.Service(), leadsModule.Repository(), log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
