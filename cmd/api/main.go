package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nurture_backend/internal/auth"
	"nurture_backend/internal/calls"
	callsvc "nurture_backend/internal/calls/service"
	"nurture_backend/internal/events"
	"nurture_backend/internal/gateway"
	apphttp "nurture_backend/internal/http"
	"nurture_backend/internal/http/router"
	"nurture_backend/internal/leads"
	"nurture_backend/internal/messaging"
	msgsvc "nurture_backend/internal/messaging/service"
	"nurture_backend/internal/notification"
	"nurture_backend/internal/scheduler"
	"nurture_backend/internal/storage"
	"nurture_backend/internal/webhook"
	"nurture_backend/migrations"
	"nurture_backend/platform/config"
	"nurture_backend/platform/db"
	"nurture_backend/platform/keyedlock"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting api", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// One lock set shared by every pipeline that serializes per lead or call.
	locks := keyedlock.New()

	gatewayClient := gateway.NewClient(cfg, log)
	if gatewayClient == nil {
		log.Warn("GATEWAY_URL not configured; outbound delivery disabled")
	}

	archive, err := storage.NewRecordingArchive(cfg, log)
	if err != nil {
		log.Error("failed to initialize recording archive", "error", err)
		panic("failed to initialize recording archive: " + err.Error())
	}
	if archive != nil {
		if err := withRetry(ctx, log, "recording bucket", 5, 2*time.Second, func() error {
			return archive.EnsureBucketExists(ctx)
		}); err != nil {
			log.Error("failed to ensure recording bucket", "error", err)
			panic("failed to ensure recording bucket: " + err.Error())
		}
	} else {
		log.Warn("MINIO_ENDPOINT not configured; recording archival disabled")
	}

	replyScheduler, closeScheduler := initReplyScheduler(cfg, cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// Domain modules.
	authModule := auth.NewModule(pool, cfg, val)
	leadsModule := leads.NewModule(pool, eventBus, locks, val, log)

	// A disabled gateway is a typed-nil client; its methods fail with a
	// delivery error instead of panicking, so it wires in as-is.
	messagingModule := messaging.NewModule(messaging.Config{
		Pool:      pool,
		Leads:     leadsModule.Repository(),
		Matcher:   leadsModule.Matcher(),
		Scheduler: leadsModule.Scheduling(),
		Sender:    gatewayClient,
		Replies:   replyScheduler,
		EventBus:  eventBus,
		Locks:     locks,
		AIConfig:  cfg,
		Cfg:       cfg,
		Validator: val,
		Logger:    log,
	})

	var archiver callsvc.Archiver
	if archive != nil {
		archiver = archive
	}
	callsModule := calls.NewModule(calls.Config{
		Pool:     pool,
		Leads:    leadsModule.Repository(),
		Matcher:  leadsModule.Matcher(),
		Caller:   gatewayClient,
		Archiver: archiver,
		EventBus: eventBus,
		Locks:    locks,
		Gateway:  cfg,
		Cfg:      cfg,
		Logger:   log,
	})

	notificationModule := notification.NewModule(pool, eventBus, log)
	defer notificationModule.Close()

	webhookModule := webhook.NewModule(messagingModule.Service(), callsModule.Service(), cfg, val, log)

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			leadsModule,
			messagingModule,
			callsModule,
			notificationModule,
			webhookModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: engine}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

func initReplyScheduler(cfg config.SchedulerConfig, engagement config.EngagementConfig, log *logger.Logger) (msgsvc.ReplyScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; automated replies disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg, engagement)
	if err != nil {
		log.Error("failed to initialize reply scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
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
