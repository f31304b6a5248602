package scheduler

import (
	"context"
	"fmt"
	"time"

	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const sweepInterval = time.Minute

// Sweeper periodically enqueues the follow-up and stuck-call sweep tasks.
// It runs alongside the worker so sweeps go through the same queue and
// retry machinery as everything else.
type Sweeper struct {
	client *asynq.Client
	queue  string
	log    *logger.Logger
}

func NewSweeper(cfg config.SchedulerConfig, log *logger.Logger) (*Sweeper, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Sweeper{
		client: asynq.NewClient(opt),
		queue:  queue,
		log:    log,
	}, nil
}

func (s *Sweeper) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Sweeper) Run(ctx context.Context) {
	if s == nil || s.client == nil {
		return
	}

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.enqueue(ctx, NewFollowUpSweepTask())
		s.enqueue(ctx, NewStuckCallRepairTask())
	}
}

func (s *Sweeper) enqueue(ctx context.Context, task *asynq.Task) {
	// At most one sweep of each kind in flight per interval.
	_, err := s.client.EnqueueContext(ctx, task,
		asynq.Queue(s.queue),
		asynq.Unique(sweepInterval))
	if err != nil && err != asynq.ErrDuplicateTask {
		s.log.Warn("sweep enqueue failed", "task", task.Type(), "error", err)
	}
}
