package scheduler

import (
	"context"
	"fmt"
	"time"

	leadrepo "nurture_backend/internal/leads/repository"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const followUpBatchSize = 100

// ReplySender runs the outbound side of the messaging pipeline.
type ReplySender interface {
	SendAIReply(ctx context.Context, leadID, messageID uuid.UUID) error
	SendFollowUp(ctx context.Context, leadID uuid.UUID) error
}

// CallRepairer force-fails calls stuck in-flight past the threshold.
type CallRepairer interface {
	RepairStuck(ctx context.Context, leadID *uuid.UUID) (int, error)
}

// FollowUpSource lists leads whose next scheduled contact has passed.
type FollowUpSource interface {
	ListFollowUpDue(ctx context.Context, now time.Time, limit int) ([]leadrepo.Lead, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	replies ReplySender
	calls   CallRepairer
	leads   FollowUpSource
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, replies ReplySender, calls CallRepairer, leads FollowUpSource, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		replies: replies,
		calls:   calls,
		leads:   leads,
		log:     log,
	}

	mux.HandleFunc(TaskAIReply, w.handleAIReply)
	mux.HandleFunc(TaskFollowUpSweep, w.handleFollowUpSweep)
	mux.HandleFunc(TaskStuckCallRepair, w.handleStuckCallRepair)

	return w, nil
}

func (w *Worker) handleAIReply(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAIReplyPayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	messageID, err := uuid.Parse(payload.MessageID)
	if err != nil {
		return err
	}

	return w.replies.SendAIReply(ctx, leadID, messageID)
}

func (w *Worker) handleFollowUpSweep(ctx context.Context, _ *asynq.Task) error {
	due, err := w.leads.ListFollowUpDue(ctx, time.Now(), followUpBatchSize)
	if err != nil {
		return err
	}

	for _, lead := range due {
		if err := w.replies.SendFollowUp(ctx, lead.ID); err != nil {
			w.log.Error("follow-up send failed", "error", err, "leadId", lead.ID)
		}
	}
	return nil
}

func (w *Worker) handleStuckCallRepair(ctx context.Context, _ *asynq.Task) error {
	repaired, err := w.calls.RepairStuck(ctx, nil)
	if err != nil {
		return err
	}
	if repaired > 0 {
		w.log.Info("repaired stuck calls", "count", repaired)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
