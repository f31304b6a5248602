// Package scheduler wraps asynq for delayed AI replies and the periodic
// follow-up and stuck-call sweeps.
package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand/v2"
	"time"

	"nurture_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues delayed tasks on the API side.
type Client struct {
	client   *asynq.Client
	queue    string
	delayMin time.Duration
	delayMax time.Duration
}

func NewClient(cfg config.SchedulerConfig, engagement config.EngagementConfig) (*Client, error) {
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

	return &Client{
		client:   asynq.NewClient(opt),
		queue:    queue,
		delayMin: engagement.GetReplyDelayMin(),
		delayMax: engagement.GetReplyDelayMax(),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleAIReply enqueues an AI reply for the given inbound message, delayed
// by a random interval so replies do not land instantly after every text.
func (c *Client) ScheduleAIReply(ctx context.Context, leadID, messageID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewAIReplyTask(AIReplyPayload{
		LeadID:    leadID.String(),
		MessageID: messageID.String(),
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessIn(c.replyDelay()), asynq.Queue(c.queue))
	return err
}

func (c *Client) replyDelay() time.Duration {
	min, max := c.delayMin, c.delayMax
	if min <= 0 {
		min = 10 * time.Second
	}
	if max < min {
		max = min
	}
	if max == min {
		return min
	}
	return min + rand.N(max-min)
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
