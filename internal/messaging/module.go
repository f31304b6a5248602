// Package messaging owns the message model, the inbound pipeline, and the
// AI reply composer.
package messaging

import (
	"nurture_backend/internal/events"
	apphttp "nurture_backend/internal/http"
	"nurture_backend/internal/leads"
	leadrepo "nurture_backend/internal/leads/repository"
	"nurture_backend/internal/leads/scheduling"
	"nurture_backend/internal/messaging/agent"
	"nurture_backend/internal/messaging/handler"
	"nurture_backend/internal/messaging/repository"
	"nurture_backend/internal/messaging/service"
	"nurture_backend/platform/config"
	"nurture_backend/platform/keyedlock"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the messaging bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// Config groups the messaging module's many collaborators.
type Config struct {
	Pool      *pgxpool.Pool
	Leads     *leadrepo.Repository
	Matcher   *leads.Matcher
	Scheduler *scheduling.Service
	Sender    service.Sender
	Replies   service.ReplyScheduler
	EventBus  events.Bus
	Locks     *keyedlock.KeyedLock
	AIConfig  config.AIConfig
	Cfg       config.EngagementConfig
	Validator *validator.Validator
	Logger    *logger.Logger
}

// NewModule creates and initializes the messaging module. The reply composer
// is only wired when an AI key is configured; without it inbound processing
// still runs and only automated replies are skipped.
func NewModule(c Config) *Module {
	repo := repository.New(c.Pool)

	var composer service.Composer
	if c.AIConfig.IsAIEnabled() {
		rc, err := agent.NewReplyComposer(c.AIConfig.GetMoonshotAPIKey())
		if err != nil {
			c.Logger.Error("failed to initialize reply composer, automated replies disabled", "error", err)
		} else {
			composer = rc
		}
	}

	svc := service.New(service.Params{
		Messages:  repo,
		Leads:     c.Leads,
		Matcher:   c.Matcher,
		Scheduler: c.Scheduler,
		Composer:  composer,
		Sender:    c.Sender,
		Replies:   c.Replies,
		Locks:     c.Locks,
		EventBus:  c.EventBus,
		Config:    c.Cfg,
		Logger:    c.Logger,
	})

	return &Module{
		handler: handler.New(svc, c.Validator),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "messaging" }

// RegisterRoutes mounts the conversation routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/leads/:leadId/messages")
	group.GET("", m.handler.HandleListConversation)
	group.POST("", m.handler.HandleSend)
}

// Service exposes the pipeline for the webhook surface and the worker.
func (m *Module) Service() *service.Service { return m.service }
