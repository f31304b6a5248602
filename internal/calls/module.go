// Package calls owns the call model, the lifecycle reconciler, and call
// recordings.
package calls

import (
	"nurture_backend/internal/calls/handler"
	"nurture_backend/internal/calls/repository"
	"nurture_backend/internal/calls/service"
	"nurture_backend/internal/events"
	apphttp "nurture_backend/internal/http"
	"nurture_backend/internal/leads"
	leadrepo "nurture_backend/internal/leads/repository"
	"nurture_backend/platform/config"
	"nurture_backend/platform/keyedlock"
	"nurture_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the calls bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// Config groups the calls module's collaborators.
type Config struct {
	Pool     *pgxpool.Pool
	Leads    *leadrepo.Repository
	Matcher  *leads.Matcher
	Caller   service.Caller
	Archiver service.Archiver
	EventBus events.Bus
	Locks    *keyedlock.KeyedLock
	Gateway  config.GatewayConfig
	Cfg      config.EngagementConfig
	Logger   *logger.Logger
}

// NewModule creates and initializes the calls module.
func NewModule(c Config) *Module {
	repo := repository.New(c.Pool)

	svc := service.New(service.Params{
		Store:      repo,
		Leads:      c.Leads,
		Matcher:    c.Matcher,
		Caller:     c.Caller,
		Archiver:   c.Archiver,
		Locks:      c.Locks,
		EventBus:   c.EventBus,
		Config:     c.Cfg,
		FromNumber: c.Gateway.GetGatewayFromNumber(),
		Logger:     c.Logger,
	})

	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "calls" }

// RegisterRoutes mounts the call routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/leads/:leadId/calls")
	group.POST("", m.handler.HandlePlaceCall)
	group.GET("", m.handler.HandleList)
	group.GET("/:callId/recordings", m.handler.HandleListRecordings)
	group.POST("/repair", m.handler.HandleRepairStuck)
}

// Service exposes the reconciler for the webhook surface and the worker.
func (m *Module) Service() *service.Service { return m.service }
