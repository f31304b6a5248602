package leads

import (
	"context"

	"nurture_backend/internal/events"
	apphttp "nurture_backend/internal/http"
	"nurture_backend/internal/leads/handler"
	"nurture_backend/internal/leads/repository"
	"nurture_backend/internal/leads/scheduling"
	"nurture_backend/internal/leads/service"
	"nurture_backend/platform/keyedlock"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	service    *service.Service
	scheduling *scheduling.Service
	matcher    *Matcher
	repo       *repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
// The keyed lock is shared with the messaging pipeline so explicit operator
// updates and inbound events serialize per lead.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, locks *keyedlock.KeyedLock, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)

	svc := service.New(repo, locks, eventBus)
	schedulingSvc := scheduling.New(repo)
	matcher := NewMatcher(repo)

	// Appointment booking advances the lead; the machine itself never does.
	eventBus.Subscribe(events.AppointmentScheduled{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.AppointmentScheduled)
		if !ok {
			return nil
		}
		if err := svc.MarkAppointmentSet(ctx, e.LeadID); err != nil {
			log.Error("failed to mark appointment set", "error", err, "leadId", e.LeadID)
		}
		return nil
	}))

	return &Module{
		handler:    handler.New(svc, val),
		service:    svc,
		scheduling: schedulingSvc,
		matcher:    matcher,
		repo:       repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "leads" }

// RegisterRoutes mounts the operator-facing lead routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/leads")
	group.POST("", m.handler.HandleCreate)
	group.GET("", m.handler.HandleList)
	group.GET("/:leadId", m.handler.HandleGet)
	group.PUT("/:leadId/status", m.handler.HandleUpdateStatus)
	group.PUT("/:leadId/ai-assistant", m.handler.HandleSetAIAssistant)
	group.PUT("/:leadId/context", m.handler.HandleUpdateContext)
}

// Matcher exposes the phone matcher for the messaging pipeline.
func (m *Module) Matcher() *Matcher { return m.matcher }

// Scheduling exposes the follow-up scheduler for the messaging pipeline.
func (m *Module) Scheduling() *scheduling.Service { return m.scheduling }

// Repository exposes the lead store for collaborating modules.
func (m *Module) Repository() *repository.Repository { return m.repo }
