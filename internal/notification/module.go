// Package notification delivers in-app notifications and live server-sent
// events to operators. It is a pure consumer of the event bus: the lead,
// messaging and call modules never talk to it directly.
package notification

import (
	"context"

	"nurture_backend/internal/events"
	apphttp "nurture_backend/internal/http"
	"nurture_backend/internal/notification/handler"
	"nurture_backend/internal/notification/inapp"
	"nurture_backend/internal/notification/sse"
	"nurture_backend/platform/httpkit"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the notification bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	sse     *sse.Service
	log     *logger.Logger
}

// NewModule creates the notification module and wires its event subscriptions.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, log *logger.Logger) *Module {
	inappSvc := inapp.NewService(inapp.NewRepository(pool))
	sseSvc := sse.New(log)

	m := &Module{
		handler: handler.New(inappSvc),
		sse:     sseSvc,
		log:     log,
	}
	m.subscribe(eventBus, inappSvc)
	return m
}

func (m *Module) subscribe(eventBus events.Bus, inappSvc *inapp.Service) {
	eventBus.Subscribe(events.MessageReceived{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.MessageReceived)
		if !ok {
			return nil
		}
		if _, err := inappSvc.NotifyNewMessage(ctx, e.OperatorID, e.LeadID, e.LeadName, e.Body); err != nil {
			m.log.Error("failed to create message notification", "error", err, "leadId", e.LeadID)
		}
		m.sse.Publish(e.OperatorID, sse.Event{
			Type:    sse.EventNewMessage,
			LeadID:  e.LeadID,
			Message: inapp.TruncateBody(e.Body),
		})
		return nil
	}))

	eventBus.Subscribe(events.MessageSent{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.MessageSent)
		if !ok {
			return nil
		}
		// Outbound sends only stream live; they never land in the inbox.
		m.sse.Publish(e.OperatorID, sse.Event{
			Type:   sse.EventNewMessage,
			LeadID: e.LeadID,
			Data: map[string]interface{}{
				"messageId":     e.MessageID,
				"status":        e.Status,
				"isAiGenerated": e.IsAIGenerated,
			},
		})
		return nil
	}))

	eventBus.Subscribe(events.MessageStatusUpdated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.MessageStatusUpdated)
		if !ok {
			return nil
		}
		m.sse.Publish(e.OperatorID, sse.Event{
			Type:   sse.EventMessageStatusUpdate,
			LeadID: e.LeadID,
			Data: map[string]interface{}{
				"messageId": e.MessageID,
				"status":    e.Status,
			},
		})
		return nil
	}))

	eventBus.Subscribe(events.CallCompleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.CallCompleted)
		if !ok {
			return nil
		}
		// Calls that never resolved to a lead have no operator to notify.
		if e.OperatorID == uuid.Nil {
			return nil
		}
		if _, err := inappSvc.NotifyCallCompleted(ctx, e.OperatorID, e.CallID, e.Status); err != nil {
			m.log.Error("failed to create call notification", "error", err, "callId", e.CallID)
		}
		ev := sse.Event{
			Type: sse.EventCallCompleted,
			Data: map[string]interface{}{
				"callId":          e.CallID,
				"status":          e.Status,
				"durationSeconds": e.DurationSeconds,
			},
		}
		if e.LeadID != nil {
			ev.LeadID = *e.LeadID
		}
		m.sse.Publish(e.OperatorID, ev)
		return nil
	}))
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes mounts notification routes and the SSE stream.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/notifications")
	group.GET("", m.handler.HandleList)
	group.PUT("/:notificationId/read", m.handler.HandleMarkRead)
	group.PUT("/read-all", m.handler.HandleMarkAllRead)

	ctx.Protected.GET("/events", m.sse.Handler(httpkit.MustGetOperatorID))
}

// Close stops the SSE broadcaster, disconnecting all clients.
func (m *Module) Close() { m.sse.Close() }
