// Package webhook receives provider callbacks for messages and calls. Every
// route is authenticated by the shared provider token, never by operator JWT.
package webhook

import (
	callsvc "nurture_backend/internal/calls/service"
	apphttp "nurture_backend/internal/http"
	msgsvc "nurture_backend/internal/messaging/service"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"
)

// Module is the webhook module implementing http.Module.
type Module struct {
	handler *Handler
	cfg     config.WebhookConfig
}

// NewModule creates the webhook module.
func NewModule(messages *msgsvc.Service, calls *callsvc.Service, cfg config.WebhookConfig, val *validator.Validator, log *logger.Logger) *Module {
	return &Module{
		handler: NewHandler(messages, calls, val, log),
		cfg:     cfg,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "webhook" }

// RegisterRoutes mounts the provider callback routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Webhooks.Group("")
	group.Use(TokenAuthMiddleware(m.cfg))

	group.POST("/messages", m.handler.HandleInboundMessage)
	group.POST("/messages/status", m.handler.HandleMessageStatus)
	group.POST("/calls/status", m.handler.HandleCallStatus)
	group.POST("/calls/recording", m.handler.HandleCallRecording)
}
