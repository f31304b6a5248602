// Package auth authenticates operators and issues access tokens. Operator
// accounts are provisioned out of band; there is no self-service signup.
package auth

import (
	"nurture_backend/internal/auth/handler"
	"nurture_backend/internal/auth/repository"
	"nurture_backend/internal/auth/service"
	apphttp "nurture_backend/internal/http"
	"nurture_backend/platform/config"
	"nurture_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the auth module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates the auth module.
func NewModule(pool *pgxpool.Pool, cfg config.AuthConfig, val *validator.Validator) *Module {
	svc := service.New(repository.New(pool), cfg)
	return &Module{handler: handler.New(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "auth" }

// RegisterRoutes mounts the login route publicly and /me behind auth.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Engine.POST("/api/v1/auth/login", m.handler.HandleLogin)
	ctx.Protected.GET("/auth/me", m.handler.HandleMe)
}
