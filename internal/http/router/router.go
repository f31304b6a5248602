// Package router builds the Gin engine and mounts every registered module.
package router

import (
	"net/http"
	"time"

	apphttp "nurture_backend/internal/http"
	"nurture_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// New builds the HTTP engine: global middleware, health endpoints, and the
// route groups each module mounts into.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(buildCORS(app.Config))

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/api/ready", func(c *gin.Context) {
		if app.Health != nil {
			if err := app.Health.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	v1 := engine.Group("/api/v1")

	protected := v1.Group("")
	protected.Use(httpkit.AuthRequired(app.Config))

	// Providers retry aggressively; cap the callback surface per IP.
	webhookLimiter := httpkit.NewIPRateLimiter(rate.Limit(50), 100, app.Logger)
	webhooks := engine.Group("/webhooks")
	webhooks.Use(webhookLimiter.RateLimit())

	routerCtx := &apphttp.RouterContext{
		Engine:    engine,
		Protected: protected,
		Webhooks:  webhooks,
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(routerCtx)
		app.Logger.Info("module routes registered", "module", module.Name())
	}

	return engine
}

func buildCORS(cfg apphttp.RouterConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.GetCORSOrigins()
	}
	return cors.New(corsConfig)
}
