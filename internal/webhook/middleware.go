package webhook

import (
	"crypto/subtle"
	"net/http"

	"nurture_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// TokenAuthMiddleware validates the X-Webhook-Token header against the
// shared secret the messaging provider is configured with.
func TokenAuthMiddleware(cfg config.WebhookConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := cfg.GetWebhookToken()
		if expected == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "webhook token not configured"})
			return
		}

		token := c.GetHeader("X-Webhook-Token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing webhook token"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook token"})
			return
		}

		c.Next()
	}
}
