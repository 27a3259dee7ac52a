package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huangshi/genealogy-api/internal/application/services"
	"github.com/huangshi/genealogy-api/internal/infrastructure/credentials"
)

// HealthChecker interface for checking backend health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler handles the public health endpoint.
type HealthHandler struct {
	redis    HealthChecker // nil when Redis is not configured
	creds    *credentials.Store
	sessions *services.SessionService
	chat     *services.ChatService
	port     int
	started  time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(
	redis HealthChecker,
	creds *credentials.Store,
	sessions *services.SessionService,
	chat *services.ChatService,
	port int,
) *HealthHandler {
	return &HealthHandler{
		redis:    redis,
		creds:    creds,
		sessions: sessions,
		chat:     chat,
		port:     port,
		started:  time.Now(),
	}
}

// Health returns liveness plus a config summary.
// GET /api/health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	redisConnected := false
	if h.redis != nil {
		redisConnected = h.redis.Health(ctx) == nil
	}

	bundle := h.creds.Bundle()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  "healthy",
		"uptime":  int64(time.Since(h.started).Seconds()),
		"port":    h.port,
		"upstream": gin.H{
			"configured":   h.chat.Configured(),
			"defaultModel": h.chat.CurrentModel(),
		},
		"auth": gin.H{
			"keyHint":         bundle.KeyHint(),
			"tokenExpiresIn":  bundle.TokenExpiresInMillis,
			"degradedStorage": h.creds.Degraded(),
		},
		"rateLimit": gin.H{
			"windowMs":        bundle.RateLimit.WindowMillis,
			"maxRequests":     bundle.RateLimit.MaxRequests,
			"maxChatRequests": bundle.RateLimit.MaxChatRequests,
		},
		"sessions": gin.H{
			"redisConnected": redisConnected,
			"active":         h.sessions.Count(ctx),
		},
	})
}
