package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/huangshi/genealogy-api/pkg/errors"
)

// respondError writes the standard error envelope.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

// handleUpstreamError converts upstream and session errors to HTTP
// responses.
func handleUpstreamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errors.ErrUpstreamNotConfigured):
		respondError(c, http.StatusInternalServerError, "UPSTREAM_NOT_CONFIGURED",
			"AI service is not configured, set QWEN_API_KEY")
	case errors.Is(err, errors.ErrUpstreamTimeout):
		respondError(c, http.StatusInternalServerError, "UPSTREAM_TIMEOUT",
			"AI service did not respond in time")
	case errors.Is(err, errors.ErrUpstream):
		respondError(c, http.StatusInternalServerError, "UPSTREAM_ERROR",
			"AI service request failed")
	case errors.Is(err, errors.ErrSessionNotFound):
		respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND",
			"session not found or expired")
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR",
			"internal server error")
	}
}
