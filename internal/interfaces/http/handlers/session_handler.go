package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/huangshi/genealogy-api/internal/application/services"
	"github.com/huangshi/genealogy-api/internal/domain/session"
	apperrors "github.com/huangshi/genealogy-api/pkg/errors"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

// SessionHandler serves conversation-session lookups and deletion.
type SessionHandler struct {
	sessions *services.SessionService
	log      logger.Logger
}

// NewSessionHandler creates the session handler.
func NewSessionHandler(sessions *services.SessionService, log logger.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		log:      log.With(logger.Component("session_handler")),
	}
}

// Get returns a session summary.
// GET /api/session/:id
func (h *SessionHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !session.IsValidID(id) {
		respondError(c, http.StatusBadRequest, "INVALID_SESSION_ID", "sessionId must be a UUID")
		return
	}

	sess, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSessionNotFound) {
			respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found or expired")
			return
		}
		h.log.Error("failed to load session", logger.SessionID(id), logger.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load session")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"sessionId":    sess.ID,
		"messages":     sess.Messages,
		"messageCount": len(sess.Messages),
		"createdAt":    sess.CreatedAt,
		"lastActiveAt": sess.LastActiveAt,
	})
}

// Delete removes a session. Deleting an unknown id still succeeds.
// DELETE /api/session/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if !session.IsValidID(id) {
		respondError(c, http.StatusBadRequest, "INVALID_SESSION_ID", "sessionId must be a UUID")
		return
	}

	if err := h.sessions.Delete(c.Request.Context(), id); err != nil {
		h.log.Error("failed to delete session", logger.SessionID(id), logger.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to delete session")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": id,
	})
}
