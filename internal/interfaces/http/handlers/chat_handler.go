package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huangshi/genealogy-api/internal/application/dto"
	"github.com/huangshi/genealogy-api/internal/application/services"
	"github.com/huangshi/genealogy-api/internal/domain/model"
	"github.com/huangshi/genealogy-api/internal/domain/session"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

// maxPromptChars caps prompt and message length.
const maxPromptChars = 5000

// ChatHandler serves the AI-backed endpoints.
type ChatHandler struct {
	chat *services.ChatService
	log  logger.Logger
}

// NewChatHandler creates the chat handler.
func NewChatHandler(chat *services.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chat: chat,
		log:  log.With(logger.Component("chat_handler")),
	}
}

// validateText checks a prompt or message field. It returns the trimmed
// text, or responds and returns false.
func validateText(c *gin.Context, text, field, emptyCode, longCode string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		respondError(c, http.StatusBadRequest, emptyCode, field+" must be a non-empty string")
		return "", false
	}
	if len([]rune(trimmed)) > maxPromptChars {
		respondError(c, http.StatusBadRequest, longCode, field+" exceeds the maximum length")
		return "", false
	}
	return trimmed, true
}

// validateModel checks an optional model id against the catalog.
func validateModel(c *gin.Context, id string) bool {
	if id == "" || model.IsSupported(id) {
		return true
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"success":         false,
		"error":           "unknown model: " + id,
		"code":            "INVALID_MODEL",
		"availableModels": model.IDs(),
	})
	return false
}

// validateTemperature checks an optional temperature and returns the
// effective value.
func validateTemperature(c *gin.Context, t *float64) (float64, bool) {
	if t == nil {
		return services.DefaultTemperature, true
	}
	if *t < 0 || *t > 2 {
		respondError(c, http.StatusBadRequest, "INVALID_TEMPERATURE",
			"temperature must be between 0 and 2")
		return 0, false
	}
	return *t, true
}

// Chat runs a stateless prompt.
// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PROMPT", "request body must be valid JSON")
		return
	}

	prompt, ok := validateText(c, req.Prompt, "prompt", "INVALID_PROMPT", "PROMPT_TOO_LONG")
	if !ok {
		return
	}
	if !validateModel(c, req.Model) {
		return
	}
	temperature, ok := validateTemperature(c, req.Temperature)
	if !ok {
		return
	}

	if !h.chat.Configured() {
		respondError(c, http.StatusInternalServerError, "UPSTREAM_NOT_CONFIGURED",
			"AI service is not configured, set QWEN_API_KEY")
		return
	}

	start := time.Now()
	res, err := h.chat.Chat(c.Request.Context(), prompt, req.Model, temperature)
	if err != nil {
		handleUpstreamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"response":     res.Content,
		"model":        res.Model,
		"usage":        gin.H{"totalTokens": res.TotalTokens},
		"responseTime": time.Since(start).Milliseconds(),
	})
}

// Conversation runs one turn of a session-backed conversation.
// POST /api/conversation
func (h *ChatHandler) Conversation(c *gin.Context) {
	var req dto.ConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_MESSAGE", "request body must be valid JSON")
		return
	}

	message, ok := validateText(c, req.Message, "message", "INVALID_MESSAGE", "MESSAGE_TOO_LONG")
	if !ok {
		return
	}
	if req.SessionID != "" && !session.IsValidID(req.SessionID) {
		respondError(c, http.StatusBadRequest, "INVALID_SESSION_ID",
			"sessionId must be a UUID")
		return
	}
	if !validateModel(c, req.Model) {
		return
	}
	temperature, ok := validateTemperature(c, req.Temperature)
	if !ok {
		return
	}

	if !h.chat.Configured() {
		respondError(c, http.StatusInternalServerError, "UPSTREAM_NOT_CONFIGURED",
			"AI service is not configured, set QWEN_API_KEY")
		return
	}

	start := time.Now()
	res, err := h.chat.Converse(c.Request.Context(), req.SessionID, message, req.Model, temperature)
	if err != nil {
		handleUpstreamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"sessionId":    res.SessionID,
		"response":     res.Content,
		"model":        res.Model,
		"usage":        gin.H{"totalTokens": res.TotalTokens},
		"responseTime": time.Since(start).Milliseconds(),
		"messageCount": res.MessageCount,
	})
}

// Stream is not implemented, matching the non-streaming upstream path.
// POST /api/chat/stream
func (h *ChatHandler) Stream(c *gin.Context) {
	respondError(c, http.StatusNotImplemented, "STREAM_NOT_SUPPORTED",
		"streaming responses are not supported, use /api/chat")
}

// Models returns the catalog and the current default.
// GET /api/models
func (h *ChatHandler) Models(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"models":       model.All(),
		"defaultModel": h.chat.CurrentModel(),
	})
}

// SwitchModel changes the default model for requests that do not name one.
// POST /api/models/switch
func (h *ChatHandler) SwitchModel(c *gin.Context) {
	var req dto.SwitchModelRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Model == "" {
		respondError(c, http.StatusBadRequest, "INVALID_MODEL", "model is required")
		return
	}

	if !model.IsSupported(req.Model) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":         false,
			"error":           "unknown model: " + req.Model,
			"code":            "INVALID_MODEL",
			"availableModels": model.IDs(),
		})
		return
	}

	h.chat.SwitchModel(req.Model)

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"defaultModel": req.Model,
	})
}
