package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DocsHandler serves the machine-readable API reference.
type DocsHandler struct{}

// NewDocsHandler creates the docs handler.
func NewDocsHandler() *DocsHandler {
	return &DocsHandler{}
}

type endpointDoc struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Auth   bool   `json:"auth"`
	Notes  string `json:"notes"`
}

var endpoints = []endpointDoc{
	{"GET", "/api/health", false, "liveness and config summary"},
	{"GET", "/api/docs", false, "this document"},
	{"GET", "/api/models", false, "model catalog and current default"},
	{"POST", "/api/auth/token", false, "exchange the API key for a bearer token"},
	{"POST", "/api/auth/client-token", false, "bearer token for same-origin browser clients"},
	{"GET", "/api/auth/status", true, "rate-limit budget and gateway config"},
	{"POST", "/api/chat", true, "single-shot prompt: {prompt, model?, temperature?}"},
	{"POST", "/api/conversation", true, "session-aware chat: {message, sessionId?, model?, temperature?}"},
	{"POST", "/api/chat/stream", true, "not supported, returns 501"},
	{"GET", "/api/session/:id", true, "conversation history"},
	{"DELETE", "/api/session/:id", true, "delete a conversation"},
	{"POST", "/api/models/switch", true, "change the default model: {model}"},
}

var errorCodes = map[string]string{
	"MISSING_AUTH":            "no X-API-Key or Authorization header",
	"INVALID_API_KEY":         "API key does not match",
	"INVALID_TOKEN":           "bearer token malformed or signature invalid",
	"TOKEN_EXPIRED":           "bearer token expired",
	"INVALID_SIGNATURE":       "request signature or timestamp invalid",
	"RATE_LIMIT_EXCEEDED":     "too many requests in the window",
	"CORS_FORBIDDEN":          "origin not allowed for client tokens",
	"INVALID_PROMPT":          "prompt missing or empty",
	"PROMPT_TOO_LONG":         "prompt exceeds the maximum length",
	"INVALID_MESSAGE":         "message missing or empty",
	"MESSAGE_TOO_LONG":        "message exceeds the maximum length",
	"INVALID_MODEL":           "model not in the catalog",
	"INVALID_TEMPERATURE":     "temperature outside [0, 2]",
	"INVALID_SESSION_ID":      "sessionId is not a UUID",
	"SESSION_NOT_FOUND":       "session missing or expired",
	"STREAM_NOT_SUPPORTED":    "streaming is not available",
	"UPSTREAM_NOT_CONFIGURED": "AI credentials missing",
	"UPSTREAM_TIMEOUT":        "AI call exceeded the timeout",
	"UPSTREAM_ERROR":          "AI call failed",
	"INTERNAL_ERROR":          "unexpected server error",
}

// Docs returns the endpoint and error-code listing.
// GET /api/docs
func (h *DocsHandler) Docs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"name":       "genealogy-api",
		"auth":       "X-API-Key header, or Bearer token from /api/auth/token",
		"signature":  "optional X-Timestamp + X-Signature (HMAC-SHA256 keyed by the API key)",
		"endpoints":  endpoints,
		"errorCodes": errorCodes,
	})
}
