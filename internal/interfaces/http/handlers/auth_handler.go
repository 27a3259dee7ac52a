package handlers

import (
	"crypto/subtle"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/huangshi/genealogy-api/config"
	"github.com/huangshi/genealogy-api/internal/application/dto"
	"github.com/huangshi/genealogy-api/internal/infrastructure/credentials"
	"github.com/huangshi/genealogy-api/internal/interfaces/http/middleware"
	"github.com/huangshi/genealogy-api/pkg/jwt"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

// AuthHandler issues access tokens and reports gateway status.
type AuthHandler struct {
	creds         *credentials.Store
	tokens        *jwt.Manager
	limiter       *middleware.SlidingWindowLimiter
	security      config.SecurityConfig
	requireSig    bool
	trustedOrigin *regexp.Regexp
	log           logger.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(
	creds *credentials.Store,
	tokens *jwt.Manager,
	limiter *middleware.SlidingWindowLimiter,
	security config.SecurityConfig,
	requireSig bool,
	log logger.Logger,
) *AuthHandler {
	return &AuthHandler{
		creds:         creds,
		tokens:        tokens,
		limiter:       limiter,
		security:      security,
		requireSig:    requireSig,
		trustedOrigin: trustedOriginPattern(security.TrustedDomain),
		log:           log.With(logger.Component("auth_handler")),
	}
}

// trustedOriginPattern matches the apex domain and its subdomains, with
// an optional port. Anchored so evil-<domain>.com cannot slip through.
func trustedOriginPattern(domain string) *regexp.Regexp {
	if domain == "" {
		return nil
	}
	return regexp.MustCompile(`^https?://([a-z0-9-]+\.)*` + regexp.QuoteMeta(domain) + `(:\d+)?$`)
}

// Token exchanges the server API key for a bearer token.
// POST /api/auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusForbidden, "INVALID_API_KEY", "API key is required")
		return
	}

	bundle := h.creds.Bundle()
	key := req.Key()

	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(bundle.ServerAPIKey)) != 1 {
		h.log.Warn("token request with invalid key", logger.ClientIP(middleware.GetClientIP(c)))
		respondError(c, http.StatusForbidden, "INVALID_API_KEY", "API key is not valid")
		return
	}

	token, err := h.tokens.Issue([]byte(bundle.JWTSecret), jwt.Claims{
		Type:    jwt.TypeAPIAccess,
		KeyHint: bundle.KeyHint(),
	}, bundle.TokenTTL())
	if err != nil {
		h.log.Error("failed to issue token", logger.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to issue token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"token":     token,
		"expiresIn": bundle.TokenExpiresInMillis,
		"tokenType": "Bearer",
	})
}

// ClientToken issues a token to same-origin browser clients without
// exposing the API key to the page.
// POST /api/auth/client-token
func (h *AuthHandler) ClientToken(c *gin.Context) {
	if !h.originAllowed(c) {
		h.log.Warn("client token request from forbidden origin",
			logger.String("origin", c.GetHeader("Origin")),
			logger.String("referer", c.GetHeader("Referer")))
		respondError(c, http.StatusForbidden, "CORS_FORBIDDEN",
			"request origin is not allowed")
		return
	}

	bundle := h.creds.Bundle()

	token, err := h.tokens.Issue([]byte(bundle.JWTSecret), jwt.Claims{
		Type:   jwt.TypeClientAccess,
		Source: "web",
	}, bundle.TokenTTL())
	if err != nil {
		h.log.Error("failed to issue client token", logger.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to issue token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"token":     token,
		"expiresIn": bundle.TokenExpiresInMillis,
		"tokenType": "Bearer",
	})
}

// originAllowed checks Origin against the allow-list and the trusted
// domain, falling back to Referer. Requests with neither header are
// allowed (curl, native apps).
func (h *AuthHandler) originAllowed(c *gin.Context) bool {
	origin := c.GetHeader("Origin")
	if origin != "" {
		return h.matchOrigin(origin)
	}

	referer := c.GetHeader("Referer")
	if referer != "" {
		return h.matchOrigin(refererOrigin(referer))
	}

	return true
}

func (h *AuthHandler) matchOrigin(origin string) bool {
	for _, allowed := range h.security.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return h.trustedOrigin != nil && h.trustedOrigin.MatchString(origin)
}

// refererOrigin reduces a referer URL to its scheme://host[:port] part.
func refererOrigin(referer string) string {
	rest := referer
	scheme := ""
	if idx := strings.Index(rest, "://"); idx != -1 {
		scheme = rest[:idx+3]
		rest = rest[idx+3:]
	}
	if idx := strings.IndexAny(rest, "/?#"); idx != -1 {
		rest = rest[:idx]
	}
	return scheme + rest
}

// Status reports the caller's rate-limit budget and the gateway config.
// GET /api/auth/status
func (h *AuthHandler) Status(c *gin.Context) {
	bundle := h.creds.Bundle()
	identity := middleware.GetClientIP(c)

	general := h.limiter.Status(identity, middleware.ClassGeneral, bundle.RateLimit)
	chat := h.limiter.Status(identity, middleware.ClassChat, bundle.RateLimit)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"auth": gin.H{
			"type":      c.GetString(string(middleware.ContextKeyAuthType)),
			"tokenType": c.GetString(string(middleware.ContextKeyTokenType)),
		},
		"rateLimit": gin.H{
			"windowMs": bundle.RateLimit.WindowMillis,
			"general": gin.H{
				"limit":     general.Limit,
				"remaining": general.Remaining,
				"resetAt":   general.ResetAt.UnixMilli(),
			},
			"chat": gin.H{
				"limit":     chat.Limit,
				"remaining": chat.Remaining,
				"resetAt":   chat.ResetAt.UnixMilli(),
			},
		},
		"config": gin.H{
			"signatureRequired": h.requireSig,
			"tokenExpiresIn":    bundle.TokenExpiresInMillis,
			"keyHint":           bundle.KeyHint(),
			"degradedStorage":   h.creds.Degraded(),
		},
	})
}
