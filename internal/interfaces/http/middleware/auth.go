package middleware

import (
	"bytes"
	"crypto/subtle"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huangshi/genealogy-api/internal/infrastructure/credentials"
	"github.com/huangshi/genealogy-api/internal/infrastructure/crypto"
	apperrors "github.com/huangshi/genealogy-api/pkg/errors"
	"github.com/huangshi/genealogy-api/pkg/jwt"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// ContextKeyAuthType records how the request authenticated: "api_key"
	// or "token".
	ContextKeyAuthType ContextKey = "auth_type"
	// ContextKeyTokenType records the claim type of a token-authenticated
	// request.
	ContextKeyTokenType ContextKey = "token_type"
)

// Headers used by the authentication gate.
const (
	HeaderAPIKey    = "X-API-Key"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

// chatPaths get the tighter per-window budget.
var chatPaths = map[string]bool{
	"/api/chat":         true,
	"/api/chat/stream":  true,
	"/api/conversation": true,
}

// AuthMiddleware is the gate in front of every protected endpoint. It
// runs the checks in a fixed order: credential presence, API key or
// bearer token, optional request signature, then rate limiting.
type AuthMiddleware struct {
	creds            *credentials.Store
	tokens           *jwt.Manager
	limiter          *SlidingWindowLimiter
	requireSignature bool
	log              logger.Logger
}

// NewAuthMiddleware creates the gate.
func NewAuthMiddleware(
	creds *credentials.Store,
	tokens *jwt.Manager,
	limiter *SlidingWindowLimiter,
	requireSignature bool,
	log logger.Logger,
) *AuthMiddleware {
	return &AuthMiddleware{
		creds:            creds,
		tokens:           tokens,
		limiter:          limiter,
		requireSignature: requireSignature,
		log:              log.With(logger.Component("auth_gate")),
	}
}

// Gate returns the middleware handler.
func (m *AuthMiddleware) Gate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		bundle := m.creds.Bundle()

		apiKey := c.GetHeader(HeaderAPIKey)
		authHeader := c.GetHeader("Authorization")

		if apiKey == "" && authHeader == "" {
			abortError(c, http.StatusUnauthorized, "MISSING_AUTH",
				"provide an X-API-Key header or a Bearer token")
			return
		}

		// Both credentials are checked when both are sent: a valid key
		// does not excuse a bad token.
		if apiKey != "" {
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(bundle.ServerAPIKey)) != 1 {
				m.log.Warn("rejected invalid API key", logger.ClientIP(GetClientIP(c)))
				abortError(c, http.StatusForbidden, "INVALID_API_KEY", "API key is not valid")
				return
			}
			c.Set(string(ContextKeyAuthType), "api_key")
		}

		if authHeader != "" {
			token, ok := bearerToken(authHeader)
			if !ok {
				abortError(c, http.StatusUnauthorized, "INVALID_TOKEN",
					"Authorization header must be 'Bearer <token>'")
				return
			}

			claims, err := m.tokens.Verify([]byte(bundle.JWTSecret), token)
			if err != nil {
				if apperrors.Is(err, apperrors.ErrTokenExpired) {
					abortError(c, http.StatusUnauthorized, "TOKEN_EXPIRED",
						"token has expired, request a new one")
					return
				}
				abortError(c, http.StatusUnauthorized, "INVALID_TOKEN", "token is not valid")
				return
			}
			if apiKey == "" {
				c.Set(string(ContextKeyAuthType), "token")
			}
			c.Set(string(ContextKeyTokenType), claims.Type)
		}

		if m.requireSignature || c.GetHeader(HeaderSignature) != "" {
			if err := m.verifySignature(c, bundle.ServerAPIKey); err != nil {
				m.log.Warn("rejected request signature",
					logger.Path(c.Request.URL.Path), logger.Error(err))
				abortError(c, http.StatusForbidden, "INVALID_SIGNATURE",
					"request signature verification failed")
				return
			}
		}

		class := ClassGeneral
		if chatPaths[c.Request.URL.Path] {
			class = ClassChat
		}

		result := m.limiter.Check(GetClientIP(c), class, bundle.RateLimit)
		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.UnixMilli(), 10))

		if !result.Allowed {
			retryAfter := int(math.Ceil(time.Until(result.ResetAt).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":    false,
				"error":      "too many requests, slow down",
				"code":       "RATE_LIMIT_EXCEEDED",
				"retryAfter": retryAfter,
			})
			return
		}

		c.Next()
	}
}

// verifySignature checks X-Timestamp and X-Signature against the request.
// The body is consumed and restored so handlers can still bind it.
func (m *AuthMiddleware) verifySignature(c *gin.Context, apiKey string) error {
	tsHeader := c.GetHeader(HeaderTimestamp)
	sig := c.GetHeader(HeaderSignature)
	if tsHeader == "" || sig == "" {
		return apperrors.ErrInvalidSignature
	}

	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return apperrors.ErrInvalidSignature
	}

	body, err := c.GetRawData()
	if err != nil {
		return apperrors.Wrap(err, "failed to read request body")
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	return crypto.VerifyRequest(c.Request.Method, c.Request.URL.Path, ts, body, apiKey, sig, time.Now())
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// abortError writes the standard error envelope and stops the chain.
func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

// GetClientIP extracts the client IP address.
func GetClientIP(c *gin.Context) string {
	// Check X-Forwarded-For first (for proxies)
	ip := c.GetHeader("X-Forwarded-For")
	if ip != "" {
		// Take the first IP if multiple
		if idx := strings.Index(ip, ","); idx != -1 {
			ip = strings.TrimSpace(ip[:idx])
		}
		return ip
	}

	return c.ClientIP()
}
