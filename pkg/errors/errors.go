package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these map to specific HTTP responses
var (
	// Authentication errors
	ErrMissingAuth     = errors.New("missing authentication")
	ErrInvalidAPIKey   = errors.New("invalid API key")
	ErrForbiddenOrigin = errors.New("cross-origin request forbidden")

	// Token errors
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenInvalid          = errors.New("token invalid")

	// Request signature errors
	ErrInvalidSignature = errors.New("request signature invalid")
	ErrTimestampSkew    = errors.New("request timestamp outside allowed skew")

	// Rate limit errors
	ErrRateLimited = errors.New("rate limit exceeded")

	// Session errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrStoreUnavailable = errors.New("session store unavailable")

	// Upstream errors
	ErrUpstreamNotConfigured = errors.New("upstream AI client not configured")
	ErrUpstreamTimeout       = errors.New("upstream AI call timed out")
	ErrUpstream              = errors.New("upstream AI call failed")

	// Configuration errors
	ErrCredentialPersist = errors.New("failed to persist credential bundle")

	// General errors
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation error")
)

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
