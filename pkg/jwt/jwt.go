package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/huangshi/genealogy-api/pkg/errors"
)

// Token kinds issued by the service.
const (
	// TypeAPIAccess marks tokens issued to holders of the server API key.
	TypeAPIAccess = "api_access"
	// TypeClientAccess marks tokens issued to same-origin browser clients.
	TypeClientAccess = "client_access"
)

// Claims represents the payload of an access token.
type Claims struct {
	jwt.RegisteredClaims
	// Type distinguishes how the token was obtained (api_access, client_access).
	Type string `json:"type"`
	// KeyHint is a truncated, non-sensitive prefix of the API key the
	// token was issued against. Never the full key.
	KeyHint string `json:"key_hint,omitempty"`
	// Source identifies the requesting surface, e.g. "web".
	Source string `json:"source,omitempty"`
}

// Manager issues and verifies HMAC-signed bearer tokens. Tokens are
// stateless: there is no server-side record, validity is carried entirely
// by the signature and the exp claim. The signing secret is passed per
// call so that the credential bundle stays the single source of truth.
type Manager struct{}

// NewManager creates a new token manager.
func NewManager() *Manager {
	return &Manager{}
}

// Issue creates a signed HS256 token with iat/exp injected from now and ttl.
func (m *Manager) Issue(secret []byte, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to sign token")
	}

	return signed, nil
}

// Verify validates a token and returns its claims. The signature is
// checked before any claim is trusted (the library validates HMAC first,
// in constant time); callers can rely on exactly one of the sentinel
// errors to branch on:
//   - ErrTokenMalformed: not a three-segment token or undecodable
//   - ErrTokenSignatureInvalid: signature does not match the secret
//   - ErrTokenExpired: signature valid but exp is in the past
func (m *Manager) Verify(secret []byte, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		switch {
		case apperrors.Is(err, jwt.ErrTokenMalformed):
			return nil, apperrors.ErrTokenMalformed
		case apperrors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, apperrors.ErrTokenSignatureInvalid
		case apperrors.Is(err, jwt.ErrTokenExpired):
			return nil, apperrors.ErrTokenExpired
		default:
			return nil, apperrors.ErrTokenInvalid
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrTokenInvalid
	}

	return claims, nil
}
