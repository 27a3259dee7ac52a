package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangshi/genealogy-api/internal/infrastructure/credentials"
	"github.com/huangshi/genealogy-api/internal/infrastructure/crypto"
	"github.com/huangshi/genealogy-api/internal/interfaces/http/middleware"
	"github.com/huangshi/genealogy-api/pkg/jwt"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

type gateFixture struct {
	router *gin.Engine
	store  *credentials.Store
	bundle *credentials.Bundle
	tokens *jwt.Manager
	dir    string
}

func newGateFixture(t *testing.T, requireSignature bool) *gateFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New(logger.DefaultConfig())
	require.NoError(t, err)

	dir := t.TempDir()
	seed := credentials.Bundle{
		ServerAPIKey:         "hs_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		JWTSecret:            "fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210",
		TokenExpiresInMillis: time.Hour.Milliseconds(),
		RateLimit: credentials.Policy{
			WindowMillis:    time.Minute.Milliseconds(),
			MaxRequests:     30,
			MaxChatRequests: 2,
		},
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(seed)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, credentials.FileName), data, 0o600))

	store := credentials.NewStore(dir, log)
	bundle, err := store.Load()
	require.NoError(t, err)

	tokens := jwt.NewManager()
	limiter := middleware.NewSlidingWindowLimiter(log)
	gate := middleware.NewAuthMiddleware(store, tokens, limiter, requireSignature, log)

	router := gin.New()
	router.Use(gate.Gate())
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"success": true}) }
	router.GET("/api/auth/status", ok)
	router.POST("/api/chat", ok)

	return &gateFixture{router: router, store: store, bundle: bundle, tokens: tokens, dir: dir}
}

func (f *gateFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Code
}

func TestGate_MissingAuth(t *testing.T) {
	f := newGateFixture(t, false)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/auth/status", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "MISSING_AUTH", errCode(t, w))
}

func TestGate_InvalidAPIKey(t *testing.T) {
	f := newGateFixture(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.Header.Set(middleware.HeaderAPIKey, "hs_wrong")
	w := f.do(req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "INVALID_API_KEY", errCode(t, w))
}

func TestGate_ValidAPIKey(t *testing.T) {
	f := newGateFixture(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.Header.Set(middleware.HeaderAPIKey, f.bundle.ServerAPIKey)
	w := f.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "30", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "29", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestGate_BearerToken(t *testing.T) {
	f := newGateFixture(t, false)

	token, err := f.tokens.Issue([]byte(f.bundle.JWTSecret), jwt.Claims{Type: jwt.TypeAPIAccess}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := f.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGate_ExpiredToken(t *testing.T) {
	f := newGateFixture(t, false)

	token, err := f.tokens.Issue([]byte(f.bundle.JWTSecret), jwt.Claims{Type: jwt.TypeAPIAccess}, -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := f.do(req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_EXPIRED", errCode(t, w))
}

func TestGate_GarbageToken(t *testing.T) {
	f := newGateFixture(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := f.do(req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", errCode(t, w))
}

func TestGate_ValidKeyWithGarbageToken(t *testing.T) {
	f := newGateFixture(t, false)

	// A bad bearer token is rejected even when a valid key rides along.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.Header.Set(middleware.HeaderAPIKey, f.bundle.ServerAPIKey)
	req.Header.Set("Authorization", "Bearer not.a.token")
	w := f.do(req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", errCode(t, w))
}

func TestGate_ValidKeyWithExpiredToken(t *testing.T) {
	f := newGateFixture(t, false)

	token, err := f.tokens.Issue([]byte(f.bundle.JWTSecret), jwt.Claims{Type: jwt.TypeAPIAccess}, -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.Header.Set(middleware.HeaderAPIKey, f.bundle.ServerAPIKey)
	req.Header.Set("Authorization", "Bearer "+token)
	w := f.do(req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_EXPIRED", errCode(t, w))
}

func TestGate_ValidKeyWithValidToken(t *testing.T) {
	f := newGateFixture(t, false)

	token, err := f.tokens.Issue([]byte(f.bundle.JWTSecret), jwt.Claims{Type: jwt.TypeAPIAccess}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.Header.Set(middleware.HeaderAPIKey, f.bundle.ServerAPIKey)
	req.Header.Set("Authorization", "Bearer "+token)
	w := f.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGate_RotatedKeyTakesEffect(t *testing.T) {
	f := newGateFixture(t, false)

	rotated := *f.bundle
	rotated.ServerAPIKey = "hs_ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"
	data, err := json.Marshal(rotated)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, credentials.FileName), data, 0o600))

	// The new key works without a restart.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.Header.Set(middleware.HeaderAPIKey, rotated.ServerAPIKey)
	assert.Equal(t, http.StatusOK, f.do(req).Code)

	// The old key no longer does.
	req = httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.Header.Set(middleware.HeaderAPIKey, f.bundle.ServerAPIKey)
	w := f.do(req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "INVALID_API_KEY", errCode(t, w))
}

func TestGate_SignatureOptIn(t *testing.T) {
	f := newGateFixture(t, false)

	body := []byte(`{"prompt":"hello"}`)
	ts := time.Now().UnixMilli()
	sig := crypto.SignRequest("POST", "/api/chat", ts, body, f.bundle.ServerAPIKey)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	req.Header.Set(middleware.HeaderAPIKey, f.bundle.ServerAPIKey)
	req.Header.Set(middleware.HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(middleware.HeaderSignature, sig)
	w := f.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGate_SignatureTampered(t *testing.T) {
	f := newGateFixture(t, false)

	body := []byte(`{"prompt":"hello"}`)
	ts := time.Now().UnixMilli()
	sig := crypto.SignRequest("POST", "/api/chat", ts, []byte(`{"prompt":"other"}`), f.bundle.ServerAPIKey)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	req.Header.Set(middleware.HeaderAPIKey, f.bundle.ServerAPIKey)
	req.Header.Set(middleware.HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(middleware.HeaderSignature, sig)
	w := f.do(req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "INVALID_SIGNATURE", errCode(t, w))
}

func TestGate_SignatureRequired(t *testing.T) {
	f := newGateFixture(t, true)

	// Without signature headers the request is rejected.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.Header.Set(middleware.HeaderAPIKey, f.bundle.ServerAPIKey)
	w := f.do(req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "INVALID_SIGNATURE", errCode(t, w))
}

func TestGate_StaleTimestamp(t *testing.T) {
	f := newGateFixture(t, false)

	ts := time.Now().Add(-10 * time.Minute).UnixMilli()
	sig := crypto.SignRequest("GET", "/api/auth/status", ts, nil, f.bundle.ServerAPIKey)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.Header.Set(middleware.HeaderAPIKey, f.bundle.ServerAPIKey)
	req.Header.Set(middleware.HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(middleware.HeaderSignature, sig)
	w := f.do(req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "INVALID_SIGNATURE", errCode(t, w))
}

func TestGate_ChatRateLimit(t *testing.T) {
	f := newGateFixture(t, false)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader([]byte(`{}`)))
		req.Header.Set(middleware.HeaderAPIKey, f.bundle.ServerAPIKey)
		return f.do(req)
	}

	require.Equal(t, http.StatusOK, send().Code)
	require.Equal(t, http.StatusOK, send().Code)

	w := send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body struct {
		Code       string `json:"code"`
		RetryAfter int    `json:"retryAfter"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Code)
	assert.Positive(t, body.RetryAfter)

	// The general budget is still open on other endpoints.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.Header.Set(middleware.HeaderAPIKey, f.bundle.ServerAPIKey)
	assert.Equal(t, http.StatusOK, f.do(req).Code)
}
