package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/huangshi/genealogy-api/internal/infrastructure/crypto"
	apperrors "github.com/huangshi/genealogy-api/pkg/errors"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

// FileName is the credential bundle file inside the config directory.
const FileName = "auth.json"

// Policy holds the rate-limit settings carried in the bundle.
type Policy struct {
	WindowMillis    int64 `json:"windowMs"`
	MaxRequests     int   `json:"maxRequests"`
	MaxChatRequests int   `json:"maxChatRequests"`
}

// Window returns the sliding window as a duration.
func (p Policy) Window() time.Duration {
	return time.Duration(p.WindowMillis) * time.Millisecond
}

// Limit returns the request cap for the given class.
func (p Policy) Limit(chat bool) int {
	if chat {
		return p.MaxChatRequests
	}
	return p.MaxRequests
}

// Bundle is the set of secrets the service runs on. It is generated once
// and persisted; restarts reuse it so issued tokens stay valid.
type Bundle struct {
	ServerAPIKey string `json:"serverApiKey"`
	JWTSecret    string `json:"jwtSecret"`
	// TokenExpiresInMillis is the access-token lifetime in milliseconds.
	TokenExpiresInMillis int64     `json:"tokenExpiresIn"`
	RateLimit            Policy    `json:"rateLimit"`
	CreatedAt            time.Time `json:"createdAt"`
}

// TokenTTL returns the access-token lifetime as a duration.
func (b *Bundle) TokenTTL() time.Duration {
	return time.Duration(b.TokenExpiresInMillis) * time.Millisecond
}

// KeyHint returns a short non-sensitive prefix of the API key for logs
// and token claims.
func (b *Bundle) KeyHint() string {
	if len(b.ServerAPIKey) < 8 {
		return "..."
	}
	return b.ServerAPIKey[:8] + "..."
}

func defaultBundle() (*Bundle, error) {
	apiKey, err := crypto.GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	secret, err := crypto.GenerateSecret()
	if err != nil {
		return nil, err
	}

	return &Bundle{
		ServerAPIKey:         apiKey,
		JWTSecret:            secret,
		TokenExpiresInMillis: (24 * time.Hour).Milliseconds(),
		RateLimit: Policy{
			WindowMillis:    (time.Minute).Milliseconds(),
			MaxRequests:     30,
			MaxChatRequests: 10,
		},
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Store loads and persists the credential bundle. If the file cannot be
// written the store keeps serving a generated bundle from memory and
// flags itself degraded; issued tokens then die with the process.
type Store struct {
	path string
	log  logger.Logger

	mu       sync.RWMutex
	bundle   *Bundle
	degraded bool
}

// NewStore creates a store rooted at dir (the bundle lives at dir/auth.json).
func NewStore(dir string, log logger.Logger) *Store {
	return &Store{
		path: filepath.Join(dir, FileName),
		log:  log,
	}
}

// Load reads the bundle from disk, generating and persisting a new one if
// the file does not exist. An existing file is never overwritten. A
// persist failure is not fatal: the store degrades to memory-only.
func (s *Store) Load() (*Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err == nil {
		var b Bundle
		if jerr := json.Unmarshal(data, &b); jerr != nil {
			return nil, fmt.Errorf("failed to parse credential bundle %s: %w", s.path, jerr)
		}
		s.bundle = &b
		s.log.Info("loaded credential bundle",
			logger.String("path", s.path),
			logger.String("key_hint", b.KeyHint()))
		return &b, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read credential bundle %s: %w", s.path, err)
	}

	b, err := defaultBundle()
	if err != nil {
		return nil, err
	}
	s.bundle = b

	if perr := s.persist(b); perr != nil {
		s.degraded = true
		s.log.Error("failed to persist credential bundle, running with in-memory credentials",
			logger.String("path", s.path),
			logger.Error(perr))
		return b, nil
	}

	s.log.Info("generated new credential bundle",
		logger.String("path", s.path),
		logger.String("key_hint", b.KeyHint()))
	return b, nil
}

// Bundle returns the current bundle, re-reading the file so edits (key
// rotation) take effect without a restart. If the file cannot be read or
// parsed, the last good bundle keeps serving. Load must have been called.
func (s *Store) Bundle() *Bundle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.degraded {
		return s.bundle
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		s.log.Warn("failed to re-read credential bundle, using last good copy",
			logger.String("path", s.path), logger.Error(err))
		return s.bundle
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		s.log.Warn("credential bundle on disk is corrupt, using last good copy",
			logger.String("path", s.path), logger.Error(err))
		return s.bundle
	}

	s.bundle = &b
	return s.bundle
}

// Degraded reports whether the bundle could not be persisted and lives
// only in memory.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// persist writes the bundle atomically: temp file in the same directory,
// then rename over the target.
func (s *Store) persist(b *Bundle) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return apperrors.Wrap(err, "failed to create config directory")
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, "failed to encode credential bundle")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), FileName+".tmp-*")
	if err != nil {
		return apperrors.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.Wrap(err, "failed to write credential bundle")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.Wrap(err, "failed to set bundle permissions")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(err, "failed to close temp file")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(err, "failed to move credential bundle into place")
	}

	return nil
}
