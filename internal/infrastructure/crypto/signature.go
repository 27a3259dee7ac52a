package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	apperrors "github.com/huangshi/genealogy-api/pkg/errors"
)

// MaxClockSkew is how far a signed timestamp may drift from server time
// in either direction before the request is rejected.
const MaxClockSkew = 5 * time.Minute

// SignRequest computes the request signature: an HMAC-SHA256, keyed by
// the API key, over "method:path:timestamp:bodyHash:apiKey" where
// bodyHash is the hex SHA-256 of the raw body ("" hashes the empty body).
// The timestamp is Unix milliseconds as sent in X-Timestamp.
func SignRequest(method, path string, timestamp int64, body []byte, apiKey string) string {
	bodyHash := sha256.Sum256(body)
	payload := fmt.Sprintf("%s:%s:%d:%s:%s",
		method, path, timestamp, hex.EncodeToString(bodyHash[:]), apiKey)

	mac := hmac.New(sha256.New, []byte(apiKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyRequest checks a request signature and its timestamp. The skew
// check runs first so stale replays fail fast; the signature comparison
// is constant time.
func VerifyRequest(method, path string, timestamp int64, body []byte, apiKey, signature string, now time.Time) error {
	sent := time.UnixMilli(timestamp)
	drift := now.Sub(sent)
	if drift < 0 {
		drift = -drift
	}
	if drift > MaxClockSkew {
		return apperrors.ErrTimestampSkew
	}

	expected := SignRequest(method, path, timestamp, body, apiKey)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return apperrors.ErrInvalidSignature
	}

	return nil
}
