package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// APIKeyPrefix marks server API keys so they are recognizable in configs
// and log hints without exposing the key body.
const APIKeyPrefix = "hs_"

// RandomHex returns n random bytes hex-encoded (2n characters).
func RandomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateAPIKey generates a server API key: the prefix plus 256 bits of
// randomness.
func GenerateAPIKey() (string, error) {
	body, err := RandomHex(32)
	if err != nil {
		return "", err
	}
	return APIKeyPrefix + body, nil
}

// GenerateSecret generates a 512-bit signing secret for access tokens.
func GenerateSecret() (string, error) {
	return RandomHex(64)
}
