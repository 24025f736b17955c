package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// KeySize256 is the byte size of the pepper and of ephemeral HS256 signing
// keys.
const KeySize256 = 32

// GenerateToken returns size random bytes encoded as base64url without
// padding.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
