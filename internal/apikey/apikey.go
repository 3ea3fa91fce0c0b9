package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// DefaultPrefix marks keys issued by this gateway.
const DefaultPrefix = "mgw"

// Generate creates a new API key with the given prefix and returns the
// plain key together with the hash to store. Only the hash is ever
// persisted.
func Generate(prefix string) (string, string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %v", err)
	}

	fullKey := fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(bytes))
	return fullKey, Hash(fullKey), nil
}

// Hash returns the lookup digest for an API key.
func Hash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// ValidFormat checks the shape of a key (prefix, underscore, 64 hex
// characters) without touching any store.
func ValidFormat(key string) bool {
	parts := strings.Split(key, "_")
	if len(parts) != 2 {
		return false
	}

	prefix, keyPart := parts[0], parts[1]
	if len(prefix) < 2 || len(prefix) > 10 {
		return false
	}
	if len(keyPart) != 64 {
		return false
	}
	for _, char := range keyPart {
		if !((char >= '0' && char <= '9') || (char >= 'a' && char <= 'f') || (char >= 'A' && char <= 'F')) {
			return false
		}
	}
	return true
}

// Mask hides most of a key for display and logs.
func Mask(key string) string {
	if len(key) < 12 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
