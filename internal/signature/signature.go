// Package signature computes and verifies the HMAC-SHA256 payload signatures
// carried in the X-Signature header of outbound webhook requests.
package signature

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Prefix identifies the digest algorithm in the signature header value.
const Prefix = "sha256="

// Sign computes the signature over the exact bytes that will be transmitted
// as the request body. An empty secret returns an empty string: signing must
// be skipped entirely rather than producing a forgeable empty-secret HMAC.
func Sign(secret string, payload []byte) string {
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return Prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature and compares in constant time.
// An empty secret never verifies.
func Verify(secret string, payload []byte, candidate string) bool {
	if secret == "" {
		return false
	}
	expected := Sign(secret, payload)
	return hmac.Equal([]byte(candidate), []byte(expected))
}

// GenerateSecret creates a random signing secret, hex-encoded.
func GenerateSecret(numBytes int) (string, error) {
	if numBytes <= 0 {
		numBytes = 32
	}
	buf := make([]byte, numBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate signing secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
