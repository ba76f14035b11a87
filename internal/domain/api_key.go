package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Environment constants
const (
	EnvTest = "test"
	EnvLive = "live"
)

// Key type constants
const (
	KeyTypeSecret = "sk" // Secret key for server-side API access
	KeyTypePublic = "pk" // Public key for read-only access
)

const (
	apiKeyLength = 32
	base62Chars  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

var (
	validEnvironments = map[string]bool{
		EnvTest: true,
		EnvLive: true,
	}
	validKeyTypes = map[string]bool{
		KeyTypeSecret: true,
		KeyTypePublic: true,
	}
)

// APIKey authenticates a tenant-scoped caller. Only the SHA-256 hash of the
// key is stored.
type APIKey struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	Name        string     `json:"name"`
	KeyHash     string     `json:"-"`
	KeyPrefix   string     `json:"key_prefix"`
	Environment string     `json:"environment"`
	IsActive    bool       `json:"is_active"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// GenerateAPIKey creates a new API key.
// Returns: (plainKey, hash, prefix).
// Format: <keyType>_<env>_<random32>, e.g. sk_live_<random>.
func GenerateAPIKey(keyType, env string) (string, string, string, error) {
	if !validKeyTypes[keyType] {
		return "", "", "", errors.New("invalid key type: must be 'sk' or 'pk'")
	}
	if !validEnvironments[env] {
		return "", "", "", errors.New("invalid environment: must be 'test' or 'live'")
	}

	randomPart, err := generateSecureRandomString(apiKeyLength)
	if err != nil {
		return "", "", "", err
	}

	prefix := keyType + "_" + env + "_"
	plainKey := prefix + randomPart

	hash := HashAPIKey(plainKey)

	// Key prefix for display: sk_live_A1b2C3
	keyPrefix := plainKey[:14]

	return plainKey, hash, keyPrefix, nil
}

// IsReadOnly reports whether the key only grants read access. Public (pk)
// keys may list and fetch resources but never mutate them.
func (a *APIKey) IsReadOnly() bool {
	return strings.HasPrefix(a.KeyPrefix, KeyTypePublic+"_")
}

// HashAPIKey returns the SHA-256 hash of an API key.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// IsValidFormat checks the <keyType>_<env>_<random32> shape without touching
// the database.
func IsValidFormat(key string) bool {
	parts := strings.SplitN(key, "_", 3)
	if len(parts) != 3 {
		return false
	}

	if !validKeyTypes[parts[0]] {
		return false
	}

	if !validEnvironments[parts[1]] {
		return false
	}

	randomPart := parts[2]
	if len(randomPart) != apiKeyLength {
		return false
	}

	for _, char := range randomPart {
		if !strings.ContainsRune(base62Chars, char) {
			return false
		}
	}

	return true
}

func (a *APIKey) Validate() error {
	if a.TenantID == uuid.Nil {
		return errors.New("tenant_id cannot be empty")
	}

	if a.Name == "" {
		return errors.New("api key name cannot be empty")
	}

	if a.KeyHash == "" {
		return errors.New("key hash cannot be empty")
	}

	if !validEnvironments[a.Environment] {
		return errors.New("invalid environment")
	}

	return nil
}

func generateSecureRandomString(length int) (string, error) {
	result := make([]byte, length)
	max := big.NewInt(int64(len(base62Chars)))

	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = base62Chars[n.Int64()]
	}

	return string(result), nil
}
