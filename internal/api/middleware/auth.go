package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/hooklinehq/hookline/internal/domain"
)

const (
	// LocalTenantID is the key to retrieve tenant_id from context
	LocalTenantID = "tenant_id"
	// LocalTenant is the key to retrieve the full tenant from context
	LocalTenant = "tenant"
	// LocalAPIKey is the key to retrieve the authenticated API key from context
	LocalAPIKey = "api_key"
)

// TenantRepository interface for tenant lookup
type TenantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
}

// APIKeyRepository interface for API key lookup
type APIKeyRepository interface {
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
}

// AuthDependencies contains dependencies for API key authentication
type AuthDependencies struct {
	TenantRepo     TenantRepository
	APIKeyRepo     APIKeyRepository
	Logger         *slog.Logger
	LastUsedWorker *LastUsedWorker
}

// Auth creates an authentication middleware using API Key
func Auth(deps AuthDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := extractBearerToken(c)
		if apiKey == "" {
			return domain.ErrUnauthorized
		}

		// Reject malformed keys before touching the database.
		if !domain.IsValidFormat(apiKey) {
			return domain.ErrUnauthorized
		}

		hash := domain.HashAPIKey(apiKey)

		key, err := deps.APIKeyRepo.GetByHash(c.Context(), hash)
		if err != nil {
			// Don't reveal whether the API key exists or not.
			return domain.ErrUnauthorized
		}

		if !key.IsActive {
			return domain.ErrAPIKeyRevoked
		}

		// Public keys are read-only.
		if key.IsReadOnly() && c.Method() != fiber.MethodGet && c.Method() != fiber.MethodHead {
			return domain.ErrForbidden.WithMessage("Public API keys cannot modify resources")
		}

		tenant, err := deps.TenantRepo.GetByID(c.Context(), key.TenantID)
		if err != nil {
			return domain.ErrUnauthorized
		}

		if !tenant.IsActive {
			return domain.ErrUnauthorized
		}

		if deps.LastUsedWorker != nil {
			deps.LastUsedWorker.Enqueue(key.ID)
		}

		c.Locals(LocalTenantID, tenant.ID)
		c.Locals(LocalTenant, tenant)
		c.Locals(LocalAPIKey, key)

		return c.Next()
	}
}

// extractBearerToken extracts token from Authorization header
func extractBearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if auth == "" {
		return ""
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// GetTenantID retrieves tenant_id from Fiber context
func GetTenantID(c *fiber.Ctx) (uuid.UUID, error) {
	tenantID, ok := c.Locals(LocalTenantID).(uuid.UUID)
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return tenantID, nil
}

// GetTenant retrieves full tenant from Fiber context
func GetTenant(c *fiber.Ctx) (*domain.Tenant, error) {
	tenant, ok := c.Locals(LocalTenant).(*domain.Tenant)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return tenant, nil
}
