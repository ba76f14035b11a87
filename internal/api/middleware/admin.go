package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/hooklinehq/hookline/internal/admin"
	"github.com/hooklinehq/hookline/internal/domain"
)

const (
	// LocalAdminUser is the key to retrieve the operator user from context
	LocalAdminUser = "admin_user"
	// LocalAdminRole is the key to retrieve the operator role from context
	LocalAdminRole = "admin_role"
)

// AdminAuthDependencies contains dependencies for operator authentication
type AdminAuthDependencies struct {
	JWTService *admin.JWTService
	Logger     *slog.Logger
}

// AdminAuth creates a JWT authentication middleware for the operator surface
func AdminAuth(deps AdminAuthDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			deps.Logger.Debug("missing authorization header for operator endpoint")
			return domain.ErrUnauthorized
		}

		claims, err := deps.JWTService.ValidateToken(token)
		if err != nil {
			deps.Logger.Warn("invalid JWT token", "error", err)
			return domain.ErrUnauthorized
		}

		if claims.Role != "operator" {
			deps.Logger.Warn("insufficient privileges", "role", claims.Role, "required", "operator")
			return domain.ErrForbidden
		}

		c.Locals(LocalAdminUser, claims.UserID)
		c.Locals(LocalAdminRole, claims.Role)

		return c.Next()
	}
}

// GetAdminUserID retrieves the operator user ID from context
func GetAdminUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := c.Locals(LocalAdminUser).(uuid.UUID)
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return userID, nil
}
