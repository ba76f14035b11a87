package admin

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/hooklinehq/hookline/internal/domain"
	"github.com/hooklinehq/hookline/internal/repository"
)

// APIKeysHandler exposes the operator surface for issuing and revoking
// tenant API keys.
type APIKeysHandler struct {
	keys    repository.APIKeyRepositoryInterface
	tenants repository.TenantRepositoryInterface
	logger  *slog.Logger
}

func NewAPIKeysHandler(keys repository.APIKeyRepositoryInterface, tenants repository.TenantRepositoryInterface, logger *slog.Logger) *APIKeysHandler {
	return &APIKeysHandler{
		keys:    keys,
		tenants: tenants,
		logger:  logger,
	}
}

type CreateAPIKeyRequest struct {
	Name        string `json:"name"`
	KeyType     string `json:"key_type"`
	Environment string `json:"environment"`
}

// List handles GET /admin/tenants/:id/keys
func (h *APIKeysHandler) List(c *fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid tenant ID")
	}

	keys, err := h.keys.ListByTenant(c.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to list api keys", "tenant_id", tenantID, "error", err)
		return domain.ErrInternal.WithError(err)
	}

	if keys == nil {
		keys = []domain.APIKey{}
	}

	return c.JSON(fiber.Map{
		"api_keys": keys,
	})
}

// Create handles POST /admin/tenants/:id/keys
func (h *APIKeysHandler) Create(c *fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid tenant ID")
	}

	var req CreateAPIKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid request body")
	}

	if req.KeyType == "" {
		req.KeyType = domain.KeyTypeSecret
	}
	if req.Environment == "" {
		req.Environment = domain.EnvLive
	}

	// The tenant must exist before a key is minted for it.
	tenant, err := h.tenants.GetByID(c.Context(), tenantID)
	if err != nil {
		return err
	}

	plainKey, hash, prefix, err := domain.GenerateAPIKey(req.KeyType, req.Environment)
	if err != nil {
		return domain.ErrValidationFailed.WithMessage(err.Error())
	}

	key := &domain.APIKey{
		ID:          uuid.New(),
		TenantID:    tenant.ID,
		Name:        req.Name,
		KeyHash:     hash,
		KeyPrefix:   prefix,
		Environment: req.Environment,
		IsActive:    true,
	}

	if err := key.Validate(); err != nil {
		return domain.ErrValidationFailed.WithMessage(err.Error())
	}

	if err := h.keys.Create(c.Context(), key); err != nil {
		h.logger.Error("failed to create api key", "tenant_id", tenantID, "error", err)
		return err
	}

	h.logger.Info("api key created",
		"api_key_id", key.ID,
		"tenant_id", tenant.ID,
		"key_prefix", key.KeyPrefix,
	)

	// The plain key is shown exactly once; only its hash is stored.
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"api_key": key,
		"key":     plainKey,
	})
}

// Revoke handles POST /admin/keys/:id/revoke
func (h *APIKeysHandler) Revoke(c *fiber.Ctx) error {
	keyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid API key ID")
	}

	if err := h.keys.Revoke(c.Context(), keyID); err != nil {
		return err
	}

	h.logger.Info("api key revoked", "api_key_id", keyID)

	return c.Status(fiber.StatusNoContent).Send(nil)
}

// Delete handles DELETE /admin/keys/:id
func (h *APIKeysHandler) Delete(c *fiber.Ctx) error {
	keyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid API key ID")
	}

	if err := h.keys.Delete(c.Context(), keyID); err != nil {
		return err
	}

	h.logger.Info("api key deleted", "api_key_id", keyID)

	return c.Status(fiber.StatusNoContent).Send(nil)
}
