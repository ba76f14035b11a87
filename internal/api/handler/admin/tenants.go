package admin

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/hooklinehq/hookline/internal/domain"
	"github.com/hooklinehq/hookline/internal/repository"
)

// TenantsHandler exposes the operator surface for managing organizations.
type TenantsHandler struct {
	repo   repository.TenantRepositoryInterface
	logger *slog.Logger
}

func NewTenantsHandler(repo repository.TenantRepositoryInterface, logger *slog.Logger) *TenantsHandler {
	return &TenantsHandler{
		repo:   repo,
		logger: logger,
	}
}

type CreateTenantRequest struct {
	Name     string                 `json:"name"`
	Slug     string                 `json:"slug"`
	Settings map[string]interface{} `json:"settings"`
}

type UpdateTenantRequest struct {
	Name     *string                `json:"name"`
	Slug     *string                `json:"slug"`
	IsActive *bool                  `json:"is_active"`
	Settings map[string]interface{} `json:"settings"`
}

// List handles GET /admin/tenants
func (h *TenantsHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	tenants, err := h.repo.List(c.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list tenants", "error", err)
		return domain.ErrInternal.WithError(err)
	}

	if tenants == nil {
		tenants = []domain.Tenant{}
	}

	return c.JSON(fiber.Map{
		"tenants": tenants,
	})
}

// Get handles GET /admin/tenants/:id
func (h *TenantsHandler) Get(c *fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid tenant ID")
	}

	tenant, err := h.repo.GetByID(c.Context(), tenantID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"tenant": tenant,
	})
}

// Create handles POST /admin/tenants
func (h *TenantsHandler) Create(c *fiber.Ctx) error {
	var req CreateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid request body")
	}

	tenant := &domain.Tenant{
		Name:     req.Name,
		Slug:     req.Slug,
		IsActive: true,
		Settings: req.Settings,
	}

	if err := tenant.Validate(); err != nil {
		return domain.ErrValidationFailed.WithMessage(err.Error())
	}

	if err := h.repo.Create(c.Context(), tenant); err != nil {
		h.logger.Error("failed to create tenant", "slug", req.Slug, "error", err)
		return err
	}

	h.logger.Info("tenant created", "tenant_id", tenant.ID, "slug", tenant.Slug)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"tenant": tenant,
	})
}

// Update handles PATCH /admin/tenants/:id
func (h *TenantsHandler) Update(c *fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid tenant ID")
	}

	var req UpdateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid request body")
	}

	tenant, err := h.repo.GetByID(c.Context(), tenantID)
	if err != nil {
		return err
	}

	if req.Name != nil {
		tenant.Name = *req.Name
	}
	if req.Slug != nil {
		tenant.Slug = *req.Slug
	}
	if req.IsActive != nil {
		tenant.IsActive = *req.IsActive
	}
	if req.Settings != nil {
		tenant.Settings = req.Settings
	}

	if err := tenant.Validate(); err != nil {
		return domain.ErrValidationFailed.WithMessage(err.Error())
	}

	if err := h.repo.Update(c.Context(), tenant); err != nil {
		h.logger.Error("failed to update tenant", "tenant_id", tenantID, "error", err)
		return err
	}

	return c.JSON(fiber.Map{
		"tenant": tenant,
	})
}

// Delete handles DELETE /admin/tenants/:id. Subscriptions, API keys and
// delivery history go with the tenant via cascading deletes.
func (h *TenantsHandler) Delete(c *fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid tenant ID")
	}

	if err := h.repo.Delete(c.Context(), tenantID); err != nil {
		return err
	}

	h.logger.Info("tenant deleted", "tenant_id", tenantID)

	return c.Status(fiber.StatusNoContent).Send(nil)
}
