package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/hooklinehq/hookline/internal/api/middleware"
	"github.com/hooklinehq/hookline/internal/domain"
	"github.com/hooklinehq/hookline/internal/repository"
)

type LogsHandler struct {
	repo   repository.DeliveryRepositoryInterface
	logger *slog.Logger
}

func NewLogsHandler(repo repository.DeliveryRepositoryInterface, logger *slog.Logger) *LogsHandler {
	return &LogsHandler{
		repo:   repo,
		logger: logger,
	}
}

// List handles GET /v1/webhooks/logs
func (h *LogsHandler) List(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	filter := repository.DeliveryFilter{
		Status: domain.Status(c.Query("status")),
		Event:  c.Query("event"),
	}

	if raw := c.Query("subscription_id"); raw != "" {
		subID, err := uuid.Parse(raw)
		if err != nil {
			return domain.ErrBadRequest.WithMessage("Invalid subscription_id filter")
		}
		filter.SubscriptionID = subID
	}

	if filter.Status != "" {
		if err := filter.Status.Validate(); err != nil {
			return domain.ErrBadRequest.WithMessage("Invalid status filter")
		}
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	deliveries, err := h.repo.ListByTenant(c.Context(), tenantID, filter, limit, offset)
	if err != nil {
		h.logger.Error("failed to list deliveries", "tenant_id", tenantID, "error", err)
		return domain.ErrInternal.WithError(err)
	}

	if deliveries == nil {
		deliveries = []domain.Delivery{}
	}

	return c.JSON(fiber.Map{
		"deliveries": deliveries,
	})
}

// Get handles GET /v1/webhooks/logs/:id
func (h *LogsHandler) Get(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	deliveryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid delivery ID")
	}

	d, err := h.repo.GetByID(c.Context(), tenantID, deliveryID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"delivery": d,
	})
}
