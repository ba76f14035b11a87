package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hooklinehq/hookline/internal/api/middleware"
	"github.com/hooklinehq/hookline/internal/dispatch"
	"github.com/hooklinehq/hookline/internal/domain"
)

// Dispatcher fans an accepted event out to matching subscriptions.
type Dispatcher interface {
	Dispatch(ctx context.Context, event *domain.Event) (*dispatch.DispatchResult, error)
}

type IngestHandler struct {
	coordinator Dispatcher
	logger      *slog.Logger
}

func NewIngestHandler(coordinator Dispatcher, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{
		coordinator: coordinator,
		logger:      logger,
	}
}

type IngestRequest struct {
	Event          string                 `json:"event"`
	Table          string                 `json:"table"`
	Operation      string                 `json:"operation"`
	Record         map[string]interface{} `json:"record"`
	OldRecord      map[string]interface{} `json:"old_record"`
	OrganizationID string                 `json:"organization_id"`
	Timestamp      *time.Time             `json:"timestamp"`
}

// Ingest handles POST /v1/webhooks/ingest. The event is always attributed
// to the authenticated tenant; a mismatched organization_id in the body is
// rejected rather than honored.
func (h *IngestHandler) Ingest(c *fiber.Ctx) error {
	tenant, err := middleware.GetTenant(c)
	if err != nil {
		return err
	}

	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid request body")
	}

	if req.OrganizationID != "" && req.OrganizationID != tenant.Slug {
		return domain.ErrForbidden.WithMessage("organization_id does not match the authenticated organization")
	}

	event := &domain.Event{
		TenantID:   tenant.ID,
		TenantSlug: tenant.Slug,
		Name:       req.Event,
		Resource:   req.Table,
		Operation:  req.Operation,
		Record:     req.Record,
		OldRecord:  req.OldRecord,
	}
	if req.Timestamp != nil {
		event.OccurredAt = *req.Timestamp
	}

	result, err := h.coordinator.Dispatch(c.Context(), event)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(result)
}
