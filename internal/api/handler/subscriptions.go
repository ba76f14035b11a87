package handler

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/hooklinehq/hookline/internal/api/middleware"
	"github.com/hooklinehq/hookline/internal/domain"
	"github.com/hooklinehq/hookline/internal/repository"
	"github.com/hooklinehq/hookline/internal/signature"
)

type SubscriptionsHandler struct {
	repo          repository.SubscriptionRepositoryInterface
	defaultPolicy domain.RetryPolicy
	logger        *slog.Logger
}

func NewSubscriptionsHandler(repo repository.SubscriptionRepositoryInterface, defaultPolicy domain.RetryPolicy, logger *slog.Logger) *SubscriptionsHandler {
	return &SubscriptionsHandler{
		repo:          repo,
		defaultPolicy: defaultPolicy,
		logger:        logger,
	}
}

type RetryPolicyRequest struct {
	MaxAttempts    *int     `json:"max_attempts"`
	InitialDelayMS *int64   `json:"initial_delay_ms"`
	BackoffFactor  *float64 `json:"backoff_factor"`
}

type CreateSubscriptionRequest struct {
	Name        string              `json:"name"`
	URL         string              `json:"url"`
	Secret      string              `json:"secret"`
	BearerToken string              `json:"bearer_token"`
	Resources   []string            `json:"resources"`
	Events      []string            `json:"events"`
	Enabled     *bool               `json:"enabled"`
	RetryPolicy *RetryPolicyRequest `json:"retry_policy"`
}

type UpdateSubscriptionRequest struct {
	Name        *string             `json:"name"`
	URL         *string             `json:"url"`
	Secret      *string             `json:"secret"`
	BearerToken *string             `json:"bearer_token"`
	Resources   []string            `json:"resources"`
	Events      []string            `json:"events"`
	Enabled     *bool               `json:"enabled"`
	RetryPolicy *RetryPolicyRequest `json:"retry_policy"`
}

// List handles GET /v1/subscriptions
func (h *SubscriptionsHandler) List(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	subs, err := h.repo.ListByTenant(c.Context(), tenantID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list subscriptions", "tenant_id", tenantID, "error", err)
		return domain.ErrInternal.WithError(err)
	}

	if subs == nil {
		subs = []domain.Subscription{}
	}

	return c.JSON(fiber.Map{
		"subscriptions": subs,
	})
}

// Get handles GET /v1/subscriptions/:id
func (h *SubscriptionsHandler) Get(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	subID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid subscription ID")
	}

	sub, err := h.repo.GetByID(c.Context(), tenantID, subID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"subscription": sub,
	})
}

// Create handles POST /v1/subscriptions
func (h *SubscriptionsHandler) Create(c *fiber.Ctx) error {
	tenant, err := middleware.GetTenant(c)
	if err != nil {
		return err
	}

	var req CreateSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid request body")
	}

	count, err := h.repo.CountByTenant(c.Context(), tenant.ID)
	if err != nil {
		h.logger.Error("failed to count subscriptions", "tenant_id", tenant.ID, "error", err)
		return domain.ErrInternal.WithError(err)
	}
	if count >= tenant.GetSettings().MaxSubscriptions {
		return domain.ErrForbidden.WithMessage("Subscription limit reached for this organization")
	}

	// A caller-supplied secret is kept as-is; one is generated otherwise.
	secret := req.Secret
	if secret == "" {
		secret, err = signature.GenerateSecret(32)
		if err != nil {
			h.logger.Error("failed to generate signing secret", "error", err)
			return domain.ErrInternal.WithError(err)
		}
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	sub := &domain.Subscription{
		TenantID:    tenant.ID,
		Name:        req.Name,
		URL:         req.URL,
		Secret:      secret,
		BearerToken: req.BearerToken,
		Resources:   req.Resources,
		Events:      req.Events,
		Enabled:     enabled,
		RetryPolicy: applyRetryPolicy(h.defaultPolicy, req.RetryPolicy),
	}

	if err := sub.Validate(); err != nil {
		return domain.ErrValidationFailed.WithMessage(err.Error())
	}

	if err := h.repo.Create(c.Context(), sub); err != nil {
		h.logger.Error("failed to create subscription", "tenant_id", tenant.ID, "error", err)
		return err
	}

	h.logger.Info("subscription created",
		"subscription_id", sub.ID,
		"tenant_id", tenant.ID,
		"name", sub.Name,
	)

	// The signing secret is returned exactly once, at creation.
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"subscription": sub,
		"secret":       secret,
	})
}

// Update handles PATCH /v1/subscriptions/:id
func (h *SubscriptionsHandler) Update(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	subID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid subscription ID")
	}

	var req UpdateSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid request body")
	}

	sub, err := h.repo.GetByID(c.Context(), tenantID, subID)
	if err != nil {
		return err
	}

	if req.Name != nil {
		sub.Name = *req.Name
	}
	if req.URL != nil {
		sub.URL = *req.URL
	}
	if req.Secret != nil && *req.Secret != "" {
		// Secret rotation: in-flight retries re-sign with the new secret on
		// their next attempt.
		sub.Secret = *req.Secret
	}
	if req.BearerToken != nil {
		sub.BearerToken = *req.BearerToken
	}
	if req.Resources != nil {
		sub.Resources = req.Resources
	}
	if req.Events != nil {
		sub.Events = req.Events
	}
	if req.Enabled != nil {
		sub.Enabled = *req.Enabled
	}
	sub.RetryPolicy = applyRetryPolicy(sub.RetryPolicy, req.RetryPolicy)

	if err := sub.Validate(); err != nil {
		return domain.ErrValidationFailed.WithMessage(err.Error())
	}

	if err := h.repo.Update(c.Context(), sub); err != nil {
		h.logger.Error("failed to update subscription",
			"subscription_id", subID,
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}

	return c.JSON(fiber.Map{
		"subscription": sub,
	})
}

// Delete handles DELETE /v1/subscriptions/:id. Delivery records for the
// subscription survive as history; only future matching stops.
func (h *SubscriptionsHandler) Delete(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	subID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrBadRequest.WithMessage("Invalid subscription ID")
	}

	if err := h.repo.Delete(c.Context(), tenantID, subID); err != nil {
		return err
	}

	h.logger.Info("subscription deleted",
		"subscription_id", subID,
		"tenant_id", tenantID,
	)

	return c.Status(fiber.StatusNoContent).Send(nil)
}

func applyRetryPolicy(base domain.RetryPolicy, req *RetryPolicyRequest) domain.RetryPolicy {
	if req == nil {
		return base
	}
	if req.MaxAttempts != nil {
		base.MaxAttempts = *req.MaxAttempts
	}
	if req.InitialDelayMS != nil {
		base.InitialDelay = time.Duration(*req.InitialDelayMS) * time.Millisecond
	}
	if req.BackoffFactor != nil {
		base.BackoffFactor = *req.BackoffFactor
	}
	return base
}
