// Package dispatch fans incoming events out to matching subscriptions and
// drives the delivery lifecycle: the Coordinator handles ingest plus the
// inline first attempt, the Sweeper picks up due retries.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hooklinehq/hookline/internal/delivery"
	"github.com/hooklinehq/hookline/internal/domain"
)

// TenantStore resolves the organization an event belongs to.
type TenantStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
}

// SubscriptionStore matches events against the registry and resolves targets
// for retries.
type SubscriptionStore interface {
	FindMatching(ctx context.Context, tenantID uuid.UUID, resource, event string) ([]domain.Subscription, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Subscription, error)
}

// DeliveryStore persists delivery records and their state transitions.
type DeliveryStore interface {
	Create(ctx context.Context, d *domain.Delivery) error
	MarkDelivering(ctx context.Context, id uuid.UUID, attempt int) error
	RecordSuccess(ctx context.Context, id uuid.UUID, httpStatus int, responseBody string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, httpStatus *int, responseBody, errMsg string, nextRetryAt time.Time) error
	RecordExhausted(ctx context.Context, id uuid.UUID, httpStatus *int, responseBody, errMsg string) error
	RecordFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Delivery, error)
}

// Executor performs one outbound attempt.
type Executor interface {
	Execute(ctx context.Context, target delivery.Target, payload []byte) delivery.Result
}

// DispatchResult reports what an ingest produced.
type DispatchResult struct {
	Matched     int         `json:"matched"`
	DeliveryIDs []uuid.UUID `json:"delivery_ids"`
	Note        string      `json:"note,omitempty"`
}

type Coordinator struct {
	tenants TenantStore
	subs    SubscriptionStore
	store   DeliveryStore
	exec    Executor
	logger  *slog.Logger

	strict       bool
	inlineBudget time.Duration
	sem          chan struct{}
}

// NewCoordinator wires the dispatch pipeline. inlineBudget caps how long an
// ingest call may spend on inline first attempts before outstanding ones are
// cut short and handed to the retry sweep; zero means no cap beyond the
// executor's own timeout.
func NewCoordinator(tenants TenantStore, subs SubscriptionStore, store DeliveryStore, exec Executor, logger *slog.Logger, strict bool, inlineBudget time.Duration, concurrency int) *Coordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Coordinator{
		tenants:      tenants,
		subs:         subs,
		store:        store,
		exec:         exec,
		logger:       logger,
		strict:       strict,
		inlineBudget: inlineBudget,
		sem:          make(chan struct{}, concurrency),
	}
}

// Dispatch validates the event, resolves its tenant, creates a delivery
// record per matching subscription and runs the first attempt for each. In
// strict mode an unresolvable or inactive tenant is an error; otherwise the
// event is accepted and dropped with a note.
func (c *Coordinator) Dispatch(ctx context.Context, event *domain.Event) (*DispatchResult, error) {
	if err := event.Validate(); err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	tenant, err := c.resolveTenant(ctx, event)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		c.logger.Warn("event dropped: organization not resolvable",
			"organization_id", event.TenantSlug,
			"resource", event.Resource,
			"operation", event.Operation,
		)
		return &DispatchResult{Note: "organization not found, event dropped"}, nil
	}

	event.TenantID = tenant.ID
	event.TenantSlug = tenant.Slug
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	matched, err := c.match(ctx, tenant.ID, event)
	if err != nil {
		return nil, err
	}

	if len(matched) == 0 {
		return &DispatchResult{}, nil
	}

	payload, err := delivery.BuildPayload(event)
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}

	result := &DispatchResult{Matched: len(matched)}

	// The inline wave shares one short deadline so a slow endpoint cannot
	// hold the write path for the full per-attempt timeout. A cut-short
	// attempt fails like any other and is rescheduled; persistence still runs
	// on the caller's context.
	execCtx := ctx
	if c.inlineBudget > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, c.inlineBudget)
		defer cancel()
	}

	var wg sync.WaitGroup
	for i := range matched {
		sub := matched[i]

		d := domain.NewDelivery(&sub, event, payload)
		if err := c.store.Create(ctx, d); err != nil {
			return nil, fmt.Errorf("create delivery record: %w", err)
		}
		result.DeliveryIDs = append(result.DeliveryIDs, d.ID)

		wg.Add(1)
		c.sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-c.sem }()
			c.attempt(ctx, execCtx, d, &sub)
		}()
	}
	wg.Wait()

	return result, nil
}

// resolveTenant prefers the authenticated tenant id and falls back to the
// organization slug carried in the event body. A nil tenant with a nil error
// means "drop quietly" (non-strict mode).
func (c *Coordinator) resolveTenant(ctx context.Context, event *domain.Event) (*domain.Tenant, error) {
	var tenant *domain.Tenant
	var err error

	switch {
	case event.TenantID != uuid.Nil:
		tenant, err = c.tenants.GetByID(ctx, event.TenantID)
	case event.TenantSlug != "":
		tenant, err = c.tenants.GetBySlug(ctx, event.TenantSlug)
	default:
		if c.strict {
			return nil, domain.ErrTenantNotFound
		}
		return nil, nil
	}

	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) && !c.strict {
			return nil, nil
		}
		return nil, err
	}

	if !tenant.IsActive {
		if c.strict || tenant.GetSettings().StrictIngest {
			return nil, domain.ErrTenantInactive
		}
		return nil, nil
	}

	return tenant, nil
}

// match runs the registry lookup once per name the event answers to and
// dedupes subscriptions that match under more than one.
func (c *Coordinator) match(ctx context.Context, tenantID uuid.UUID, event *domain.Event) ([]domain.Subscription, error) {
	seen := make(map[uuid.UUID]bool)
	var matched []domain.Subscription

	for _, name := range event.Names() {
		subs, err := c.subs.FindMatching(ctx, tenantID, event.Resource, name)
		if err != nil {
			return nil, fmt.Errorf("match subscriptions: %w", err)
		}
		for _, sub := range subs {
			if seen[sub.ID] {
				continue
			}
			seen[sub.ID] = true
			matched = append(matched, sub)
		}
	}

	return matched, nil
}

// Attempt claims the delivery, runs one outbound attempt and settles the
// outcome. Used by the sweeper for retries (which arrive already claimed,
// with Status == delivering) and run with no deadline beyond the executor's.
func (c *Coordinator) Attempt(ctx context.Context, d *domain.Delivery, sub *domain.Subscription) {
	c.attempt(ctx, ctx, d, sub)
}

// attempt separates the execution context from the persistence context: when
// the inline budget expires mid-flight, the outcome must still be recorded.
func (c *Coordinator) attempt(ctx, execCtx context.Context, d *domain.Delivery, sub *domain.Subscription) {
	if d.Status != domain.StatusDelivering {
		attempt := d.Attempt + 1
		if err := c.store.MarkDelivering(ctx, d.ID, attempt); err != nil {
			// Lost the claim race; someone else owns this attempt.
			c.logger.Debug("delivery claim lost", "delivery_id", d.ID, "error", err)
			return
		}
		d.Attempt = attempt
		d.Status = domain.StatusDelivering
	}

	if !sub.Enabled {
		c.settleFailed(ctx, d, "subscription disabled")
		return
	}

	target := delivery.Target{
		URL:         sub.URL,
		Secret:      sub.Secret,
		BearerToken: sub.BearerToken,
		EventName:   d.Event,
	}

	res := c.exec.Execute(execCtx, target, d.Payload)
	c.settle(ctx, d, res)
}

func (c *Coordinator) settle(ctx context.Context, d *domain.Delivery, res delivery.Result) {
	if res.OK() {
		if err := c.store.RecordSuccess(ctx, d.ID, res.StatusCode, res.Body); err != nil {
			c.logger.Error("record success", "delivery_id", d.ID, "error", err)
			return
		}
		c.logger.Info("delivery succeeded",
			"delivery_id", d.ID,
			"subscription_id", d.SubscriptionID,
			"event", d.Event,
			"attempt", d.Attempt,
			"status", res.StatusCode,
		)
		return
	}

	var httpStatus *int
	if res.StatusCode != 0 {
		status := res.StatusCode
		httpStatus = &status
	}

	if !d.AttemptsRemaining() {
		if err := c.store.RecordExhausted(ctx, d.ID, httpStatus, res.Body, res.ErrorMessage()); err != nil {
			c.logger.Error("record exhausted", "delivery_id", d.ID, "error", err)
			return
		}
		c.logger.Warn("delivery exhausted",
			"delivery_id", d.ID,
			"subscription_id", d.SubscriptionID,
			"event", d.Event,
			"attempts", d.Attempt,
			"error", res.ErrorMessage(),
		)
		return
	}

	nextRetryAt := time.Now().UTC().Add(d.Policy().Delay(d.Attempt))
	if err := c.store.ScheduleRetry(ctx, d.ID, httpStatus, res.Body, res.ErrorMessage(), nextRetryAt); err != nil {
		c.logger.Error("schedule retry", "delivery_id", d.ID, "error", err)
		return
	}
	c.logger.Info("delivery scheduled for retry",
		"delivery_id", d.ID,
		"subscription_id", d.SubscriptionID,
		"attempt", d.Attempt,
		"next_retry_at", nextRetryAt,
		"error", res.ErrorMessage(),
	)
}

func (c *Coordinator) settleFailed(ctx context.Context, d *domain.Delivery, reason string) {
	if err := c.store.RecordFailed(ctx, d.ID, reason); err != nil {
		c.logger.Error("record failed", "delivery_id", d.ID, "error", err)
		return
	}
	c.logger.Warn("delivery failed", "delivery_id", d.ID, "reason", reason)
}
