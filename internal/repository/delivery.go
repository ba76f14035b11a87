package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hooklinehq/hookline/internal/domain"
)

type DeliveryRepository struct {
	pool PgxPool
}

func NewDeliveryRepository(pool PgxPool) *DeliveryRepository {
	return &DeliveryRepository{pool: pool}
}

const deliveryColumns = `id, subscription_id, tenant_id, event, resource, operation, record_id, payload,
		       status, http_status, response_body, error, attempt, max_attempts,
		       initial_delay_ms, backoff_factor, next_retry_at, created_at, updated_at`

func (r *DeliveryRepository) Create(ctx context.Context, d *domain.Delivery) error {
	query := `
		INSERT INTO deliveries (id, subscription_id, tenant_id, event, resource, operation, record_id, payload,
		                        status, attempt, max_attempts, initial_delay_ms, backoff_factor, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		d.ID,
		d.SubscriptionID,
		d.TenantID,
		d.Event,
		d.Resource,
		d.Operation,
		d.RecordID,
		d.Payload,
		d.Status,
		d.Attempt,
		d.MaxAttempts,
		d.InitialDelay.Milliseconds(),
		d.BackoffFactor,
	).Scan(&d.CreatedAt, &d.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create delivery: %w", err)
	}

	return nil
}

func (r *DeliveryRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries
		WHERE tenant_id = $1 AND id = $2
	`

	row := r.pool.QueryRow(ctx, query, tenantID, id)
	d, err := scanDelivery(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDeliveryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery by id: %w", err)
	}

	return d, nil
}

func (r *DeliveryRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, filter DeliveryFilter, limit, offset int) ([]domain.Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries
		WHERE tenant_id = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR event = $3)
		  AND ($4::uuid IS NULL OR subscription_id = $4)
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6
	`

	var subID *uuid.UUID
	if filter.SubscriptionID != uuid.Nil {
		subID = &filter.SubscriptionID
	}

	rows, err := r.pool.Query(ctx, query, tenantID, string(filter.Status), filter.Event, subID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list deliveries by tenant: %w", err)
	}
	defer rows.Close()

	return collectDeliveries(rows)
}

// MarkDelivering claims a pending delivery for an inline first attempt. The
// status guard makes the claim atomic: a concurrent sweeper loses the race and
// sees zero rows.
func (r *DeliveryRepository) MarkDelivering(ctx context.Context, id uuid.UUID, attempt int) error {
	query := `
		UPDATE deliveries
		SET status = $2, attempt = $3, updated_at = NOW()
		WHERE id = $1 AND status IN ($4, $5)
	`

	result, err := r.pool.Exec(ctx, query, id,
		domain.StatusDelivering, attempt, domain.StatusPending, domain.StatusRetrying)
	if err != nil {
		return fmt.Errorf("mark delivering: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrDeliveryNotFound
	}

	return nil
}

func (r *DeliveryRepository) RecordSuccess(ctx context.Context, id uuid.UUID, httpStatus int, responseBody string) error {
	query := `
		UPDATE deliveries
		SET status = $2, http_status = $3, response_body = $4, error = NULL, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $5
	`

	result, err := r.pool.Exec(ctx, query, id,
		domain.StatusSuccess, httpStatus, responseBody, domain.StatusDelivering)
	if err != nil {
		return fmt.Errorf("record success: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrDeliveryNotFound
	}

	return nil
}

func (r *DeliveryRepository) ScheduleRetry(ctx context.Context, id uuid.UUID, httpStatus *int, responseBody, errMsg string, nextRetryAt time.Time) error {
	query := `
		UPDATE deliveries
		SET status = $2, http_status = $3, response_body = $4, error = $5, next_retry_at = $6, updated_at = NOW()
		WHERE id = $1 AND status = $7
	`

	result, err := r.pool.Exec(ctx, query, id,
		domain.StatusRetrying, httpStatus, responseBody, errMsg, nextRetryAt, domain.StatusDelivering)
	if err != nil {
		return fmt.Errorf("schedule retry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrDeliveryNotFound
	}

	return nil
}

func (r *DeliveryRepository) RecordExhausted(ctx context.Context, id uuid.UUID, httpStatus *int, responseBody, errMsg string) error {
	query := `
		UPDATE deliveries
		SET status = $2, http_status = $3, response_body = $4, error = $5, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $6
	`

	result, err := r.pool.Exec(ctx, query, id,
		domain.StatusExhausted, httpStatus, responseBody, errMsg, domain.StatusDelivering)
	if err != nil {
		return fmt.Errorf("record exhausted: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrDeliveryNotFound
	}

	return nil
}

// RecordFailed marks a delivery terminally failed for non-retryable reasons,
// e.g. the subscription was deleted between attempts.
func (r *DeliveryRepository) RecordFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	query := `
		UPDATE deliveries
		SET status = $2, error = $3, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($4, $5, $6)
	`

	result, err := r.pool.Exec(ctx, query, id,
		domain.StatusFailed, errMsg,
		domain.StatusSuccess, domain.StatusExhausted, domain.StatusFailed)
	if err != nil {
		return fmt.Errorf("record failed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrDeliveryNotFound
	}

	return nil
}

// ClaimDue atomically claims due retries across all tenants. FOR UPDATE SKIP
// LOCKED lets concurrent sweepers partition the backlog instead of blocking
// on each other, and the transition to delivering makes each claim exclusive.
// The attempt counter advances as part of the claim.
func (r *DeliveryRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Delivery, error) {
	query := `
		WITH due AS (
			SELECT id
			FROM deliveries
			WHERE status = $1 AND next_retry_at <= $2
			ORDER BY next_retry_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		UPDATE deliveries d
		SET status = $4, attempt = d.attempt + 1, updated_at = NOW()
		FROM due
		WHERE d.id = due.id
		RETURNING ` + deliveryColumnsQualified

	rows, err := r.pool.Query(ctx, query,
		domain.StatusRetrying, now, limit, domain.StatusDelivering)
	if err != nil {
		return nil, fmt.Errorf("claim due deliveries: %w", err)
	}
	defer rows.Close()

	return collectDeliveries(rows)
}

const deliveryColumnsQualified = `d.id, d.subscription_id, d.tenant_id, d.event, d.resource, d.operation, d.record_id, d.payload,
		       d.status, d.http_status, d.response_body, d.error, d.attempt, d.max_attempts,
		       d.initial_delay_ms, d.backoff_factor, d.next_retry_at, d.created_at, d.updated_at`

func scanDelivery(row pgx.Row) (*domain.Delivery, error) {
	var d domain.Delivery
	var initialDelayMS int64

	err := row.Scan(
		&d.ID,
		&d.SubscriptionID,
		&d.TenantID,
		&d.Event,
		&d.Resource,
		&d.Operation,
		&d.RecordID,
		&d.Payload,
		&d.Status,
		&d.HTTPStatus,
		&d.ResponseBody,
		&d.Error,
		&d.Attempt,
		&d.MaxAttempts,
		&initialDelayMS,
		&d.BackoffFactor,
		&d.NextRetryAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.InitialDelay = time.Duration(initialDelayMS) * time.Millisecond
	return &d, nil
}

func collectDeliveries(rows pgx.Rows) ([]domain.Delivery, error) {
	var deliveries []domain.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		deliveries = append(deliveries, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return deliveries, nil
}
