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

type SubscriptionRepository struct {
	pool PgxPool
}

func NewSubscriptionRepository(pool PgxPool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

const subscriptionColumns = `id, tenant_id, name, url, secret, bearer_token, resources, events, enabled,
		       max_attempts, initial_delay_ms, backoff_factor, created_at, updated_at`

func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, tenant_id, name, url, secret, bearer_token, resources, events, enabled,
		                           max_attempts, initial_delay_ms, backoff_factor, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		sub.ID,
		sub.TenantID,
		sub.Name,
		sub.URL,
		sub.Secret,
		sub.BearerToken,
		sub.Resources,
		sub.Events,
		sub.Enabled,
		sub.RetryPolicy.MaxAttempts,
		sub.RetryPolicy.InitialDelay.Milliseconds(),
		sub.RetryPolicy.BackoffFactor,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return &domain.AppError{
				Code:       "SUBSCRIPTION_ALREADY_EXISTS",
				Message:    "Subscription with this id already exists",
				StatusCode: 409,
			}
		}
		return fmt.Errorf("create subscription: %w", err)
	}

	return nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE tenant_id = $1 AND id = $2
	`

	row := r.pool.QueryRow(ctx, query, tenantID, id)
	sub, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription by id: %w", err)
	}

	return sub, nil
}

func (r *SubscriptionRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions by tenant: %w", err)
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

func (r *SubscriptionRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM subscriptions
		WHERE tenant_id = $1
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count subscriptions by tenant: %w", err)
	}

	return count, nil
}

// FindMatching returns the enabled subscriptions whose interest sets contain
// the resource/event pair. Containment on jsonb arrays means empty sets never
// match.
func (r *SubscriptionRepository) FindMatching(ctx context.Context, tenantID uuid.UUID, resource, event string) ([]domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE tenant_id = $1
		  AND enabled = true
		  AND resources @> $2
		  AND events @> $3
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, tenantID, []string{resource}, []string{event})
	if err != nil {
		return nil, fmt.Errorf("find matching subscriptions: %w", err)
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

func (r *SubscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	query := `
		UPDATE subscriptions
		SET name = $3, url = $4, secret = $5, bearer_token = $6, resources = $7, events = $8, enabled = $9,
		    max_attempts = $10, initial_delay_ms = $11, backoff_factor = $12, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		sub.TenantID,
		sub.ID,
		sub.Name,
		sub.URL,
		sub.Secret,
		sub.BearerToken,
		sub.Resources,
		sub.Events,
		sub.Enabled,
		sub.RetryPolicy.MaxAttempts,
		sub.RetryPolicy.InitialDelay.Milliseconds(),
		sub.RetryPolicy.BackoffFactor,
	).Scan(&sub.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	return nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `
		DELETE FROM subscriptions
		WHERE tenant_id = $1 AND id = $2
	`

	result, err := r.pool.Exec(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrSubscriptionNotFound
	}

	return nil
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var sub domain.Subscription
	var initialDelayMS int64

	err := row.Scan(
		&sub.ID,
		&sub.TenantID,
		&sub.Name,
		&sub.URL,
		&sub.Secret,
		&sub.BearerToken,
		&sub.Resources,
		&sub.Events,
		&sub.Enabled,
		&sub.RetryPolicy.MaxAttempts,
		&initialDelayMS,
		&sub.RetryPolicy.BackoffFactor,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.RetryPolicy.InitialDelay = time.Duration(initialDelayMS) * time.Millisecond
	return &sub, nil
}

func collectSubscriptions(rows pgx.Rows) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return subs, nil
}
