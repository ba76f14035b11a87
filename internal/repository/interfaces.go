package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hooklinehq/hookline/internal/domain"
)

// TenantRepositoryInterface defines operations for tenant data access
type TenantRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	GetByAPIKeyHash(ctx context.Context, hash string) (*domain.Tenant, error)
	List(ctx context.Context, limit, offset int) ([]domain.Tenant, error)
	Create(ctx context.Context, tenant *domain.Tenant) error
	Update(ctx context.Context, tenant *domain.Tenant) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// APIKeyRepositoryInterface defines operations for API key data access
type APIKeyRepositoryInterface interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.APIKey, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.APIKey, error)
	UpdateLastUsed(ctx context.Context, id uuid.UUID) error
	Revoke(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SubscriptionRepositoryInterface defines operations for subscription data access
type SubscriptionRepositoryInterface interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Subscription, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]domain.Subscription, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error)
	FindMatching(ctx context.Context, tenantID uuid.UUID, resource, event string) ([]domain.Subscription, error)
	Update(ctx context.Context, sub *domain.Subscription) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// DeliveryFilter narrows ListByTenant results.
type DeliveryFilter struct {
	Status         domain.Status
	Event          string
	SubscriptionID uuid.UUID
}

// DeliveryRepositoryInterface defines operations for delivery log data access
type DeliveryRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Delivery) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Delivery, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, filter DeliveryFilter, limit, offset int) ([]domain.Delivery, error)
	MarkDelivering(ctx context.Context, id uuid.UUID, attempt int) error
	RecordSuccess(ctx context.Context, id uuid.UUID, httpStatus int, responseBody string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, httpStatus *int, responseBody, errMsg string, nextRetryAt time.Time) error
	RecordExhausted(ctx context.Context, id uuid.UUID, httpStatus *int, responseBody, errMsg string) error
	RecordFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Delivery, error)
}
