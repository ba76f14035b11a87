package handler

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/hooklinehq/hookline/internal/api/middleware"
	"github.com/hooklinehq/hookline/internal/dispatch"
	"github.com/hooklinehq/hookline/internal/domain"
	"github.com/hooklinehq/hookline/internal/repository"
)

// MockSubscriptionRepo is a mock implementation of SubscriptionRepositoryInterface
type MockSubscriptionRepo struct {
	mock.Mock
}

func (m *MockSubscriptionRepo) Create(ctx context.Context, sub *domain.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Subscription, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]domain.Subscription, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepo) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

func (m *MockSubscriptionRepo) FindMatching(ctx context.Context, tenantID uuid.UUID, resource, event string) ([]domain.Subscription, error) {
	args := m.Called(ctx, tenantID, resource, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepo) Update(ctx context.Context, sub *domain.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockDeliveryRepo is a mock implementation of DeliveryRepositoryInterface
type MockDeliveryRepo struct {
	mock.Mock
}

func (m *MockDeliveryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDeliveryRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Delivery, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Delivery), args.Error(1)
}

func (m *MockDeliveryRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, filter repository.DeliveryFilter, limit, offset int) ([]domain.Delivery, error) {
	args := m.Called(ctx, tenantID, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Delivery), args.Error(1)
}

func (m *MockDeliveryRepo) MarkDelivering(ctx context.Context, id uuid.UUID, attempt int) error {
	args := m.Called(ctx, id, attempt)
	return args.Error(0)
}

func (m *MockDeliveryRepo) RecordSuccess(ctx context.Context, id uuid.UUID, httpStatus int, responseBody string) error {
	args := m.Called(ctx, id, httpStatus, responseBody)
	return args.Error(0)
}

func (m *MockDeliveryRepo) ScheduleRetry(ctx context.Context, id uuid.UUID, httpStatus *int, responseBody, errMsg string, nextRetryAt time.Time) error {
	args := m.Called(ctx, id, httpStatus, responseBody, errMsg, nextRetryAt)
	return args.Error(0)
}

func (m *MockDeliveryRepo) RecordExhausted(ctx context.Context, id uuid.UUID, httpStatus *int, responseBody, errMsg string) error {
	args := m.Called(ctx, id, httpStatus, responseBody, errMsg)
	return args.Error(0)
}

func (m *MockDeliveryRepo) RecordFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0)
}

func (m *MockDeliveryRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Delivery, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Delivery), args.Error(1)
}

// MockDispatcher is a mock implementation of Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, event *domain.Event) (*dispatch.DispatchResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispatch.DispatchResult), args.Error(1)
}

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestApp builds an app with a simulated authenticated tenant.
func createTestApp(tenant *domain.Tenant) *fiber.App {
	app := fiber.New()

	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalTenantID, tenant.ID)
		c.Locals(middleware.LocalTenant, tenant)
		return c.Next()
	})

	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		if err != nil {
			if appErr, ok := err.(*domain.AppError); ok {
				return c.Status(appErr.StatusCode).JSON(appErr)
			}
			return c.Status(500).SendString(err.Error())
		}
		return nil
	})

	return app
}

func activeTenant() *domain.Tenant {
	return &domain.Tenant{
		ID:       uuid.New(),
		Name:     "Acme School",
		Slug:     "acme",
		IsActive: true,
		Settings: map[string]interface{}{
			"max_subscriptions": float64(3),
		},
	}
}
