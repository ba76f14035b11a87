//go:build integration

package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hooklinehq/hookline/internal/delivery"
	"github.com/hooklinehq/hookline/internal/domain"
	"github.com/hooklinehq/hookline/internal/repository"
	"github.com/hooklinehq/hookline/internal/signature"
)

func setupIntegrationTest(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "hookline_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/hookline_test?sslmode=disable", host, port.Port())

	db, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	_, err = db.Exec(ctx, `
		CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

		CREATE TABLE IF NOT EXISTS tenants (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name VARCHAR(255) NOT NULL,
			slug VARCHAR(255) NOT NULL UNIQUE,
			is_active BOOLEAN NOT NULL DEFAULT true,
			settings JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS subscriptions (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			url TEXT NOT NULL,
			secret TEXT NOT NULL DEFAULT '',
			bearer_token TEXT NOT NULL DEFAULT '',
			resources JSONB NOT NULL DEFAULT '[]',
			events JSONB NOT NULL DEFAULT '[]',
			enabled BOOLEAN NOT NULL DEFAULT true,
			max_attempts INTEGER NOT NULL DEFAULT 5,
			initial_delay_ms BIGINT NOT NULL DEFAULT 30000,
			backoff_factor DOUBLE PRECISION NOT NULL DEFAULT 2.0,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS deliveries (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			subscription_id UUID NOT NULL,
			tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			event VARCHAR(255) NOT NULL,
			resource VARCHAR(255) NOT NULL,
			operation VARCHAR(32) NOT NULL,
			record_id VARCHAR(255) NOT NULL DEFAULT '',
			payload JSONB NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			http_status INTEGER,
			response_body TEXT,
			error TEXT,
			attempt INTEGER NOT NULL DEFAULT 0,
			max_attempts INTEGER NOT NULL,
			initial_delay_ms BIGINT NOT NULL,
			backoff_factor DOUBLE PRECISION NOT NULL,
			next_retry_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_deliveries_due ON deliveries(next_retry_at) WHERE status = 'retrying';
	`)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

type integrationEnv struct {
	db          *pgxpool.Pool
	tenants     *repository.TenantRepository
	subs        *repository.SubscriptionRepository
	deliveries  *repository.DeliveryRepository
	coordinator *Coordinator
	sweeper     *Sweeper
}

func newIntegrationEnv(t *testing.T, db *pgxpool.Pool) *integrationEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tenants := repository.NewTenantRepository(db)
	subs := repository.NewSubscriptionRepository(db)
	deliveries := repository.NewDeliveryRepository(db)

	exec := delivery.NewExecutor(5 * time.Second)
	coordinator := NewCoordinator(tenants, subs, deliveries, exec, logger, false, 5*time.Second, 4)
	sweeper := NewSweeper(coordinator, deliveries, subs, logger, time.Minute, 10, 2)

	return &integrationEnv{
		db:          db,
		tenants:     tenants,
		subs:        subs,
		deliveries:  deliveries,
		coordinator: coordinator,
		sweeper:     sweeper,
	}
}

func (e *integrationEnv) createTenant(t *testing.T, slug string) *domain.Tenant {
	t.Helper()
	tenant := &domain.Tenant{Name: slug, Slug: slug, IsActive: true}
	require.NoError(t, e.tenants.Create(context.Background(), tenant))
	return tenant
}

func (e *integrationEnv) createSubscription(t *testing.T, tenantID uuid.UUID, url string, maxAttempts int) *domain.Subscription {
	t.Helper()
	secret, err := signature.GenerateSecret(32)
	require.NoError(t, err)

	sub := &domain.Subscription{
		TenantID:  tenantID,
		Name:      "integration hook",
		URL:       url,
		Secret:    secret,
		Resources: []string{"students"},
		Events:    []string{"students.insert"},
		Enabled:   true,
		RetryPolicy: domain.RetryPolicy{
			MaxAttempts:   maxAttempts,
			InitialDelay:  time.Second,
			BackoffFactor: 2,
		},
	}
	require.NoError(t, e.subs.Create(context.Background(), sub))
	return sub
}

// forceDue backdates a retrying delivery so the sweeper picks it up now.
func (e *integrationEnv) forceDue(t *testing.T, deliveryID uuid.UUID) {
	t.Helper()
	_, err := e.db.Exec(context.Background(),
		`UPDATE deliveries SET next_retry_at = NOW() - INTERVAL '1 minute' WHERE id = $1`,
		deliveryID,
	)
	require.NoError(t, err)
}

func studentEvent(tenantID uuid.UUID) *domain.Event {
	return &domain.Event{
		TenantID:  tenantID,
		Resource:  "students",
		Operation: domain.OpInsert,
		Record:    map[string]interface{}{"id": "stu_1", "name": "Ana"},
	}
}

func TestDispatch_Integration_SuccessfulDelivery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	env := newIntegrationEnv(t, db)
	ctx := context.Background()

	var gotSignature string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tenant := env.createTenant(t, "acme")
	sub := env.createSubscription(t, tenant.ID, server.URL, 3)

	result, err := env.coordinator.Dispatch(ctx, studentEvent(tenant.ID))
	require.NoError(t, err)
	require.Equal(t, 1, result.Matched)
	require.Len(t, result.DeliveryIDs, 1)

	// The receiver can verify the signature against the raw body.
	assert.True(t, signature.Verify(sub.Secret, gotBody, gotSignature))

	d, err := env.deliveries.GetByID(ctx, tenant.ID, result.DeliveryIDs[0])
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, d.Status)
	assert.Equal(t, 1, d.Attempt)
	require.NotNil(t, d.HTTPStatus)
	assert.Equal(t, 200, *d.HTTPStatus)
}

func TestDispatch_Integration_RetryThenSuccess(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	env := newIntegrationEnv(t, db)
	ctx := context.Background()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tenant := env.createTenant(t, "retry-org")
	env.createSubscription(t, tenant.ID, server.URL, 3)

	result, err := env.coordinator.Dispatch(ctx, studentEvent(tenant.ID))
	require.NoError(t, err)
	require.Len(t, result.DeliveryIDs, 1)
	deliveryID := result.DeliveryIDs[0]

	d, err := env.deliveries.GetByID(ctx, tenant.ID, deliveryID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRetrying, d.Status)
	assert.Equal(t, 1, d.Attempt)
	require.NotNil(t, d.NextRetryAt)

	// Run the sweep once the retry is due.
	env.forceDue(t, deliveryID)
	require.NoError(t, env.sweeper.RunDue(ctx))

	d, err = env.deliveries.GetByID(ctx, tenant.ID, deliveryID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, d.Status)
	assert.Equal(t, 2, d.Attempt)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatch_Integration_Exhaustion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	env := newIntegrationEnv(t, db)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	tenant := env.createTenant(t, "exhaust-org")
	env.createSubscription(t, tenant.ID, server.URL, 2)

	result, err := env.coordinator.Dispatch(ctx, studentEvent(tenant.ID))
	require.NoError(t, err)
	require.Len(t, result.DeliveryIDs, 1)
	deliveryID := result.DeliveryIDs[0]

	// First attempt failed, one retry remains.
	d, err := env.deliveries.GetByID(ctx, tenant.ID, deliveryID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRetrying, d.Status)

	env.forceDue(t, deliveryID)
	require.NoError(t, env.sweeper.RunDue(ctx))

	d, err = env.deliveries.GetByID(ctx, tenant.ID, deliveryID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExhausted, d.Status)
	assert.Equal(t, 2, d.Attempt)
	require.NotNil(t, d.Error)

	// Nothing further is due.
	claimed, err := env.deliveries.ClaimDue(ctx, time.Now().UTC().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestDispatch_Integration_DeletedSubscriptionFailsDelivery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	env := newIntegrationEnv(t, db)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tenant := env.createTenant(t, "gone-org")
	sub := env.createSubscription(t, tenant.ID, server.URL, 3)

	result, err := env.coordinator.Dispatch(ctx, studentEvent(tenant.ID))
	require.NoError(t, err)
	require.Len(t, result.DeliveryIDs, 1)
	deliveryID := result.DeliveryIDs[0]

	d, err := env.deliveries.GetByID(ctx, tenant.ID, deliveryID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRetrying, d.Status)

	// The delivery row survives subscription deletion as audit history; on the
	// next sweep the missing subscription settles it as terminally failed.
	require.NoError(t, env.subs.Delete(ctx, tenant.ID, sub.ID))

	env.forceDue(t, deliveryID)
	require.NoError(t, env.sweeper.RunDue(ctx))

	d, err = env.deliveries.GetByID(ctx, tenant.ID, deliveryID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, d.Status)
	require.NotNil(t, d.Error)
	assert.Equal(t, "subscription deleted", *d.Error)
}

func TestDispatch_Integration_ConcurrentSweepsClaimOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	env := newIntegrationEnv(t, db)
	ctx := context.Background()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tenant := env.createTenant(t, "race-org")
	env.createSubscription(t, tenant.ID, server.URL, 5)

	result, err := env.coordinator.Dispatch(ctx, studentEvent(tenant.ID))
	require.NoError(t, err)
	require.Len(t, result.DeliveryIDs, 1)
	deliveryID := result.DeliveryIDs[0]

	d, err := env.deliveries.GetByID(ctx, tenant.ID, deliveryID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRetrying, d.Status)

	env.forceDue(t, deliveryID)

	// Two sweeps race for the same due row; the claim is atomic, so only one
	// of them re-attempts the delivery.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = env.sweeper.RunDue(ctx)
		}(i)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// One initial attempt plus exactly one retry.
	assert.Equal(t, int32(2), calls.Load())

	d, err = env.deliveries.GetByID(ctx, tenant.ID, deliveryID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, d.Status)
	assert.Equal(t, 2, d.Attempt)

	// A later sweep finds nothing left to do.
	require.NoError(t, env.sweeper.RunDue(ctx))
	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatch_Integration_MatchingIsTenantScoped(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	env := newIntegrationEnv(t, db)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tenantA := env.createTenant(t, "org-a")
	tenantB := env.createTenant(t, "org-b")
	env.createSubscription(t, tenantA.ID, server.URL, 3)

	// Tenant B has no subscriptions; its event matches nothing.
	result, err := env.coordinator.Dispatch(ctx, studentEvent(tenantB.ID))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Matched)
	assert.Empty(t, result.DeliveryIDs)

	result, err = env.coordinator.Dispatch(ctx, studentEvent(tenantA.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
}
