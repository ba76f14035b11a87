package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/hooklinehq/hookline/internal/admin"
	"github.com/hooklinehq/hookline/internal/api/docs"
	"github.com/hooklinehq/hookline/internal/api/handler"
	adminHandler "github.com/hooklinehq/hookline/internal/api/handler/admin"
	"github.com/hooklinehq/hookline/internal/api/middleware"
	"github.com/hooklinehq/hookline/internal/config"
	"github.com/hooklinehq/hookline/internal/delivery"
	"github.com/hooklinehq/hookline/internal/dispatch"
	"github.com/hooklinehq/hookline/internal/domain"
	"github.com/hooklinehq/hookline/internal/repository"
)

type Dependencies struct {
	TenantRepo       *repository.TenantRepository
	APIKeyRepo       *repository.APIKeyRepository
	SubscriptionRepo *repository.SubscriptionRepository
	DeliveryRepo     *repository.DeliveryRepository
	DB               *pgxpool.Pool
	Config           *config.Config
}

type Router struct {
	app            *fiber.App
	logger         *slog.Logger
	deps           *Dependencies
	rateLimiter    *middleware.RateLimiter
	lastUsedWorker *middleware.LastUsedWorker
	sweeper        *dispatch.Sweeper
	cancelSweeper  context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Hookline API",
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Swagger documentation (no auth required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints (no auth required)
	var pool *pgxpool.Pool
	if r.deps != nil {
		pool = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(pool)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// API v1 group with authentication
	v1 := r.app.Group("/v1")

	// Only configure authenticated routes if dependencies were provided
	if r.deps != nil {
		cfg := r.deps.Config

		// Debounced last_used_at updates for API keys
		r.lastUsedWorker = middleware.NewLastUsedWorker(
			r.deps.APIKeyRepo,
			r.logger,
			middleware.DefaultLastUsedWorkerConfig(),
		)
		r.lastUsedWorker.Start()

		// Auth middleware
		authDeps := middleware.AuthDependencies{
			TenantRepo:     r.deps.TenantRepo,
			APIKeyRepo:     r.deps.APIKeyRepo,
			Logger:         r.logger,
			LastUsedWorker: r.lastUsedWorker,
		}
		v1.Use(middleware.Auth(authDeps))

		// Rate limiting (per tenant) - must come after auth to have tenant context
		r.rateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
		v1.Use(r.rateLimiter.Handler())

		// Delivery executor and dispatch coordinator
		executor := delivery.NewExecutor(cfg.DeliveryTimeout)
		coordinator := dispatch.NewCoordinator(
			r.deps.TenantRepo,
			r.deps.SubscriptionRepo,
			r.deps.DeliveryRepo,
			executor,
			r.logger,
			cfg.IngestStrict,
			cfg.IngestBudget,
			cfg.SweepConcurrency,
		)

		// Retry sweeper
		r.sweeper = dispatch.NewSweeper(
			coordinator,
			r.deps.DeliveryRepo,
			r.deps.SubscriptionRepo,
			r.logger,
			cfg.SweepInterval,
			cfg.SweepBatchSize,
			cfg.SweepConcurrency,
		)
		sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
		r.cancelSweeper = sweeperCancel
		go r.sweeper.Run(sweeperCtx)

		defaultPolicy := domain.RetryPolicy{
			MaxAttempts:   cfg.DefaultMaxAttempts,
			InitialDelay:  cfg.DefaultInitialDelay,
			BackoffFactor: cfg.DefaultBackoffFactor,
		}

		// Handlers
		ingestHandler := handler.NewIngestHandler(coordinator, r.logger)
		subsHandler := handler.NewSubscriptionsHandler(r.deps.SubscriptionRepo, defaultPolicy, r.logger)
		logsHandler := handler.NewLogsHandler(r.deps.DeliveryRepo, r.logger)

		// Event ingestion
		v1.Post("/webhooks/ingest", ingestHandler.Ingest)

		// Subscription registry
		v1.Get("/subscriptions", subsHandler.List)
		v1.Post("/subscriptions", subsHandler.Create)
		v1.Get("/subscriptions/:id", subsHandler.Get)
		v1.Patch("/subscriptions/:id", subsHandler.Update)
		v1.Delete("/subscriptions/:id", subsHandler.Delete)

		// Delivery logs
		v1.Get("/webhooks/logs", logsHandler.List)
		v1.Get("/webhooks/logs/:id", logsHandler.Get)

		// Operator routes (JWT auth)
		r.setupAdminRoutes(v1)
	}
}

func (r *Router) setupAdminRoutes(v1Group fiber.Router) {
	jwtService := admin.NewJWTService(
		r.deps.Config.AdminJWTSecret,
		"hookline-api",
		24*time.Hour,
	)

	adminGroup := v1Group.Group("/admin")
	adminGroup.Use(middleware.AdminAuth(middleware.AdminAuthDependencies{
		JWTService: jwtService,
		Logger:     r.logger,
	}))

	tenantsHandler := adminHandler.NewTenantsHandler(r.deps.TenantRepo, r.logger)
	apiKeysHandler := adminHandler.NewAPIKeysHandler(r.deps.APIKeyRepo, r.deps.TenantRepo, r.logger)

	// Tenants routes
	adminGroup.Get("/tenants", tenantsHandler.List)
	adminGroup.Post("/tenants", tenantsHandler.Create)
	adminGroup.Get("/tenants/:id", tenantsHandler.Get)
	adminGroup.Patch("/tenants/:id", tenantsHandler.Update)
	adminGroup.Delete("/tenants/:id", tenantsHandler.Delete)

	// API key routes
	adminGroup.Get("/tenants/:id/keys", apiKeysHandler.List)
	adminGroup.Post("/tenants/:id/keys", apiKeysHandler.Create)
	adminGroup.Post("/keys/:id/revoke", apiKeysHandler.Revoke)
	adminGroup.Delete("/keys/:id", apiKeysHandler.Delete)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop the retry sweeper
	if r.cancelSweeper != nil {
		r.cancelSweeper()
	}

	// Stop the last_used_at worker
	if r.lastUsedWorker != nil {
		r.lastUsedWorker.Stop()
	}

	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
