package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Security
	AdminJWTSecret string `envconfig:"ADMIN_JWT_SECRET" required:"true"`

	// Ingestion
	// When strict, events naming an unknown organization are rejected with 404
	// instead of being dropped with a note.
	IngestStrict bool `envconfig:"INGEST_STRICT" default:"false"`

	// Delivery
	DeliveryTimeout time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"30s"`
	// Shared deadline for the inline first attempts of one ingest call;
	// attempts cut short by it are retried by the sweep.
	IngestBudget     time.Duration `envconfig:"INGEST_BUDGET" default:"10s"`
	SweepInterval    time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	SweepBatchSize   int           `envconfig:"SWEEP_BATCH_SIZE" default:"50"`
	SweepConcurrency int           `envconfig:"SWEEP_CONCURRENCY" default:"8"`

	// Default retry policy, used when a subscription does not set its own.
	DefaultMaxAttempts   int           `envconfig:"DEFAULT_MAX_ATTEMPTS" default:"5"`
	DefaultInitialDelay  time.Duration `envconfig:"DEFAULT_INITIAL_DELAY" default:"30s"`
	DefaultBackoffFactor float64       `envconfig:"DEFAULT_BACKOFF_FACTOR" default:"2"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
