package domain

import (
	"errors"
	"net/url"
	"slices"
	"time"

	"github.com/google/uuid"
)

// RetryPolicy controls how failed deliveries are retried.
// The delay before attempt n+1 is InitialDelay * BackoffFactor^(n-1),
// so delays never shrink for BackoffFactor >= 1.
type RetryPolicy struct {
	MaxAttempts   int           `json:"max_attempts"`
	InitialDelay  time.Duration `json:"initial_delay_ms"`
	BackoffFactor float64       `json:"backoff_factor"`
}

func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.New("max_attempts must be at least 1")
	}
	if p.InitialDelay < 0 {
		return errors.New("initial_delay must not be negative")
	}
	if p.BackoffFactor < 1 {
		return errors.New("backoff_factor must be at least 1")
	}
	return nil
}

// Delay returns the wait before the attempt following attempt n (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= p.BackoffFactor
	}
	return time.Duration(delay)
}

// Subscription is a tenant's configured webhook endpoint plus its interest
// filter and retry policy.
type Subscription struct {
	ID          uuid.UUID   `json:"id"`
	TenantID    uuid.UUID   `json:"tenant_id"`
	Name        string      `json:"name"`
	URL         string      `json:"url"`
	Secret      string      `json:"-"`
	BearerToken string      `json:"-"`
	Resources   []string    `json:"resources"`
	Events      []string    `json:"events"`
	Enabled     bool        `json:"enabled"`
	RetryPolicy RetryPolicy `json:"retry_policy"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Validate enforces the registry invariants: the URL must be an absolute
// HTTP(S) URL, and an enabled subscription must declare at least one
// resource and one event.
func (s *Subscription) Validate() error {
	if s.TenantID == uuid.Nil {
		return errors.New("tenant_id cannot be empty")
	}

	if s.Name == "" {
		return errors.New("subscription name cannot be empty")
	}

	if err := validateEndpointURL(s.URL); err != nil {
		return err
	}

	if s.Enabled && (len(s.Resources) == 0 || len(s.Events) == 0) {
		return errors.New("an enabled subscription needs at least one resource and one event")
	}

	return s.RetryPolicy.Validate()
}

// Matches reports whether this subscription is interested in the given
// resource/event pair. Disabled subscriptions and empty interest sets never
// match.
func (s *Subscription) Matches(resource, event string) bool {
	if !s.Enabled {
		return false
	}
	if len(s.Resources) == 0 || len(s.Events) == 0 {
		return false
	}
	return slices.Contains(s.Resources, resource) && slices.Contains(s.Events, event)
}

func validateEndpointURL(raw string) error {
	if raw == "" {
		return errors.New("url cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("url is not well-formed")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("url must use http or https")
	}

	if u.Host == "" {
		return errors.New("url must be absolute")
	}

	return nil
}
