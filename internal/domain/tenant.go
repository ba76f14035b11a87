package domain

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Tenant is one organization in the multitenant system. Every subscription,
// event and delivery is scoped to exactly one tenant.
type Tenant struct {
	ID        uuid.UUID              `json:"id"`
	Name      string                 `json:"name"`
	Slug      string                 `json:"slug"`
	IsActive  bool                   `json:"is_active"`
	Settings  map[string]interface{} `json:"settings,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// TenantSettings contains webhook-related settings for a tenant.
type TenantSettings struct {
	// StrictIngest rejects events for unresolvable organizations with an
	// error instead of dropping them.
	StrictIngest bool `json:"strict_ingest"`
	// MaxSubscriptions caps how many endpoints a tenant may configure.
	MaxSubscriptions int `json:"max_subscriptions"`
}

func DefaultTenantSettings() TenantSettings {
	return TenantSettings{
		StrictIngest:     false,
		MaxSubscriptions: 50,
	}
}

// GetSettings returns typed tenant settings with defaults for missing values.
func (t *Tenant) GetSettings() TenantSettings {
	defaults := DefaultTenantSettings()

	if t.Settings == nil {
		return defaults
	}

	if v, ok := t.Settings["strict_ingest"].(bool); ok {
		defaults.StrictIngest = v
	}
	if v, ok := t.Settings["max_subscriptions"].(float64); ok {
		defaults.MaxSubscriptions = int(v)
	}

	return defaults
}

func (t *Tenant) Validate() error {
	if t.Name == "" {
		return errors.New("tenant name cannot be empty")
	}

	if t.Slug == "" {
		return errors.New("tenant slug cannot be empty")
	}

	if !slugRegex.MatchString(t.Slug) {
		return errors.New("tenant slug must contain only lowercase letters, numbers and hyphens")
	}

	return nil
}
