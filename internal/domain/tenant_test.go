package domain

import (
	"testing"
)

func TestTenant_Validate(t *testing.T) {
	tests := []struct {
		name    string
		tenant  Tenant
		wantErr bool
	}{
		{
			name:    "valid tenant",
			tenant:  Tenant{Name: "Acme School", Slug: "acme"},
			wantErr: false,
		},
		{
			name:    "slug with hyphens and digits",
			tenant:  Tenant{Name: "Acme School", Slug: "acme-school-2"},
			wantErr: false,
		},
		{
			name:    "missing name",
			tenant:  Tenant{Slug: "acme"},
			wantErr: true,
		},
		{
			name:    "missing slug",
			tenant:  Tenant{Name: "Acme School"},
			wantErr: true,
		},
		{
			name:    "uppercase slug",
			tenant:  Tenant{Name: "Acme School", Slug: "Acme"},
			wantErr: true,
		},
		{
			name:    "slug with spaces",
			tenant:  Tenant{Name: "Acme School", Slug: "acme school"},
			wantErr: true,
		},
		{
			name:    "slug with trailing hyphen",
			tenant:  Tenant{Name: "Acme School", Slug: "acme-"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tenant.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTenant_GetSettings(t *testing.T) {
	t.Run("nil settings yield defaults", func(t *testing.T) {
		tenant := Tenant{}
		got := tenant.GetSettings()

		if got.StrictIngest {
			t.Errorf("StrictIngest = true, want false")
		}
		if got.MaxSubscriptions != 50 {
			t.Errorf("MaxSubscriptions = %d, want 50", got.MaxSubscriptions)
		}
	})

	t.Run("overrides from settings map", func(t *testing.T) {
		tenant := Tenant{
			Settings: map[string]interface{}{
				"strict_ingest":     true,
				"max_subscriptions": float64(5),
			},
		}
		got := tenant.GetSettings()

		if !got.StrictIngest {
			t.Errorf("StrictIngest = false, want true")
		}
		if got.MaxSubscriptions != 5 {
			t.Errorf("MaxSubscriptions = %d, want 5", got.MaxSubscriptions)
		}
	})

	t.Run("wrong types fall back to defaults", func(t *testing.T) {
		tenant := Tenant{
			Settings: map[string]interface{}{
				"strict_ingest":     "yes",
				"max_subscriptions": "many",
			},
		}
		got := tenant.GetSettings()

		if got.StrictIngest {
			t.Errorf("StrictIngest = true, want false")
		}
		if got.MaxSubscriptions != 50 {
			t.Errorf("MaxSubscriptions = %d, want 50", got.MaxSubscriptions)
		}
	})
}
