package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hooklinehq/hookline/internal/domain"
)

func TestTenantsHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]interface{}
		setupMock      func(*MockTenantRepo)
		expectedStatus int
		checkResponse  func(*testing.T, map[string]interface{})
	}{
		{
			name: "successful creation",
			body: map[string]interface{}{
				"name": "Acme School",
				"slug": "acme",
			},
			setupMock: func(m *MockTenantRepo) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(tenant *domain.Tenant) bool {
					return tenant.Slug == "acme" && tenant.IsActive
				})).Return(nil)
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp map[string]interface{}) {
				tenant := resp["tenant"].(map[string]interface{})
				assert.Equal(t, "acme", tenant["slug"])
			},
		},
		{
			name: "invalid slug rejected",
			body: map[string]interface{}{
				"name": "Acme School",
				"slug": "Not A Slug",
			},
			setupMock:      func(m *MockTenantRepo) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "missing name rejected",
			body: map[string]interface{}{
				"slug": "acme",
			},
			setupMock:      func(m *MockTenantRepo) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTenantRepo)
			tt.setupMock(mockRepo)

			handler := NewTenantsHandler(mockRepo, testLogger())
			app := createTestApp()
			app.Post("/admin/tenants", handler.Create)

			bodyBytes, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/admin/tenants", bytes.NewReader(bodyBytes))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.checkResponse != nil {
				var body map[string]interface{}
				assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				tt.checkResponse(t, body)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTenantsHandler_Update(t *testing.T) {
	tenantID := uuid.New()

	existing := func() *domain.Tenant {
		return &domain.Tenant{
			ID:       tenantID,
			Name:     "Acme School",
			Slug:     "acme",
			IsActive: true,
		}
	}

	t.Run("deactivates tenant", func(t *testing.T) {
		mockRepo := new(MockTenantRepo)
		mockRepo.On("GetByID", mock.Anything, tenantID).Return(existing(), nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(tenant *domain.Tenant) bool {
			return !tenant.IsActive
		})).Return(nil)

		handler := NewTenantsHandler(mockRepo, testLogger())
		app := createTestApp()
		app.Patch("/admin/tenants/:id", handler.Update)

		req := httptest.NewRequest(http.MethodPatch, "/admin/tenants/"+tenantID.String(),
			bytes.NewReader([]byte(`{"is_active": false}`)))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockRepo.AssertExpectations(t)
	})

	t.Run("tenant not found", func(t *testing.T) {
		mockRepo := new(MockTenantRepo)
		mockRepo.On("GetByID", mock.Anything, tenantID).Return(nil, domain.ErrTenantNotFound)

		handler := NewTenantsHandler(mockRepo, testLogger())
		app := createTestApp()
		app.Patch("/admin/tenants/:id", handler.Update)

		req := httptest.NewRequest(http.MethodPatch, "/admin/tenants/"+tenantID.String(),
			bytes.NewReader([]byte(`{"is_active": false}`)))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestTenantsHandler_List(t *testing.T) {
	mockRepo := new(MockTenantRepo)
	mockRepo.On("List", mock.Anything, 50, 0).Return([]domain.Tenant{
		{ID: uuid.New(), Name: "Acme School", Slug: "acme", IsActive: true},
		{ID: uuid.New(), Name: "Beta School", Slug: "beta", IsActive: false},
	}, nil)

	handler := NewTenantsHandler(mockRepo, testLogger())
	app := createTestApp()
	app.Get("/admin/tenants", handler.List)

	req := httptest.NewRequest(http.MethodGet, "/admin/tenants", nil)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Tenants []domain.Tenant `json:"tenants"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Tenants, 2)
}

func TestTenantsHandler_Delete(t *testing.T) {
	tenantID := uuid.New()

	mockRepo := new(MockTenantRepo)
	mockRepo.On("Delete", mock.Anything, tenantID).Return(nil)

	handler := NewTenantsHandler(mockRepo, testLogger())
	app := createTestApp()
	app.Delete("/admin/tenants/:id", handler.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/admin/tenants/"+tenantID.String(), nil)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	mockRepo.AssertExpectations(t)
}
