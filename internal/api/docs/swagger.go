package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

// RetryPolicyData represents a subscription retry policy
type RetryPolicyData struct {
	MaxAttempts    int     `json:"max_attempts" example:"5"`
	InitialDelayMS int64   `json:"initial_delay_ms" example:"30000"`
	BackoffFactor  float64 `json:"backoff_factor" example:"2.0"`
}

// SubscriptionData represents a webhook subscription
type SubscriptionData struct {
	ID          string          `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	TenantID    string          `json:"tenant_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	Name        string          `json:"name" example:"billing hook"`
	URL         string          `json:"url" example:"https://example.com/hooks"`
	Resources   []string        `json:"resources" example:"students"`
	Events      []string        `json:"events" example:"students.insert"`
	Enabled     bool            `json:"enabled" example:"true"`
	RetryPolicy RetryPolicyData `json:"retry_policy"`
	CreatedAt   string          `json:"created_at" example:"2024-01-01T00:00:00Z"`
	UpdatedAt   string          `json:"updated_at" example:"2024-01-01T00:00:00Z"`
}

// CreateSubscriptionBody represents the request body for creating a subscription
type CreateSubscriptionBody struct {
	Name        string           `json:"name" example:"billing hook"`
	URL         string           `json:"url" example:"https://example.com/hooks"`
	Secret      string           `json:"secret,omitempty"`
	BearerToken string           `json:"bearer_token,omitempty"`
	Resources   []string         `json:"resources" example:"students"`
	Events      []string         `json:"events" example:"students.insert"`
	Enabled     *bool            `json:"enabled,omitempty" example:"true"`
	RetryPolicy *RetryPolicyData `json:"retry_policy,omitempty"`
}

// UpdateSubscriptionBody represents the request body for a partial update
type UpdateSubscriptionBody struct {
	Name        *string          `json:"name,omitempty" example:"billing hook"`
	URL         *string          `json:"url,omitempty" example:"https://example.com/hooks"`
	Secret      *string          `json:"secret,omitempty"`
	BearerToken *string          `json:"bearer_token,omitempty"`
	Resources   []string         `json:"resources,omitempty" example:"students"`
	Events      []string         `json:"events,omitempty" example:"students.insert"`
	Enabled     *bool            `json:"enabled,omitempty" example:"true"`
	RetryPolicy *RetryPolicyData `json:"retry_policy,omitempty"`
}

// SubscriptionResponse wraps a single subscription
type SubscriptionResponse struct {
	Subscription SubscriptionData `json:"subscription"`
}

// CreateSubscriptionResponse includes the signing secret, shown only once
type CreateSubscriptionResponse struct {
	Subscription SubscriptionData `json:"subscription"`
	Secret       string           `json:"secret" example:"4f6a..."`
}

// ListSubscriptionsResponse wraps the subscription list
type ListSubscriptionsResponse struct {
	Subscriptions []SubscriptionData `json:"subscriptions"`
}

// IngestBody represents an incoming event
type IngestBody struct {
	Event          string                 `json:"event,omitempty" example:"student.created"`
	Table          string                 `json:"table" example:"students"`
	Operation      string                 `json:"operation" example:"insert"`
	Record         map[string]interface{} `json:"record"`
	OldRecord      map[string]interface{} `json:"old_record,omitempty"`
	OrganizationID string                 `json:"organization_id,omitempty" example:"acme"`
	Timestamp      string                 `json:"timestamp,omitempty" example:"2024-01-01T00:00:00Z"`
}

// IngestResponse summarizes the fan-out of an accepted event
type IngestResponse struct {
	Matched     int      `json:"matched" example:"2"`
	DeliveryIDs []string `json:"delivery_ids"`
	Note        string   `json:"note,omitempty"`
}

// DeliveryData represents one delivery log entry
type DeliveryData struct {
	ID             string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	SubscriptionID string `json:"subscription_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	TenantID       string `json:"tenant_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	Event          string `json:"event" example:"students.insert"`
	Resource       string `json:"resource" example:"students"`
	Operation      string `json:"operation" example:"insert"`
	Status         string `json:"status" example:"success"`
	HTTPStatus     *int   `json:"http_status,omitempty" example:"200"`
	Attempt        int    `json:"attempt" example:"1"`
	MaxAttempts    int    `json:"max_attempts" example:"5"`
	NextRetryAt    string `json:"next_retry_at,omitempty" example:"2024-01-01T00:01:00Z"`
	CreatedAt      string `json:"created_at" example:"2024-01-01T00:00:00Z"`
	UpdatedAt      string `json:"updated_at" example:"2024-01-01T00:00:00Z"`
}

// DeliveryResponse wraps a single delivery
type DeliveryResponse struct {
	Delivery DeliveryData `json:"delivery"`
}

// ListDeliveriesResponse wraps the delivery list
type ListDeliveriesResponse struct {
	Deliveries []DeliveryData `json:"deliveries"`
}

// TenantData represents an organization
type TenantData struct {
	ID        string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name      string `json:"name" example:"Acme School"`
	Slug      string `json:"slug" example:"acme"`
	IsActive  bool   `json:"is_active" example:"true"`
	CreatedAt string `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

// TenantResponse wraps a single tenant
type TenantResponse struct {
	Tenant TenantData `json:"tenant"`
}

// ListTenantsResponse wraps the tenant list
type ListTenantsResponse struct {
	Tenants []TenantData `json:"tenants"`
}

// APIKeyData represents an issued API key (hash never included)
type APIKeyData struct {
	ID          string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	TenantID    string `json:"tenant_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	Name        string `json:"name" example:"production"`
	KeyPrefix   string `json:"key_prefix" example:"sk_live_A1b2C3"`
	Environment string `json:"environment" example:"live"`
	IsActive    bool   `json:"is_active" example:"true"`
	CreatedAt   string `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

// CreateAPIKeyResponse includes the plain key, shown only once
type CreateAPIKeyResponse struct {
	APIKey APIKeyData `json:"api_key"`
	Key    string     `json:"key" example:"sk_live_..."`
}

// ListAPIKeysResponse wraps the API key list
type ListAPIKeysResponse struct {
	APIKeys []APIKeyData `json:"api_keys"`
}

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Hookline Webhook Delivery API",
		Version:     "v1.0.0",
		Description: "Multitenant outbound webhook delivery engine: subscriptions, event ingestion, signed deliveries and retry tracking",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/webhooks/ingest - Ingest event
		endpoint.New(
			endpoint.POST,
			"/webhooks/ingest",
			endpoint.WithTags("Events"),
			endpoint.WithSummary("Ingest an event"),
			endpoint.WithDescription("Accepts a resource mutation event, matches it against the tenant's enabled subscriptions and creates one delivery per match. Deliveries run asynchronously."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(IngestBody{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IngestResponse{}, "202", "Event accepted"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request body"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "FORBIDDEN", Message: "organization_id does not match the authenticated organization"}, "403", "Forbidden"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/subscriptions - List subscriptions
		endpoint.New(
			endpoint.GET,
			"/subscriptions",
			endpoint.WithTags("Subscriptions"),
			endpoint.WithSummary("List webhook subscriptions"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum number of subscriptions (default: 50, max: 200)")),
				parameter.IntParam("offset", parameter.Query, parameter.WithDescription("Offset for pagination (default: 0)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ListSubscriptionsResponse{}, "200", "Subscriptions retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// POST /v1/subscriptions - Create subscription
		endpoint.New(
			endpoint.POST,
			"/subscriptions",
			endpoint.WithTags("Subscriptions"),
			endpoint.WithSummary("Create a webhook subscription"),
			endpoint.WithDescription("Registers an endpoint with its interest filter and retry policy. A caller-supplied signing secret is kept as-is; otherwise one is generated server-side. The secret is returned exactly once."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(CreateSubscriptionBody{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CreateSubscriptionResponse{}, "201", "Subscription created"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request body"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "FORBIDDEN", Message: "Subscription limit reached"}, "403", "Forbidden"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/subscriptions/:id - Get subscription
		endpoint.New(
			endpoint.GET,
			"/subscriptions/{id}",
			endpoint.WithTags("Subscriptions"),
			endpoint.WithSummary("Get a webhook subscription"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Subscription UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SubscriptionResponse{}, "200", "Subscription retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "SUBSCRIPTION_NOT_FOUND", Message: "Webhook subscription not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// PATCH /v1/subscriptions/:id - Update subscription
		endpoint.New(
			endpoint.PATCH,
			"/subscriptions/{id}",
			endpoint.WithTags("Subscriptions"),
			endpoint.WithSummary("Update a webhook subscription"),
			endpoint.WithDescription("Partially updates the subscription. Supplying a secret rotates the signing key; retries re-sign with it on their next attempt. Retry policy changes apply to future deliveries only; in-flight retries keep their snapshot."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(UpdateSubscriptionBody{}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Subscription UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SubscriptionResponse{}, "200", "Subscription updated"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request body"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "SUBSCRIPTION_NOT_FOUND", Message: "Webhook subscription not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// DELETE /v1/subscriptions/:id - Delete subscription
		endpoint.New(
			endpoint.DELETE,
			"/subscriptions/{id}",
			endpoint.WithTags("Subscriptions"),
			endpoint.WithSummary("Delete a webhook subscription"),
			endpoint.WithDescription("Removes the subscription. Existing delivery records are kept as history."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Subscription UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Subscription deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "SUBSCRIPTION_NOT_FOUND", Message: "Webhook subscription not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/webhooks/logs - List deliveries
		endpoint.New(
			endpoint.GET,
			"/webhooks/logs",
			endpoint.WithTags("Delivery Logs"),
			endpoint.WithSummary("List delivery log entries"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("status", parameter.Query, parameter.WithDescription("Filter by status: pending, delivering, success, retrying, exhausted, failed")),
				parameter.StrParam("event", parameter.Query, parameter.WithDescription("Filter by event name")),
				parameter.StrParam("subscription_id", parameter.Query, parameter.WithDescription("Filter by subscription UUID")),
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum number of entries (default: 50, max: 200)")),
				parameter.IntParam("offset", parameter.Query, parameter.WithDescription("Offset for pagination (default: 0)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ListDeliveriesResponse{}, "200", "Deliveries retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid filter"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/webhooks/logs/:id - Get delivery
		endpoint.New(
			endpoint.GET,
			"/webhooks/logs/{id}",
			endpoint.WithTags("Delivery Logs"),
			endpoint.WithSummary("Get a delivery log entry"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Delivery UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DeliveryResponse{}, "200", "Delivery retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "DELIVERY_NOT_FOUND", Message: "Delivery record not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// Operator endpoints

		// GET /v1/admin/tenants - List tenants
		endpoint.New(
			endpoint.GET,
			"/admin/tenants",
			endpoint.WithTags("Operator"),
			endpoint.WithSummary("List organizations"),
			endpoint.WithDescription("Returns all organizations (requires operator JWT authentication)"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum number of tenants (default: 50, max: 200)")),
				parameter.IntParam("offset", parameter.Query, parameter.WithDescription("Offset for pagination (default: 0)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ListTenantsResponse{}, "200", "Tenants retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing JWT token"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "FORBIDDEN", Message: "Insufficient privileges"}, "403", "Forbidden"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"BearerAuth": {}}}),
		),

		// POST /v1/admin/tenants - Create tenant
		endpoint.New(
			endpoint.POST,
			"/admin/tenants",
			endpoint.WithTags("Operator"),
			endpoint.WithSummary("Create an organization"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(TenantResponse{}, "201", "Tenant created"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request body"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing JWT token"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "TENANT_ALREADY_EXISTS", Message: "Tenant with this slug already exists"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"BearerAuth": {}}}),
		),

		// POST /v1/admin/tenants/:id/keys - Issue API key
		endpoint.New(
			endpoint.POST,
			"/admin/tenants/{id}/keys",
			endpoint.WithTags("Operator"),
			endpoint.WithSummary("Issue an API key for an organization"),
			endpoint.WithDescription("Mints a new API key. The plain key is returned exactly once; only its hash is stored. Secret (sk) keys have full access; public (pk) keys are limited to read requests."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Tenant UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CreateAPIKeyResponse{}, "201", "API key created"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request body"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing JWT token"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "TENANT_NOT_FOUND", Message: "Organization not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"BearerAuth": {}}}),
		),

		// POST /v1/admin/keys/:id/revoke - Revoke API key
		endpoint.New(
			endpoint.POST,
			"/admin/keys/{id}/revoke",
			endpoint.WithTags("Operator"),
			endpoint.WithSummary("Revoke an API key"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("API key UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "API key revoked"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing JWT token"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "API_KEY_NOT_FOUND", Message: "API key not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"BearerAuth": {}}}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
