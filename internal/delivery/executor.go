// Package delivery performs single outbound webhook attempts. It knows
// nothing about retry scheduling; the dispatch package decides what happens
// with each Result.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hooklinehq/hookline/internal/domain"
	"github.com/hooklinehq/hookline/internal/signature"
)

const (
	// HeaderSignature carries the HMAC-SHA256 digest of the request body.
	HeaderSignature = "X-Signature"
	// HeaderEventType names the event for cheap routing on the receiver side.
	HeaderEventType = "X-Event-Type"

	userAgent = "Hookline/1.0"

	// maxResponseBytes bounds what we retain from endpoint responses.
	maxResponseBytes = 4 * 1024
)

// Target is everything the executor needs to reach one endpoint.
type Target struct {
	URL         string
	Secret      string
	BearerToken string
	EventName   string
}

// Result is the outcome of a single attempt. Err is set for transport-level
// failures (DNS, refused connection, timeout); StatusCode for everything that
// produced an HTTP response.
type Result struct {
	StatusCode int
	Body       string
	Err        error
}

// OK reports whether the attempt counts as delivered (2xx).
func (r Result) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// ErrorMessage renders the failure for the delivery log. Empty on success.
func (r Result) ErrorMessage() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	if !r.OK() {
		return fmt.Sprintf("endpoint returned %d", r.StatusCode)
	}
	return ""
}

// BuildPayload marshals the wire representation of an event. The resulting
// bytes are stored on the delivery record and re-sent unchanged on every
// retry so the signature stays stable. The body always names the event:
// when the host supplied none, the composite resource.operation name is used,
// matching the delivery record and the X-Event-Type header.
func BuildPayload(event *domain.Event) ([]byte, error) {
	wire := *event
	wire.Name = event.DisplayName()

	payload, err := json.Marshal(&wire)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return payload, nil
}

type Executor struct {
	client *http.Client
}

func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Execute POSTs the payload to the target. It never returns an error for
// non-2xx responses; the Result carries the outcome either way.
func (e *Executor) Execute(ctx context.Context, target Target, payload []byte) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(payload))
	if err != nil {
		return Result{Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(HeaderEventType, target.EventName)

	if sig := signature.Sign(target.Secret, payload); sig != "" {
		req.Header.Set(HeaderSignature, sig)
	}

	if target.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+target.BearerToken)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	// A truncated read still classifies by status; keep whatever arrived.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	return Result{StatusCode: resp.StatusCode, Body: string(body)}
}
