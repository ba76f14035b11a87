package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a delivery record.
//
//	pending -> delivering -> success
//	                      -> retrying (next_retry_at set) -> delivering -> ...
//	                      -> exhausted (attempts used up)
//	                      -> failed    (non-retryable: subscription gone, bad payload)
//
// success, exhausted and failed are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusDelivering Status = "delivering"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusRetrying   Status = "retrying"
	StatusExhausted  Status = "exhausted"
)

var validStatuses = map[Status]bool{
	StatusPending:    true,
	StatusDelivering: true,
	StatusSuccess:    true,
	StatusFailed:     true,
	StatusRetrying:   true,
	StatusExhausted:  true,
}

func (s Status) Validate() error {
	if !validStatuses[s] {
		return fmt.Errorf("invalid status: %q", s)
	}
	return nil
}

// IsTerminal reports whether the status allows no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusExhausted || s == StatusFailed
}

// Delivery is the activity-log record of one subscription x event pairing.
// The attempt counter advances in place as retries run; the retry policy is
// snapshotted from the subscription at creation so later edits never alter
// in-flight retries.
type Delivery struct {
	ID             uuid.UUID     `json:"id"`
	SubscriptionID uuid.UUID     `json:"subscription_id"`
	TenantID       uuid.UUID     `json:"tenant_id"`
	Event          string        `json:"event"`
	Resource       string        `json:"resource"`
	Operation      string        `json:"operation"`
	RecordID       string        `json:"record_id,omitempty"`
	Payload        []byte        `json:"-"`
	Status         Status        `json:"status"`
	HTTPStatus     *int          `json:"http_status,omitempty"`
	ResponseBody   *string       `json:"response_body,omitempty"`
	Error          *string       `json:"error,omitempty"`
	Attempt        int           `json:"attempt"`
	MaxAttempts    int           `json:"max_attempts"`
	InitialDelay   time.Duration `json:"-"`
	BackoffFactor  float64       `json:"-"`
	NextRetryAt    *time.Time    `json:"next_retry_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NewDelivery builds a pending delivery record for one matched subscription.
func NewDelivery(sub *Subscription, event *Event, payload []byte) *Delivery {
	return &Delivery{
		ID:             uuid.New(),
		SubscriptionID: sub.ID,
		TenantID:       sub.TenantID,
		Event:          event.DisplayName(),
		Resource:       event.Resource,
		Operation:      event.Operation,
		RecordID:       event.RecordID(),
		Payload:        payload,
		Status:         StatusPending,
		Attempt:        0,
		MaxAttempts:    sub.RetryPolicy.MaxAttempts,
		InitialDelay:   sub.RetryPolicy.InitialDelay,
		BackoffFactor:  sub.RetryPolicy.BackoffFactor,
	}
}

// Policy reconstructs the retry policy snapshot stored on the record.
func (d *Delivery) Policy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   d.MaxAttempts,
		InitialDelay:  d.InitialDelay,
		BackoffFactor: d.BackoffFactor,
	}
}

// AttemptsRemaining reports whether another attempt is allowed.
func (d *Delivery) AttemptsRemaining() bool {
	return d.Attempt < d.MaxAttempts
}
