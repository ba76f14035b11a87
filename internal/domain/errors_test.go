package domain

import (
	"errors"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "error without wrapped error",
			appErr:   ErrSubscriptionNotFound,
			expected: "Webhook subscription not found",
		},
		{
			name: "error with wrapped error",
			appErr: &AppError{
				Code:       "TEST_ERROR",
				Message:    "Test message",
				StatusCode: 500,
				Err:        errors.New("underlying error"),
			},
			expected: "Test message: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppError_WithError(t *testing.T) {
	underlying := errors.New("connection refused")
	wrapped := ErrInternal.WithError(underlying)

	if wrapped == ErrInternal {
		t.Errorf("WithError() returned the sentinel itself")
	}
	if wrapped.Code != ErrInternal.Code {
		t.Errorf("Code = %s, want %s", wrapped.Code, ErrInternal.Code)
	}
	if !errors.Is(wrapped, underlying) {
		t.Errorf("wrapped error does not unwrap to underlying")
	}

	// The sentinel itself must stay untouched.
	if ErrInternal.Err != nil {
		t.Errorf("sentinel mutated by WithError")
	}
}

func TestAppError_WithMessage(t *testing.T) {
	custom := ErrBadRequest.WithMessage("Invalid subscription ID")

	if custom.Message != "Invalid subscription ID" {
		t.Errorf("Message = %s, want Invalid subscription ID", custom.Message)
	}
	if custom.Code != ErrBadRequest.Code {
		t.Errorf("Code = %s, want %s", custom.Code, ErrBadRequest.Code)
	}
	if custom.StatusCode != 400 {
		t.Errorf("StatusCode = %d, want 400", custom.StatusCode)
	}
}
