package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// WithMessage returns a copy carrying a more specific message.
func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    msg,
		StatusCode: e.StatusCode,
		Err:        e.Err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Invalid or missing API key",
		StatusCode: 401,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Access denied",
		StatusCode: 403,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrTenantNotFound = &AppError{
		Code:       "TENANT_NOT_FOUND",
		Message:    "Organization not found",
		StatusCode: 404,
	}

	ErrTenantInactive = &AppError{
		Code:       "TENANT_INACTIVE",
		Message:    "Organization account is inactive",
		StatusCode: 403,
	}

	ErrAPIKeyNotFound = &AppError{
		Code:       "API_KEY_NOT_FOUND",
		Message:    "API key not found",
		StatusCode: 404,
	}

	ErrAPIKeyRevoked = &AppError{
		Code:       "API_KEY_REVOKED",
		Message:    "API key has been revoked",
		StatusCode: 401,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, slow down",
		StatusCode: 429,
	}

	ErrSubscriptionNotFound = &AppError{
		Code:       "SUBSCRIPTION_NOT_FOUND",
		Message:    "Webhook subscription not found",
		StatusCode: 404,
	}

	ErrDeliveryNotFound = &AppError{
		Code:       "DELIVERY_NOT_FOUND",
		Message:    "Delivery record not found",
		StatusCode: 404,
	}
)
