package errors

import (
	"errors"
	"fmt"
)

var (
	// Order errors
	ErrOrderNotFound        = errors.New("order not found")
	ErrOptimisticLockFailed = errors.New("optimistic lock conflict")

	// Payment errors
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// Gateway errors
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment rejected by gateway")
	ErrGatewayTimeout     = errors.New("gateway request timeout")
	ErrInvalidSignature   = errors.New("invalid webhook signature")

	// Idempotency errors
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsDomain reports whether err is a business-rule violation rather than an
// infrastructure failure. Consumers ack such messages instead of letting the
// broker redeliver them: a rule violation can never succeed on retry.
func IsDomain(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return true
	}
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
