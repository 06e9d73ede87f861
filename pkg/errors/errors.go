package errors

import (
	"fmt"

	"github.com/iharalondon/storefront/internal/domain"
)

// ErrNotFound is returned when a resource is not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized is returned when authentication fails
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrValidation is returned when a required field is missing or malformed.
// Fields maps field name to a human-readable reason; First names the field
// that should receive focus (the first one that failed).
type ErrValidation struct {
	Message string
	First   string
	Fields  map[string]string
}

func (e *ErrValidation) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "validation failed"
}

// NewValidation builds an ErrValidation from ordered field/reason pairs.
func NewValidation(message string, pairs ...string) *ErrValidation {
	e := &ErrValidation{Message: message, Fields: map[string]string{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		if e.First == "" {
			e.First = pairs[i]
		}
		e.Fields[pairs[i]] = pairs[i+1]
	}
	return e
}

// ErrEmptyCart blocks opening checkout or confirming an order with no lines
type ErrEmptyCart struct{}

func (e *ErrEmptyCart) Error() string {
	return "cart is empty"
}

// ErrInvalidCard is returned by card validation, naming the offending field
type ErrInvalidCard struct {
	Field  string
	Reason string
}

func (e *ErrInvalidCard) Error() string {
	return fmt.Sprintf("invalid card %s: %s", e.Field, e.Reason)
}

// ErrUnavailable is returned when an external collaborator (payment gateway,
// email delivery, blob store) fails. Retryable; never fatal to the checkout flow.
type ErrUnavailable struct {
	Collaborator string
	Err          error
}

func (e *ErrUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
	}
	return fmt.Sprintf("%s unavailable", e.Collaborator)
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }

// ErrInvalidStateTransition is returned when an invalid order status transition is attempted
type ErrInvalidStateTransition struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}
