package order

import (
	"strings"

	"github.com/cassiomorais/checkout/internal/contracts"
	"github.com/cassiomorais/checkout/internal/domain/aggregate"
	"github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/money"
	"github.com/google/uuid"
)

// Status represents the order status in the state machine
type Status string

const (
	StatusCreated             Status = "created"
	StatusPaymentAuthorizing  Status = "payment_authorizing"
	StatusAuthorized          Status = "authorized"
	StatusCapturing           Status = "capturing"
	StatusCaptured            Status = "captured"
	StatusFailed              Status = "failed"
	StatusCancelled           Status = "cancelled"
)

// Order is the consistency boundary for order state. It never performs I/O;
// every legal transition mutates state and buffers exactly one event for the
// outbox, every illegal one fails with a domain error and changes nothing.
type Order struct {
	aggregate.Root
	CustomerID     uuid.UUID
	Amount         money.Amount
	Status         Status
	IdempotencyKey string
	PaymentID      *uuid.UUID
	FailureReason  *string
}

// New creates an order in Created state and buffers the creation event.
// Amount is fixed here for the lifetime of the order. The order starts a new
// workflow, so its own ID seeds the correlation chain.
func New(customerID uuid.UUID, amount money.Amount, idempotencyKey string) (*Order, error) {
	if err := amount.Validate(); err != nil {
		return nil, err
	}
	if idempotencyKey == "" {
		return nil, errors.NewValidationError("idempotency_key", "cannot be empty")
	}

	amount.Currency = strings.ToUpper(amount.Currency)

	o := &Order{
		Root:           aggregate.NewRoot(),
		CustomerID:     customerID,
		Amount:         amount,
		Status:         StatusCreated,
		IdempotencyKey: idempotencyKey,
	}
	o.Record(contracts.OrderCreated{
		Envelope:       contracts.NewEnvelope(o.ID.String(), o.ID.String()),
		Occurrence:     contracts.Occurred(),
		OrderID:        o.ID,
		CustomerID:     customerID,
		AmountCents:    amount.ValueCents,
		Currency:       amount.Currency,
		IdempotencyKey: idempotencyKey,
	})
	return o, nil
}

// CanTransitionTo checks if the order can transition to the given status
func (o *Order) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusCreated: {
			StatusPaymentAuthorizing,
			StatusCancelled,
			StatusFailed,
		},
		StatusPaymentAuthorizing: {
			StatusAuthorized,
			StatusCancelled,
			StatusFailed,
		},
		StatusAuthorized: {
			StatusCapturing,
			StatusCancelled,
			StatusFailed,
		},
		StatusCapturing: {
			StatusCaptured,
			StatusCancelled,
			StatusFailed,
		},
		StatusCaptured:  {}, // Terminal state (refunds are a separate flow)
		StatusFailed:    {}, // Terminal state
		StatusCancelled: {}, // Terminal state
	}

	allowed, exists := transitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

func (o *Order) transitionTo(newStatus Status) error {
	if !o.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(o.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}
	o.Status = newStatus
	o.Touch()
	return nil
}

// StartPaymentAuthorization moves a fresh order into the authorization leg.
func (o *Order) StartPaymentAuthorization(env contracts.Envelope) error {
	if o.Status != StatusCreated {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot authorize payment for order in status "+string(o.Status),
			errors.ErrInvalidStateTransition,
		)
	}
	if err := o.transitionTo(StatusPaymentAuthorizing); err != nil {
		return err
	}
	o.Record(contracts.OrderPaymentAuthorizing{
		Envelope:   env,
		Occurrence: contracts.Occurred(),
		OrderID:    o.ID,
	})
	return nil
}

// MarkAuthorized records the payment hold reported by the payments service.
func (o *Order) MarkAuthorized(paymentID uuid.UUID, env contracts.Envelope) error {
	if err := o.transitionTo(StatusAuthorized); err != nil {
		return err
	}
	o.PaymentID = &paymentID
	o.Record(contracts.OrderAuthorized{
		Envelope:   env,
		Occurrence: contracts.Occurred(),
		OrderID:    o.ID,
		PaymentID:  paymentID,
	})
	return nil
}

// StartCapture begins the capture leg. The order must be authorized and
// therefore already linked to a payment.
func (o *Order) StartCapture(env contracts.Envelope) error {
	if o.Status != StatusAuthorized {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot capture order in status "+string(o.Status)+", must be authorized first",
			errors.ErrInvalidStateTransition,
		)
	}
	if err := o.transitionTo(StatusCapturing); err != nil {
		return err
	}
	o.Record(contracts.OrderCapturing{
		Envelope:   env,
		Occurrence: contracts.Occurred(),
		OrderID:    o.ID,
		PaymentID:  *o.PaymentID,
	})
	return nil
}

// MarkCaptured finalizes the order; money has moved.
func (o *Order) MarkCaptured(env contracts.Envelope) error {
	if err := o.transitionTo(StatusCaptured); err != nil {
		return err
	}
	o.Record(contracts.OrderCaptured{
		Envelope:   env,
		Occurrence: contracts.Occurred(),
		OrderID:    o.ID,
		PaymentID:  *o.PaymentID,
	})
	return nil
}

// MarkFailed records a payment failure. Captured orders cannot fail; that
// is refund territory.
func (o *Order) MarkFailed(reason string, env contracts.Envelope) error {
	if o.Status == StatusCaptured {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot fail a captured order, use refund flow instead",
			errors.ErrInvalidStateTransition,
		)
	}
	if err := o.transitionTo(StatusFailed); err != nil {
		return err
	}
	o.FailureReason = &reason
	o.Record(contracts.OrderFailed{
		Envelope:   env,
		Occurrence: contracts.Occurred(),
		OrderID:    o.ID,
		Reason:     reason,
	})
	return nil
}

// Cancel releases the order. Captured orders cannot be cancelled, and a
// terminal order cannot be cancelled twice.
func (o *Order) Cancel(env contracts.Envelope) error {
	if o.Status == StatusCaptured {
		return errors.NewDomainError(
			"cannot_cancel_captured",
			"cannot cancel a captured order, use refund flow instead",
			errors.ErrInvalidStateTransition,
		)
	}
	if o.Status == StatusCancelled || o.Status == StatusFailed {
		return errors.NewDomainError(
			"already_terminal",
			"order is already in terminal state "+string(o.Status),
			errors.ErrInvalidStateTransition,
		)
	}
	if err := o.transitionTo(StatusCancelled); err != nil {
		return err
	}
	o.Record(contracts.OrderCancelled{
		Envelope:   env,
		Occurrence: contracts.Occurred(),
		OrderID:    o.ID,
	})
	return nil
}

// IsTerminal checks if the order is in a terminal state
func (o *Order) IsTerminal() bool {
	return o.Status == StatusCaptured ||
		o.Status == StatusCancelled ||
		o.Status == StatusFailed
}
