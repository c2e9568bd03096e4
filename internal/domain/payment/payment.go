package payment

import (
	"strings"

	"github.com/cassiomorais/checkout/internal/contracts"
	"github.com/cassiomorais/checkout/internal/domain/aggregate"
	"github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/money"
	"github.com/google/uuid"
)

// Status represents the payment status in the state machine
type Status string

const (
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusSettled    Status = "settled"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Payment encapsulates the payment processing lifecycle. It never talks to
// the gateway itself; the application layer coordinates the gateway call
// and then records the outcome through these methods.
//
// No card data is ever stored; only the provider's transaction reference is
// kept for reconciliation.
type Payment struct {
	aggregate.Root
	OrderID               uuid.UUID
	Amount                money.Amount
	Status                Status
	IdempotencyKey        string
	ProviderTransactionID *string
	ProviderSettlementID  *string
	FailureReason         *string
	FailureCode           *string
}

// New creates a payment in Pending state. No event is raised until the
// gateway outcome is known.
func New(orderID uuid.UUID, amount money.Amount, idempotencyKey string) (*Payment, error) {
	if err := amount.Validate(); err != nil {
		return nil, err
	}
	if idempotencyKey == "" {
		return nil, errors.NewValidationError("idempotency_key", "cannot be empty")
	}

	amount.Currency = strings.ToUpper(amount.Currency)

	return &Payment{
		Root:           aggregate.NewRoot(),
		OrderID:        orderID,
		Amount:         amount,
		Status:         StatusPending,
		IdempotencyKey: idempotencyKey,
	}, nil
}

// CanTransitionTo checks if the payment can transition to the given status
func (p *Payment) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusPending: {
			StatusAuthorized,
			StatusFailed,
		},
		StatusAuthorized: {
			StatusCaptured,
			StatusCancelled,
			StatusFailed,
		},
		StatusCaptured: {
			StatusSettled,
		},
		StatusSettled:   {}, // Terminal state
		StatusFailed:    {}, // Terminal state
		StatusCancelled: {}, // Terminal state
	}

	allowed, exists := transitions[p.Status]
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

func (p *Payment) transitionTo(newStatus Status) error {
	if !p.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(p.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}
	p.Status = newStatus
	p.Touch()
	return nil
}

// MarkAuthorized records a successful gateway authorization.
func (p *Payment) MarkAuthorized(providerTransactionID string, env contracts.Envelope) error {
	if err := p.transitionTo(StatusAuthorized); err != nil {
		return err
	}
	p.ProviderTransactionID = &providerTransactionID
	p.Record(contracts.PaymentAuthorized{
		Envelope:              env,
		Occurrence:            contracts.Occurred(),
		PaymentID:             p.ID,
		OrderID:               p.OrderID,
		AmountCents:           p.Amount.ValueCents,
		Currency:              p.Amount.Currency,
		ProviderTransactionID: providerTransactionID,
	})
	return nil
}

// MarkCaptured records that authorized funds actually moved.
func (p *Payment) MarkCaptured(env contracts.Envelope) error {
	if err := p.transitionTo(StatusCaptured); err != nil {
		return err
	}
	p.Record(contracts.PaymentCaptured{
		Envelope:              env,
		Occurrence:            contracts.Occurred(),
		PaymentID:             p.ID,
		OrderID:               p.OrderID,
		AmountCents:           p.Amount.ValueCents,
		Currency:              p.Amount.Currency,
		ProviderTransactionID: *p.ProviderTransactionID,
	})
	return nil
}

// MarkFailed records a gateway decline or error as a fact. Failures are
// never raised from Captured or Settled; money already moved.
func (p *Payment) MarkFailed(reason, failureCode string, env contracts.Envelope) error {
	if p.Status == StatusCaptured || p.Status == StatusSettled {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot fail payment in terminal status "+string(p.Status),
			errors.ErrInvalidStateTransition,
		)
	}
	if err := p.transitionTo(StatusFailed); err != nil {
		return err
	}
	p.FailureReason = &reason
	p.FailureCode = &failureCode
	p.Record(contracts.PaymentFailed{
		Envelope:    env,
		Occurrence:  contracts.Occurred(),
		PaymentID:   p.ID,
		OrderID:     p.OrderID,
		Reason:      reason,
		FailureCode: failureCode,
	})
	return nil
}

// Cancel voids an authorized payment, releasing the hold on funds.
func (p *Payment) Cancel(env contracts.Envelope) error {
	if p.Status != StatusAuthorized {
		return errors.NewDomainError(
			"invalid_transition",
			"can only cancel authorized payments, current: "+string(p.Status),
			errors.ErrInvalidStateTransition,
		)
	}
	if err := p.transitionTo(StatusCancelled); err != nil {
		return err
	}
	p.Record(contracts.PaymentCancelled{
		Envelope:   env,
		Occurrence: contracts.Occurred(),
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
	})
	return nil
}

// MarkSettled records provider settlement confirmation for captured funds.
func (p *Payment) MarkSettled(providerSettlementID string, env contracts.Envelope) error {
	if p.Status != StatusCaptured {
		return errors.NewDomainError(
			"invalid_transition",
			"can only settle captured payments, current: "+string(p.Status),
			errors.ErrInvalidStateTransition,
		)
	}
	if err := p.transitionTo(StatusSettled); err != nil {
		return err
	}
	p.ProviderSettlementID = &providerSettlementID
	p.Record(contracts.PaymentSettled{
		Envelope:             env,
		Occurrence:           contracts.Occurred(),
		PaymentID:            p.ID,
		OrderID:              p.OrderID,
		AmountCents:          p.Amount.ValueCents,
		Currency:             p.Amount.Currency,
		ProviderSettlementID: providerSettlementID,
	})
	return nil
}

// IsTerminal checks if the payment is in a terminal state
func (p *Payment) IsTerminal() bool {
	return p.Status == StatusSettled ||
		p.Status == StatusFailed ||
		p.Status == StatusCancelled
}
