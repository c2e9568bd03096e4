package ledger

import (
	"time"

	"github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/google/uuid"
)

// Well-known account names. Constants prevent typos from splitting an
// account into two.
const (
	AccountCustomerReceivable = "CustomerReceivable"
	AccountRevenue            = "Revenue"
	AccountSettlementClearing = "SettlementClearing"
	AccountAdjustmentExpense  = "AdjustmentExpense"
)

// Entry is one side of a double-entry pair. Exactly one of DebitCents and
// CreditCents is nonzero, and both sides of a pair share a TransactionID.
//
// Entries are immutable once created. Corrections are new compensating
// entries, never edits; that is what keeps the audit trail complete and
// the balance invariant checkable.
type Entry struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	PaymentID     uuid.UUID
	AccountName   string
	DebitCents    int64
	CreditCents   int64
	Currency      string
	Description   string
	CreatedAt     time.Time
}

// NewDebit creates the debit side of a pair.
func NewDebit(transactionID, paymentID uuid.UUID, accountName string, amountCents int64, currency, description string) (*Entry, error) {
	if err := validateAmount(amountCents); err != nil {
		return nil, err
	}
	return &Entry{
		ID:            uuid.New(),
		TransactionID: transactionID,
		PaymentID:     paymentID,
		AccountName:   accountName,
		DebitCents:    amountCents,
		Currency:      currency,
		Description:   description,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// NewCredit creates the credit side of a pair.
func NewCredit(transactionID, paymentID uuid.UUID, accountName string, amountCents int64, currency, description string) (*Entry, error) {
	if err := validateAmount(amountCents); err != nil {
		return nil, err
	}
	return &Entry{
		ID:            uuid.New(),
		TransactionID: transactionID,
		PaymentID:     paymentID,
		AccountName:   accountName,
		CreditCents:   amountCents,
		Currency:      currency,
		Description:   description,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func validateAmount(amountCents int64) error {
	if amountCents <= 0 {
		return errors.NewDomainError(
			"invalid_ledger_amount",
			"ledger entry amount must be positive",
			errors.ErrInvalidAmount,
		)
	}
	return nil
}
