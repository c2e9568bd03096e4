package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Totals is the aggregate view reconciliation works from.
type Totals struct {
	DebitCents  int64
	CreditCents int64
	EntryCount  int64
}

// Repository is the persistence port for ledger entries. There is no update
// or delete: the ledger is append-only.
type Repository interface {
	Insert(ctx context.Context, entries ...*Entry) error
	GetByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*Entry, error)
	SumTotals(ctx context.Context) (*Totals, error)
}
