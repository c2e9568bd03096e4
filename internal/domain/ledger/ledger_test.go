package ledger

import (
	"testing"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDebit(t *testing.T) {
	transactionID := uuid.New()
	paymentID := uuid.New()

	e, err := NewDebit(transactionID, paymentID, AccountCustomerReceivable, 2500, "USD", "capture")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, transactionID, e.TransactionID)
	assert.Equal(t, paymentID, e.PaymentID)
	assert.Equal(t, AccountCustomerReceivable, e.AccountName)
	assert.Equal(t, int64(2500), e.DebitCents)
	assert.Zero(t, e.CreditCents)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestNewCredit(t *testing.T) {
	e, err := NewCredit(uuid.New(), uuid.New(), AccountRevenue, 2500, "USD", "capture")
	require.NoError(t, err)

	assert.Equal(t, int64(2500), e.CreditCents)
	assert.Zero(t, e.DebitCents)
}

func TestNewEntry_InvalidAmount(t *testing.T) {
	for _, cents := range []int64{0, -1} {
		_, err := NewDebit(uuid.New(), uuid.New(), AccountRevenue, cents, "USD", "x")
		assert.ErrorIs(t, err, domainErrors.ErrInvalidAmount)

		_, err = NewCredit(uuid.New(), uuid.New(), AccountRevenue, cents, "USD", "x")
		assert.ErrorIs(t, err, domainErrors.ErrInvalidAmount)
	}
}

func TestPairSharesTransactionID(t *testing.T) {
	transactionID := uuid.New()
	paymentID := uuid.New()

	debit, err := NewDebit(transactionID, paymentID, AccountCustomerReceivable, 1000, "USD", "capture")
	require.NoError(t, err)
	credit, err := NewCredit(transactionID, paymentID, AccountRevenue, 1000, "USD", "capture")
	require.NoError(t, err)

	assert.Equal(t, debit.TransactionID, credit.TransactionID)
	assert.Equal(t, debit.DebitCents, credit.CreditCents)
	assert.NotEqual(t, debit.ID, credit.ID)
}
