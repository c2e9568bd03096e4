package accounting

import (
	"context"
	"testing"

	"github.com/cassiomorais/checkout/internal/contracts"
	"github.com/cassiomorais/checkout/internal/domain/ledger"
	"github.com/cassiomorais/checkout/internal/testutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type accountingFixture struct {
	ledgerRepo *testutil.MockLedgerRepository
	outboxRepo *testutil.MockOutboxWriter
	handlers   map[string]func(ctx context.Context, msg contracts.Message) error
}

func newAccountingFixture(t *testing.T) *accountingFixture {
	t.Helper()
	f := &accountingFixture{
		ledgerRepo: testutil.NewMockLedgerRepository(),
		outboxRepo: testutil.NewMockOutboxWriter(),
		handlers:   make(map[string]func(ctx context.Context, msg contracts.Message) error),
	}
	h := NewEventHandlers(f.ledgerRepo, f.outboxRepo, &testutil.PassthroughTxManager{}, zerolog.Nop())
	h.Register(func(kind string, fn func(ctx context.Context, msg contracts.Message) error) {
		f.handlers[kind] = fn
	})
	return f
}

func (f *accountingFixture) deliver(t *testing.T, msg contracts.Message) error {
	t.Helper()
	fn, ok := f.handlers[msg.Kind()]
	require.True(t, ok, "no handler for %s", msg.Kind())
	return fn(context.Background(), msg)
}

func capturedEvent(paymentID uuid.UUID) contracts.PaymentCaptured {
	return contracts.PaymentCaptured{
		Envelope:              contracts.NewEnvelope(uuid.New().String(), contracts.KindCapturePayment),
		Occurrence:            contracts.Occurred(),
		PaymentID:             paymentID,
		OrderID:               uuid.New(),
		AmountCents:           2500,
		Currency:              "USD",
		ProviderTransactionID: "sim_auth_abc",
	}
}

func settledEvent(paymentID uuid.UUID) contracts.PaymentSettled {
	return contracts.PaymentSettled{
		Envelope:             contracts.NewEnvelope(uuid.New().String(), contracts.KindPaymentCaptured),
		Occurrence:           contracts.Occurred(),
		PaymentID:            paymentID,
		OrderID:              uuid.New(),
		AmountCents:          2500,
		Currency:             "USD",
		ProviderSettlementID: "stl_123",
	}
}

func TestOnPaymentCaptured_WritesBalancedPair(t *testing.T) {
	f := newAccountingFixture(t)
	paymentID := uuid.New()

	require.NoError(t, f.deliver(t, capturedEvent(paymentID)))

	entries := f.ledgerRepo.Entries()
	require.Len(t, entries, 2)

	debit, credit := entries[0], entries[1]
	assert.Equal(t, ledger.AccountCustomerReceivable, debit.AccountName)
	assert.Equal(t, int64(2500), debit.DebitCents)
	assert.Zero(t, debit.CreditCents)

	assert.Equal(t, ledger.AccountRevenue, credit.AccountName)
	assert.Equal(t, int64(2500), credit.CreditCents)
	assert.Zero(t, credit.DebitCents)

	assert.Equal(t, debit.TransactionID, credit.TransactionID)
	assert.Equal(t, paymentID, debit.PaymentID)

	assert.Equal(t, []string{contracts.KindLedgerEntryCreated}, f.outboxRepo.Kinds())
}

func TestOnPaymentCaptured_DuplicateDeliveryWritesNothing(t *testing.T) {
	f := newAccountingFixture(t)
	ev := capturedEvent(uuid.New())

	require.NoError(t, f.deliver(t, ev))
	require.NoError(t, f.deliver(t, ev))

	assert.Len(t, f.ledgerRepo.Entries(), 2)
	assert.Len(t, f.outboxRepo.Messages(), 1)
}

func TestOnPaymentSettled_ClearsReceivable(t *testing.T) {
	f := newAccountingFixture(t)
	paymentID := uuid.New()

	require.NoError(t, f.deliver(t, capturedEvent(paymentID)))
	require.NoError(t, f.deliver(t, settledEvent(paymentID)))

	entries := f.ledgerRepo.Entries()
	require.Len(t, entries, 4)

	settleDebit, settleCredit := entries[2], entries[3]
	assert.Equal(t, ledger.AccountSettlementClearing, settleDebit.AccountName)
	assert.Equal(t, int64(2500), settleDebit.DebitCents)
	assert.Equal(t, ledger.AccountCustomerReceivable, settleCredit.AccountName)
	assert.Equal(t, int64(2500), settleCredit.CreditCents)

	totals, err := f.ledgerRepo.SumTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, totals.DebitCents, totals.CreditCents)
}

func TestOnPaymentSettled_DuplicateDeliveryWritesNothing(t *testing.T) {
	f := newAccountingFixture(t)
	paymentID := uuid.New()

	require.NoError(t, f.deliver(t, capturedEvent(paymentID)))
	ev := settledEvent(paymentID)
	require.NoError(t, f.deliver(t, ev))
	require.NoError(t, f.deliver(t, ev))

	assert.Len(t, f.ledgerRepo.Entries(), 4)
}
