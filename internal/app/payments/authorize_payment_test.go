package payments

import (
	"context"
	"testing"

	"github.com/cassiomorais/checkout/internal/contracts"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/gateway"
	"github.com/cassiomorais/checkout/internal/testutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentsFixture struct {
	paymentRepo *testutil.MockPaymentRepository
	outboxRepo  *testutil.MockOutboxWriter
	processed   *testutil.MockProcessedCommands
	gw          gateway.Gateway
}

func newPaymentsFixture(opts ...gateway.SimulatedOption) *paymentsFixture {
	opts = append([]gateway.SimulatedOption{gateway.WithLatency(0)}, opts...)
	return &paymentsFixture{
		paymentRepo: testutil.NewMockPaymentRepository(),
		outboxRepo:  testutil.NewMockOutboxWriter(),
		processed:   testutil.NewMockProcessedCommands(),
		gw:          gateway.NewSimulated(opts...),
	}
}

func (f *paymentsFixture) authorizeHandler() *AuthorizePaymentHandler {
	return NewAuthorizePaymentHandler(
		f.paymentRepo, f.outboxRepo, &testutil.PassthroughTxManager{}, f.processed, f.gw, zerolog.Nop(),
	)
}

func authorizeCommand(orderID uuid.UUID, amountCents int64) contracts.AuthorizePayment {
	return contracts.AuthorizePayment{
		Envelope:       contracts.NewEnvelope(orderID.String(), contracts.KindOrderCreated),
		OrderID:        orderID,
		AmountCents:    amountCents,
		Currency:       "USD",
		IdempotencyKey: "auth-" + orderID.String(),
	}
}

func (f *paymentsFixture) paymentFor(t *testing.T, orderID uuid.UUID) *payment.Payment {
	t.Helper()
	p, err := f.paymentRepo.GetByIdempotencyKey(context.Background(), "auth-"+orderID.String())
	require.NoError(t, err)
	return p
}

func TestAuthorizePayment_Approved(t *testing.T) {
	f := newPaymentsFixture()
	orderID := uuid.New()

	err := f.authorizeHandler().Handle(context.Background(), authorizeCommand(orderID, 2500))
	require.NoError(t, err)

	p := f.paymentFor(t, orderID)
	assert.Equal(t, payment.StatusAuthorized, p.Status)
	require.NotNil(t, p.ProviderTransactionID)
	assert.Equal(t, []string{contracts.KindPaymentAuthorized}, f.outboxRepo.Kinds())

	seen, err := f.processed.Seen(context.Background(), "auth-"+orderID.String())
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestAuthorizePayment_Declined(t *testing.T) {
	f := newPaymentsFixture()
	orderID := uuid.New()

	err := f.authorizeHandler().Handle(context.Background(), authorizeCommand(orderID, 2599))
	require.NoError(t, err)

	p := f.paymentFor(t, orderID)
	assert.Equal(t, payment.StatusFailed, p.Status)
	require.NotNil(t, p.FailureCode)
	assert.Equal(t, "INSUFFICIENT_FUNDS", *p.FailureCode)
	assert.Equal(t, []string{contracts.KindPaymentFailed}, f.outboxRepo.Kinds())
}

func TestAuthorizePayment_ProviderTimeout(t *testing.T) {
	f := newPaymentsFixture()
	orderID := uuid.New()

	err := f.authorizeHandler().Handle(context.Background(), authorizeCommand(orderID, 1_000_001))
	require.NoError(t, err, "a provider failure is a payment outcome, not a handler error")

	p := f.paymentFor(t, orderID)
	assert.Equal(t, payment.StatusFailed, p.Status)
	require.NotNil(t, p.FailureCode)
	assert.Equal(t, "PROVIDER_ERROR", *p.FailureCode)
	assert.Equal(t, []string{contracts.KindPaymentFailed}, f.outboxRepo.Kinds())
}

func TestAuthorizePayment_Redelivery(t *testing.T) {
	f := newPaymentsFixture()
	orderID := uuid.New()
	cmd := authorizeCommand(orderID, 2500)
	h := f.authorizeHandler()

	require.NoError(t, h.Handle(context.Background(), cmd))
	require.NoError(t, h.Handle(context.Background(), cmd))

	assert.Len(t, f.outboxRepo.Messages(), 1, "redelivery must not authorize twice")
}

func TestAuthorizePayment_ExistingPaymentShortCircuits(t *testing.T) {
	// The dedup row is missing but the payment exists, which is what a crash
	// between Create and Record looks like after redelivery.
	f := newPaymentsFixture()
	orderID := uuid.New()
	cmd := authorizeCommand(orderID, 2500)
	h := f.authorizeHandler()

	require.NoError(t, h.Handle(context.Background(), cmd))
	f.processed = testutil.NewMockProcessedCommands()
	h = f.authorizeHandler()

	require.NoError(t, h.Handle(context.Background(), cmd))
	assert.Len(t, f.outboxRepo.Messages(), 1)
}

func TestAuthorizePayment_InvalidCommand(t *testing.T) {
	f := newPaymentsFixture()

	cmd := authorizeCommand(uuid.New(), 2500)
	cmd.AmountCents = 0

	err := f.authorizeHandler().Handle(context.Background(), cmd)
	require.Error(t, err)
	assert.Empty(t, f.outboxRepo.Messages())
}
