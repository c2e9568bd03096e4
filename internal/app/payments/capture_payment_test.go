package payments

import (
	"context"
	"testing"

	"github.com/cassiomorais/checkout/internal/contracts"
	"github.com/cassiomorais/checkout/internal/domain/money"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/gateway"
	"github.com/cassiomorais/checkout/internal/testutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *paymentsFixture) captureHandler() *CapturePaymentHandler {
	return NewCapturePaymentHandler(
		f.paymentRepo, f.outboxRepo, &testutil.PassthroughTxManager{}, f.processed, f.gw, zerolog.Nop(),
	)
}

func (f *paymentsFixture) cancelHandler() *CancelPaymentHandler {
	return NewCancelPaymentHandler(
		f.paymentRepo, f.outboxRepo, &testutil.PassthroughTxManager{}, f.processed, zerolog.Nop(),
	)
}

// seedAuthorizedPayment stores an authorized payment with no pending events.
func (f *paymentsFixture) seedAuthorizedPayment(t *testing.T, orderID uuid.UUID) *payment.Payment {
	t.Helper()
	p, err := payment.New(orderID, money.New(2500, "USD"), "auth-"+orderID.String())
	require.NoError(t, err)
	env := contracts.NewEnvelope(orderID.String(), contracts.KindAuthorizePayment)
	require.NoError(t, p.MarkAuthorized("sim_auth_"+uuid.New().String()[:8], env))
	p.ClearEvents()
	require.NoError(t, f.paymentRepo.Create(context.Background(), p))
	return p
}

func captureCommand(p *payment.Payment) contracts.CapturePayment {
	return contracts.CapturePayment{
		Envelope:       contracts.NewEnvelope(p.OrderID.String(), contracts.KindOrderCapturing),
		PaymentID:      p.ID,
		OrderID:        p.OrderID,
		IdempotencyKey: "capture-" + p.OrderID.String(),
	}
}

func TestCapturePayment_Success(t *testing.T) {
	f := newPaymentsFixture()
	p := f.seedAuthorizedPayment(t, uuid.New())

	err := f.captureHandler().Handle(context.Background(), captureCommand(p))
	require.NoError(t, err)

	got, err := f.paymentRepo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCaptured, got.Status)
	assert.Equal(t, []string{contracts.KindPaymentCaptured}, f.outboxRepo.Kinds())
}

func TestCapturePayment_ProviderFailure(t *testing.T) {
	f := newPaymentsFixture(gateway.WithCaptureFailureRate(1.0))
	p := f.seedAuthorizedPayment(t, uuid.New())

	err := f.captureHandler().Handle(context.Background(), captureCommand(p))
	require.NoError(t, err)

	got, _ := f.paymentRepo.GetByID(context.Background(), p.ID)
	assert.Equal(t, payment.StatusFailed, got.Status)
	require.NotNil(t, got.FailureCode)
	assert.Equal(t, "CAPTURE_ERROR", *got.FailureCode)
	assert.Equal(t, []string{contracts.KindPaymentFailed}, f.outboxRepo.Kinds())
}

func TestCapturePayment_Redelivery(t *testing.T) {
	f := newPaymentsFixture()
	p := f.seedAuthorizedPayment(t, uuid.New())
	cmd := captureCommand(p)
	h := f.captureHandler()

	require.NoError(t, h.Handle(context.Background(), cmd))
	require.NoError(t, h.Handle(context.Background(), cmd))

	assert.Len(t, f.outboxRepo.Messages(), 1, "redelivery must not capture twice")
}

func TestCapturePayment_AlreadyCapturedWithoutDedupRow(t *testing.T) {
	f := newPaymentsFixture()
	p := f.seedAuthorizedPayment(t, uuid.New())
	env := contracts.NewEnvelope(p.OrderID.String(), contracts.KindCapturePayment)
	require.NoError(t, p.MarkCaptured(env))
	p.ClearEvents()

	err := f.captureHandler().Handle(context.Background(), captureCommand(p))
	require.NoError(t, err)
	assert.Empty(t, f.outboxRepo.Messages())
}

func TestCapturePayment_UnknownPayment(t *testing.T) {
	f := newPaymentsFixture()

	cmd := contracts.CapturePayment{
		Envelope:       contracts.NewEnvelope("corr", contracts.KindOrderCapturing),
		PaymentID:      uuid.New(),
		OrderID:        uuid.New(),
		IdempotencyKey: "capture-x",
	}
	err := f.captureHandler().Handle(context.Background(), cmd)
	assert.NoError(t, err, "unknown payment is logged and dropped")
}

func TestCancelPayment(t *testing.T) {
	t.Run("releases an authorized hold", func(t *testing.T) {
		f := newPaymentsFixture()
		p := f.seedAuthorizedPayment(t, uuid.New())

		cmd := contracts.CancelPayment{
			Envelope:       contracts.NewEnvelope(p.OrderID.String(), contracts.KindOrderCancelled),
			PaymentID:      p.ID,
			OrderID:        p.OrderID,
			IdempotencyKey: "cancel-" + p.OrderID.String(),
		}
		require.NoError(t, f.cancelHandler().Handle(context.Background(), cmd))

		got, _ := f.paymentRepo.GetByID(context.Background(), p.ID)
		assert.Equal(t, payment.StatusCancelled, got.Status)
		assert.Equal(t, []string{contracts.KindPaymentCancelled}, f.outboxRepo.Kinds())
	})

	t.Run("captured payment cannot be cancelled", func(t *testing.T) {
		f := newPaymentsFixture()
		p := f.seedAuthorizedPayment(t, uuid.New())
		env := contracts.NewEnvelope(p.OrderID.String(), contracts.KindCapturePayment)
		require.NoError(t, p.MarkCaptured(env))
		p.ClearEvents()

		cmd := contracts.CancelPayment{
			Envelope:       contracts.NewEnvelope(p.OrderID.String(), contracts.KindOrderCancelled),
			PaymentID:      p.ID,
			OrderID:        p.OrderID,
			IdempotencyKey: "cancel-" + p.OrderID.String(),
		}
		err := f.cancelHandler().Handle(context.Background(), cmd)
		require.Error(t, err)

		got, _ := f.paymentRepo.GetByID(context.Background(), p.ID)
		assert.Equal(t, payment.StatusCaptured, got.Status)
	})
}
