package orders

import (
	"context"
	"testing"

	"github.com/cassiomorais/checkout/internal/contracts"
	"github.com/cassiomorais/checkout/internal/domain/money"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/testutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlersFixture struct {
	orderRepo  *testutil.MockOrderRepository
	outboxRepo *testutil.MockOutboxWriter
	handlers   map[string]func(ctx context.Context, msg contracts.Message) error
}

func newHandlersFixture(t *testing.T) *handlersFixture {
	t.Helper()
	f := &handlersFixture{
		orderRepo:  testutil.NewMockOrderRepository(),
		outboxRepo: testutil.NewMockOutboxWriter(),
		handlers:   make(map[string]func(ctx context.Context, msg contracts.Message) error),
	}
	h := NewEventHandlers(f.orderRepo, f.outboxRepo, &testutil.PassthroughTxManager{}, zerolog.Nop())
	h.Register(func(kind string, fn func(ctx context.Context, msg contracts.Message) error) {
		f.handlers[kind] = fn
	})
	return f
}

// seedOrder puts an order in the repo at the given stage of the workflow.
func (f *handlersFixture) seedOrder(t *testing.T, status order.Status) *order.Order {
	t.Helper()
	o, err := order.New(uuid.New(), money.New(2500, "USD"), "key-"+uuid.New().String())
	require.NoError(t, err)
	o.ClearEvents()

	env := contracts.NewEnvelope(o.ID.String(), o.ID.String())
	switch status {
	case order.StatusCreated:
	case order.StatusPaymentAuthorizing:
		require.NoError(t, o.StartPaymentAuthorization(env))
	case order.StatusAuthorized:
		require.NoError(t, o.StartPaymentAuthorization(env))
		require.NoError(t, o.MarkAuthorized(uuid.New(), env))
	case order.StatusCapturing:
		require.NoError(t, o.StartPaymentAuthorization(env))
		require.NoError(t, o.MarkAuthorized(uuid.New(), env))
		require.NoError(t, o.StartCapture(env))
	default:
		t.Fatalf("unsupported seed status %s", status)
	}
	o.ClearEvents()
	require.NoError(t, f.orderRepo.Create(context.Background(), o))
	return o
}

func (f *handlersFixture) deliver(t *testing.T, msg contracts.Message) error {
	t.Helper()
	fn, ok := f.handlers[msg.Kind()]
	require.True(t, ok, "no handler for %s", msg.Kind())
	return fn(context.Background(), msg)
}

func TestOnPaymentAuthorized(t *testing.T) {
	t.Run("advances order and links payment", func(t *testing.T) {
		f := newHandlersFixture(t)
		o := f.seedOrder(t, order.StatusPaymentAuthorizing)
		paymentID := uuid.New()

		err := f.deliver(t, contracts.PaymentAuthorized{
			Envelope:  contracts.NewEnvelope(o.ID.String(), "payment"),
			PaymentID: paymentID,
			OrderID:   o.ID,
		})
		require.NoError(t, err)

		got, err := f.orderRepo.GetByID(context.Background(), o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusAuthorized, got.Status)
		require.NotNil(t, got.PaymentID)
		assert.Equal(t, paymentID, *got.PaymentID)
		assert.Equal(t, []string{contracts.KindOrderAuthorized}, f.outboxRepo.Kinds())
	})

	t.Run("fast-forwards an order still in created", func(t *testing.T) {
		f := newHandlersFixture(t)
		o := f.seedOrder(t, order.StatusCreated)

		err := f.deliver(t, contracts.PaymentAuthorized{
			Envelope:  contracts.NewEnvelope(o.ID.String(), "payment"),
			PaymentID: uuid.New(),
			OrderID:   o.ID,
		})
		require.NoError(t, err)

		got, _ := f.orderRepo.GetByID(context.Background(), o.ID)
		assert.Equal(t, order.StatusAuthorized, got.Status)
	})

	t.Run("redelivery is a no-op", func(t *testing.T) {
		f := newHandlersFixture(t)
		o := f.seedOrder(t, order.StatusAuthorized)

		err := f.deliver(t, contracts.PaymentAuthorized{
			Envelope:  contracts.NewEnvelope(o.ID.String(), "payment"),
			PaymentID: *o.PaymentID,
			OrderID:   o.ID,
		})
		require.NoError(t, err)
		assert.Empty(t, f.outboxRepo.Messages())
	})

	t.Run("unknown order is dropped", func(t *testing.T) {
		f := newHandlersFixture(t)
		err := f.deliver(t, contracts.PaymentAuthorized{
			Envelope:  contracts.NewEnvelope("corr", "payment"),
			PaymentID: uuid.New(),
			OrderID:   uuid.New(),
		})
		assert.NoError(t, err)
	})
}

func TestOnPaymentCaptured(t *testing.T) {
	t.Run("finalizes the order", func(t *testing.T) {
		f := newHandlersFixture(t)
		o := f.seedOrder(t, order.StatusCapturing)

		err := f.deliver(t, contracts.PaymentCaptured{
			Envelope:  contracts.NewEnvelope(o.ID.String(), "payment"),
			PaymentID: *o.PaymentID,
			OrderID:   o.ID,
		})
		require.NoError(t, err)

		got, _ := f.orderRepo.GetByID(context.Background(), o.ID)
		assert.Equal(t, order.StatusCaptured, got.Status)
		assert.Equal(t, []string{contracts.KindOrderCaptured}, f.outboxRepo.Kinds())
	})

	t.Run("redelivery after capture is a no-op", func(t *testing.T) {
		f := newHandlersFixture(t)
		o := f.seedOrder(t, order.StatusCapturing)
		ev := contracts.PaymentCaptured{
			Envelope:  contracts.NewEnvelope(o.ID.String(), "payment"),
			PaymentID: *o.PaymentID,
			OrderID:   o.ID,
		}

		require.NoError(t, f.deliver(t, ev))
		require.NoError(t, f.deliver(t, ev))
		assert.Len(t, f.outboxRepo.Messages(), 1)
	})
}

func TestOnPaymentFailed(t *testing.T) {
	t.Run("fails the order with the reason", func(t *testing.T) {
		f := newHandlersFixture(t)
		o := f.seedOrder(t, order.StatusPaymentAuthorizing)

		err := f.deliver(t, contracts.PaymentFailed{
			Envelope:    contracts.NewEnvelope(o.ID.String(), "payment"),
			PaymentID:   uuid.New(),
			OrderID:     o.ID,
			Reason:      "card has insufficient funds",
			FailureCode: "INSUFFICIENT_FUNDS",
		})
		require.NoError(t, err)

		got, _ := f.orderRepo.GetByID(context.Background(), o.ID)
		assert.Equal(t, order.StatusFailed, got.Status)
		require.NotNil(t, got.FailureReason)
		assert.Equal(t, "card has insufficient funds", *got.FailureReason)
		assert.Equal(t, []string{contracts.KindOrderFailed}, f.outboxRepo.Kinds())
	})

	t.Run("terminal order is left alone", func(t *testing.T) {
		f := newHandlersFixture(t)
		o := f.seedOrder(t, order.StatusCapturing)
		require.NoError(t, f.deliver(t, contracts.PaymentCaptured{
			Envelope:  contracts.NewEnvelope(o.ID.String(), "payment"),
			PaymentID: *o.PaymentID,
			OrderID:   o.ID,
		}))

		err := f.deliver(t, contracts.PaymentFailed{
			Envelope: contracts.NewEnvelope(o.ID.String(), "payment"),
			OrderID:  o.ID,
			Reason:   "late failure",
		})
		require.NoError(t, err)

		got, _ := f.orderRepo.GetByID(context.Background(), o.ID)
		assert.Equal(t, order.StatusCaptured, got.Status)
	})
}
