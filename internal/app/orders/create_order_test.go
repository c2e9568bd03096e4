package orders

import (
	"context"
	"testing"

	"github.com/cassiomorais/checkout/internal/contracts"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/money"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/testutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreateRequest() CreateOrderRequest {
	return CreateOrderRequest{
		CustomerID:     uuid.New(),
		AmountCents:    2500,
		Currency:       "USD",
		IdempotencyKey: "order-key-1",
	}
}

func TestCreateOrder_Success(t *testing.T) {
	orderRepo := testutil.NewMockOrderRepository()
	outboxRepo := testutil.NewMockOutboxWriter()
	bus := testutil.NewRecordingBus()
	uc := NewCreateOrderUseCase(orderRepo, outboxRepo, &testutil.PassthroughTxManager{}, bus, zerolog.Nop())

	o, err := uc.Execute(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, order.StatusPaymentAuthorizing, o.Status)
	assert.Empty(t, o.PendingEvents())

	assert.Equal(t, []string{
		contracts.KindOrderCreated,
		contracts.KindOrderPaymentAuthorizing,
	}, outboxRepo.Kinds())

	require.Len(t, bus.Sent, 1)
	cmd, ok := bus.Sent[0].(contracts.AuthorizePayment)
	require.True(t, ok)
	assert.Equal(t, o.ID, cmd.OrderID)
	assert.Equal(t, int64(2500), cmd.AmountCents)
	assert.Equal(t, "auth-"+o.ID.String(), cmd.IdempotencyKey)
	assert.Equal(t, o.ID.String(), cmd.CorrelationID)
}

func TestCreateOrder_Validation(t *testing.T) {
	uc := NewCreateOrderUseCase(
		testutil.NewMockOrderRepository(),
		testutil.NewMockOutboxWriter(),
		&testutil.PassthroughTxManager{},
		testutil.NewRecordingBus(),
		zerolog.Nop(),
	)

	tests := []struct {
		name   string
		mutate func(*CreateOrderRequest)
	}{
		{"missing customer", func(r *CreateOrderRequest) { r.CustomerID = uuid.Nil }},
		{"zero amount", func(r *CreateOrderRequest) { r.AmountCents = 0 }},
		{"negative amount", func(r *CreateOrderRequest) { r.AmountCents = -100 }},
		{"bad currency", func(r *CreateOrderRequest) { r.Currency = "USDT" }},
		{"missing key", func(r *CreateOrderRequest) { r.IdempotencyKey = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(&req)
			_, err := uc.Execute(context.Background(), req)
			require.Error(t, err)
			assert.True(t, domainErrors.IsDomain(err))
		})
	}
}

func TestCreateOrder_IdempotentReplay(t *testing.T) {
	orderRepo := testutil.NewMockOrderRepository()
	bus := testutil.NewRecordingBus()
	uc := NewCreateOrderUseCase(orderRepo, testutil.NewMockOutboxWriter(), &testutil.PassthroughTxManager{}, bus, zerolog.Nop())

	req := validCreateRequest()
	first, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)

	second, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, bus.Sent, 1, "replay must not send a second authorize command")
}

func TestCreateOrder_ConcurrentDuplicateReturnsWinner(t *testing.T) {
	// The lookup misses but the insert hits the unique constraint, which is
	// what a race between two requests with the same key looks like.
	winner, err := order.New(uuid.New(), money.New(2500, "USD"), "order-key-1")
	require.NoError(t, err)

	orderRepo := testutil.NewMockOrderRepository()
	looked := false
	orderRepo.GetByIdempotencyKeyFunc = func(ctx context.Context, key string) (*order.Order, error) {
		if !looked {
			looked = true
			return nil, domainErrors.ErrOrderNotFound
		}
		return winner, nil
	}
	orderRepo.CreateFunc = func(ctx context.Context, o *order.Order) error {
		return domainErrors.ErrDuplicateIdempotencyKey
	}

	bus := testutil.NewRecordingBus()
	uc := NewCreateOrderUseCase(orderRepo, testutil.NewMockOutboxWriter(), &testutil.PassthroughTxManager{}, bus, zerolog.Nop())

	o, err := uc.Execute(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, winner.ID, o.ID)
	assert.Empty(t, bus.Sent, "loser must not send an authorize command")
}
