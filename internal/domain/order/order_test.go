package order

import (
	"testing"

	"github.com/cassiomorais/checkout/internal/contracts"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/money"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := New(uuid.New(), money.New(2500, "usd"), "key-1")
	require.NoError(t, err)
	return o
}

func env(o *Order) contracts.Envelope {
	return contracts.NewEnvelope(o.ID.String(), o.ID.String())
}

func TestNew(t *testing.T) {
	customerID := uuid.New()
	o, err := New(customerID, money.New(2500, "usd"), "key-1")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, o.ID)
	assert.Equal(t, customerID, o.CustomerID)
	assert.Equal(t, StatusCreated, o.Status)
	assert.Equal(t, "USD", o.Amount.Currency)
	assert.Equal(t, int64(2500), o.Amount.ValueCents)
	assert.Equal(t, 1, o.Version)

	events := o.PendingEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(contracts.OrderCreated)
	require.True(t, ok)
	assert.Equal(t, o.ID, created.OrderID)
	assert.Equal(t, o.ID.String(), created.CorrelationID)
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		amount   money.Amount
		key      string
	}{
		{"zero amount", money.New(0, "USD"), "key-1"},
		{"negative amount", money.New(-100, "USD"), "key-1"},
		{"bad currency", money.New(100, "US"), "key-1"},
		{"empty idempotency key", money.New(100, "USD"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(uuid.New(), tt.amount, tt.key)
			assert.Error(t, err)
		})
	}
}

func TestOrder_HappyPath(t *testing.T) {
	o := newTestOrder(t)
	paymentID := uuid.New()

	require.NoError(t, o.StartPaymentAuthorization(env(o)))
	assert.Equal(t, StatusPaymentAuthorizing, o.Status)

	require.NoError(t, o.MarkAuthorized(paymentID, env(o)))
	assert.Equal(t, StatusAuthorized, o.Status)
	require.NotNil(t, o.PaymentID)
	assert.Equal(t, paymentID, *o.PaymentID)

	require.NoError(t, o.StartCapture(env(o)))
	assert.Equal(t, StatusCapturing, o.Status)

	require.NoError(t, o.MarkCaptured(env(o)))
	assert.Equal(t, StatusCaptured, o.Status)
	assert.True(t, o.IsTerminal())

	// Creation plus one event per transition.
	assert.Len(t, o.PendingEvents(), 5)
}

func TestOrder_IllegalTransitions(t *testing.T) {
	o := newTestOrder(t)

	// Cannot capture before authorization.
	err := o.StartCapture(env(o))
	assert.ErrorIs(t, err, domainErrors.ErrInvalidStateTransition)
	assert.Equal(t, StatusCreated, o.Status)

	// Cannot mark authorized straight from created.
	err = o.MarkAuthorized(uuid.New(), env(o))
	assert.ErrorIs(t, err, domainErrors.ErrInvalidStateTransition)
}

func TestOrder_MarkFailed(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.StartPaymentAuthorization(env(o)))

	require.NoError(t, o.MarkFailed("card declined", env(o)))
	assert.Equal(t, StatusFailed, o.Status)
	require.NotNil(t, o.FailureReason)
	assert.Equal(t, "card declined", *o.FailureReason)
	assert.True(t, o.IsTerminal())
}

func TestOrder_MarkFailed_CapturedRejected(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.StartPaymentAuthorization(env(o)))
	require.NoError(t, o.MarkAuthorized(uuid.New(), env(o)))
	require.NoError(t, o.StartCapture(env(o)))
	require.NoError(t, o.MarkCaptured(env(o)))

	err := o.MarkFailed("too late", env(o))
	assert.ErrorIs(t, err, domainErrors.ErrInvalidStateTransition)
	assert.Equal(t, StatusCaptured, o.Status)
}

func TestOrder_Cancel(t *testing.T) {
	t.Run("from created", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.Cancel(env(o)))
		assert.Equal(t, StatusCancelled, o.Status)
	})

	t.Run("from authorized", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.StartPaymentAuthorization(env(o)))
		require.NoError(t, o.MarkAuthorized(uuid.New(), env(o)))
		require.NoError(t, o.Cancel(env(o)))
		assert.Equal(t, StatusCancelled, o.Status)
	})

	t.Run("captured rejected", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.StartPaymentAuthorization(env(o)))
		require.NoError(t, o.MarkAuthorized(uuid.New(), env(o)))
		require.NoError(t, o.StartCapture(env(o)))
		require.NoError(t, o.MarkCaptured(env(o)))

		err := o.Cancel(env(o))
		require.Error(t, err)
		var domainErr *domainErrors.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "cannot_cancel_captured", domainErr.Code)
	})

	t.Run("cancel twice rejected", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.Cancel(env(o)))

		err := o.Cancel(env(o))
		require.Error(t, err)
		var domainErr *domainErrors.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "already_terminal", domainErr.Code)
	})
}

func TestOrder_FailedTransitionRecordsNoEvent(t *testing.T) {
	o := newTestOrder(t)
	o.ClearEvents()

	_ = o.StartCapture(env(o))
	assert.Empty(t, o.PendingEvents())
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusCreated, StatusPaymentAuthorizing, true},
		{StatusCreated, StatusCaptured, false},
		{StatusPaymentAuthorizing, StatusAuthorized, true},
		{StatusAuthorized, StatusCapturing, true},
		{StatusCapturing, StatusCaptured, true},
		{StatusCaptured, StatusCancelled, false},
		{StatusFailed, StatusCreated, false},
		{StatusCancelled, StatusPaymentAuthorizing, false},
	}

	for _, tt := range tests {
		o := &Order{Status: tt.from}
		assert.Equal(t, tt.allowed, o.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}
