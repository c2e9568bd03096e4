package contracts

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_DecodeEvent(t *testing.T) {
	r := Builtin()

	orig := PaymentAuthorized{
		Envelope:              NewEnvelope("corr-1", "cause-1"),
		Occurrence:            Occurred(),
		PaymentID:             uuid.New(),
		OrderID:               uuid.New(),
		AmountCents:           2500,
		Currency:              "USD",
		ProviderTransactionID: "sim_auth_abc",
	}
	payload, err := json.Marshal(orig)
	require.NoError(t, err)

	msg, class, err := r.Decode(KindPaymentAuthorized, payload)
	require.NoError(t, err)
	assert.Equal(t, ClassEvent, class)

	decoded, ok := msg.(PaymentAuthorized)
	require.True(t, ok)
	assert.Equal(t, orig.PaymentID, decoded.PaymentID)
	assert.Equal(t, orig.AmountCents, decoded.AmountCents)
	assert.Equal(t, "corr-1", decoded.CorrelationID)
	assert.Equal(t, KindPaymentAuthorized, decoded.Kind())
}

func TestRegistry_DecodeCommand(t *testing.T) {
	r := Builtin()

	orig := AuthorizePayment{
		Envelope:       NewEnvelope("corr-1", "cause-1"),
		OrderID:        uuid.New(),
		AmountCents:    2500,
		Currency:       "USD",
		IdempotencyKey: "auth-1",
	}
	payload, err := json.Marshal(orig)
	require.NoError(t, err)

	msg, class, err := r.Decode(KindAuthorizePayment, payload)
	require.NoError(t, err)
	assert.Equal(t, ClassCommand, class)

	decoded, ok := msg.(AuthorizePayment)
	require.True(t, ok)
	assert.Equal(t, orig.OrderID, decoded.OrderID)
	assert.Equal(t, orig.IdempotencyKey, decoded.IdempotencyKey)
}

func TestRegistry_UnknownKind(t *testing.T) {
	r := Builtin()

	_, _, err := r.Decode("no.such.kind", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.False(t, r.Known("no.such.kind"))
}

func TestRegistry_MalformedPayload(t *testing.T) {
	r := Builtin()

	_, _, err := r.Decode(KindOrderCreated, []byte(`{not json`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownKind)
}

func TestRegistry_KnownCoversAllBuiltins(t *testing.T) {
	r := Builtin()

	kinds := []string{
		KindAuthorizePayment, KindCapturePayment, KindCancelPayment,
		KindOrderCreated, KindOrderPaymentAuthorizing, KindOrderAuthorized,
		KindOrderCapturing, KindOrderCaptured, KindOrderFailed, KindOrderCancelled,
		KindPaymentAuthorized, KindPaymentCaptured, KindPaymentFailed,
		KindPaymentCancelled, KindPaymentSettled,
		KindLedgerEntryCreated,
	}
	for _, k := range kinds {
		assert.True(t, r.Known(k), k)
	}
}
