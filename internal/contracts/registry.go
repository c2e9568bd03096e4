package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind marks a message whose kind has no registered decoder.
// The outbox dispatcher treats this as a poison message: without a code
// change re-resolution can never succeed.
var ErrUnknownKind = errors.New("unknown message kind")

// Class distinguishes fan-out events from point-to-point commands so the
// dispatcher knows whether to Publish or Send a decoded outbox message.
type Class int

const (
	ClassEvent Class = iota
	ClassCommand
)

// DecodeFunc turns a serialized payload back into a typed message.
type DecodeFunc func(payload []byte) (Message, error)

type registration struct {
	class  Class
	decode DecodeFunc
}

// Registry maps stable kind tags to decode functions. Registration is
// explicit; there is no reflection on type names, so renaming a Go type
// cannot break replay of old outbox rows.
type Registry struct {
	kinds map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]registration)}
}

func (r *Registry) RegisterEvent(kind string, decode DecodeFunc) {
	r.kinds[kind] = registration{class: ClassEvent, decode: decode}
}

func (r *Registry) RegisterCommand(kind string, decode DecodeFunc) {
	r.kinds[kind] = registration{class: ClassCommand, decode: decode}
}

// Known reports whether the kind has a registered decoder.
func (r *Registry) Known(kind string) bool {
	_, ok := r.kinds[kind]
	return ok
}

// Decode resolves the kind and decodes the payload into its concrete type.
func (r *Registry) Decode(kind string, payload []byte) (Message, Class, error) {
	reg, ok := r.kinds[kind]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	msg, err := reg.decode(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", kind, err)
	}
	return msg, reg.class, nil
}

func decode[T Message](payload []byte) (Message, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Builtin returns a registry with every command and event kind this module
// ships. Service binaries share one registry; a consumer simply ignores
// kinds it has no handler for.
func Builtin() *Registry {
	r := NewRegistry()

	r.RegisterCommand(KindAuthorizePayment, decode[AuthorizePayment])
	r.RegisterCommand(KindCapturePayment, decode[CapturePayment])
	r.RegisterCommand(KindCancelPayment, decode[CancelPayment])

	r.RegisterEvent(KindOrderCreated, decode[OrderCreated])
	r.RegisterEvent(KindOrderPaymentAuthorizing, decode[OrderPaymentAuthorizing])
	r.RegisterEvent(KindOrderAuthorized, decode[OrderAuthorized])
	r.RegisterEvent(KindOrderCapturing, decode[OrderCapturing])
	r.RegisterEvent(KindOrderCaptured, decode[OrderCaptured])
	r.RegisterEvent(KindOrderFailed, decode[OrderFailed])
	r.RegisterEvent(KindOrderCancelled, decode[OrderCancelled])

	r.RegisterEvent(KindPaymentAuthorized, decode[PaymentAuthorized])
	r.RegisterEvent(KindPaymentCaptured, decode[PaymentCaptured])
	r.RegisterEvent(KindPaymentFailed, decode[PaymentFailed])
	r.RegisterEvent(KindPaymentCancelled, decode[PaymentCancelled])
	r.RegisterEvent(KindPaymentSettled, decode[PaymentSettled])

	r.RegisterEvent(KindLedgerEntryCreated, decode[LedgerEntryCreated])

	return r
}
