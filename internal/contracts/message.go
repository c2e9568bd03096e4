package contracts

import "time"

// Message is anything that travels through the outbox or over the bus.
// Kind returns the stable wire tag used by the registry to decode payloads;
// renaming a Go type never changes the tag.
type Message interface {
	Kind() string
}

// Event is a message describing an immutable fact. Events are fanned out to
// every interested consumer group.
type Event interface {
	Message
	When() time.Time
}

// Envelope carries the causal-chain metadata common to every command and
// event. Correlation identifies the whole workflow (the originating order),
// causation identifies the message that directly produced this one.
type Envelope struct {
	CorrelationID string `json:"correlationId"`
	CausationID   string `json:"causationId"`
}

// NewEnvelope builds an envelope for a message caused by the given parent.
func NewEnvelope(correlationID, causationID string) Envelope {
	return Envelope{CorrelationID: correlationID, CausationID: causationID}
}

// Correlation exposes the envelope through the Enveloped interface. Embedding
// Envelope in a message struct promotes this method, so every command and
// event satisfies Enveloped for free.
func (e Envelope) Correlation() Envelope { return e }

// Enveloped is implemented by any message carrying causal-chain metadata.
type Enveloped interface {
	Correlation() Envelope
}
