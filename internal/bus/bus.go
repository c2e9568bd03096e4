package bus

import (
	"context"

	"github.com/cassiomorais/checkout/internal/contracts"
)

// Stream names. Events share a single fan-out stream that every service
// reads through its own consumer group; commands go to the stream owned by
// the one service that executes them.
const (
	EventStream          = "checkout:events"
	PaymentCommandStream = "checkout:commands:payments"
)

// commandStreams routes a command kind to its owning service's stream.
var commandStreams = map[string]string{
	contracts.KindAuthorizePayment: PaymentCommandStream,
	contracts.KindCapturePayment:   PaymentCommandStream,
	contracts.KindCancelPayment:    PaymentCommandStream,
}

// CommandStream returns the destination stream for a command kind.
func CommandStream(kind string) (string, bool) {
	s, ok := commandStreams[kind]
	return s, ok
}

// Bus publishes messages between services. Publish fans an event out to all
// consumer groups on the event stream; Send delivers a command to exactly
// one service. Both are at-least-once: consumers must tolerate redelivery.
type Bus interface {
	Publish(ctx context.Context, msg contracts.Message) error
	Send(ctx context.Context, msg contracts.Message) error
}
