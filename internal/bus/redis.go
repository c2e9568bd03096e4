package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cassiomorais/checkout/internal/contracts"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Wire field names shared by producer and consumer.
const (
	fieldKind          = "kind"
	fieldPayload       = "payload"
	fieldCorrelationID = "correlation_id"
	fieldCausationID   = "causation_id"
	fieldOccurredOn    = "occurred_on"
)

// RedisBus implements Bus on top of Redis streams.
type RedisBus struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewRedisBus(client *redis.Client, logger zerolog.Logger) *RedisBus {
	return &RedisBus{client: client, logger: logger}
}

// Publish appends an event to the shared event stream.
func (b *RedisBus) Publish(ctx context.Context, msg contracts.Message) error {
	return b.add(ctx, EventStream, msg)
}

// Send appends a command to the stream of the service that owns it.
func (b *RedisBus) Send(ctx context.Context, msg contracts.Message) error {
	stream, ok := CommandStream(msg.Kind())
	if !ok {
		return fmt.Errorf("no command stream for kind %q", msg.Kind())
	}
	return b.add(ctx, stream, msg)
}

func (b *RedisBus) add(ctx context.Context, stream string, msg contracts.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", msg.Kind(), err)
	}

	values := map[string]any{
		fieldKind:    msg.Kind(),
		fieldPayload: string(payload),
	}
	if env, ok := msg.(contracts.Enveloped); ok {
		e := env.Correlation()
		values[fieldCorrelationID] = e.CorrelationID
		values[fieldCausationID] = e.CausationID
	}
	if ev, ok := msg.(contracts.Event); ok {
		values[fieldOccurredOn] = ev.When().Format(time.RFC3339Nano)
	}

	id, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", msg.Kind(), stream, err)
	}

	b.logger.Debug().
		Str("stream", stream).
		Str("kind", msg.Kind()).
		Str("message_id", id).
		Msg("Message published")
	return nil
}
