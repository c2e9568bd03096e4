package bus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cassiomorais/checkout/internal/contracts"
	domainerrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// HandlerFunc processes one decoded message. Returning a domain error acks
// the message (retrying cannot change a business outcome); any other error
// leaves it pending for redelivery.
type HandlerFunc func(ctx context.Context, msg contracts.Message) error

// Locker serializes handlers that must not run concurrently for the same
// aggregate across consumer instances.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// LockKeyFunc derives the lock key for a message. Returning "" skips
// locking for that message.
type LockKeyFunc func(msg contracts.Message) string

// Metrics is the consumer observability hook.
type Metrics interface {
	MessageProcessed(stream, status string)
	MessageDuration(stream string, seconds float64)
}

type noopMetrics struct{}

func (noopMetrics) MessageProcessed(string, string) {}
func (noopMetrics) MessageDuration(string, float64) {}

// Consumer reads one stream through a consumer group and dispatches each
// message to the handler registered for its kind. Kinds without a handler
// are acked immediately: on the shared event stream every group sees every
// event, and most are not for us.
type Consumer struct {
	client    *redis.Client
	registry  *contracts.Registry
	logger    zerolog.Logger
	stream    string
	group     string
	name      string
	batchSize int64
	block     time.Duration
	handlers  map[string]HandlerFunc
	lock      Locker
	lockKey   LockKeyFunc
	lockTTL   time.Duration
	metrics   Metrics
}

type ConsumerOption func(*Consumer)

func WithReadBatch(n int64) ConsumerOption {
	return func(c *Consumer) { c.batchSize = n }
}

func WithBlockDuration(d time.Duration) ConsumerOption {
	return func(c *Consumer) { c.block = d }
}

// WithLock makes the consumer acquire a distributed lock before invoking a
// handler. A message whose lock is held elsewhere is left pending.
func WithLock(lock Locker, key LockKeyFunc, ttl time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.lock = lock
		c.lockKey = key
		c.lockTTL = ttl
	}
}

func WithMetrics(m Metrics) ConsumerOption {
	return func(c *Consumer) { c.metrics = m }
}

func NewConsumer(client *redis.Client, registry *contracts.Registry, stream, group, name string, logger zerolog.Logger, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		client:    client,
		registry:  registry,
		logger:    logger,
		stream:    stream,
		group:     group,
		name:      name,
		batchSize: 10,
		block:     5 * time.Second,
		handlers:  make(map[string]HandlerFunc),
		metrics:   noopMetrics{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Handle registers the handler for a message kind.
func (c *Consumer) Handle(kind string, fn HandlerFunc) {
	c.handlers[kind] = fn
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	c.logger.Info().
		Str("stream", c.stream).
		Str("group", c.group).
		Str("consumer", c.name).
		Msg("Consumer started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Str("stream", c.stream).Msg("Consumer stopped")
			return nil
		default:
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.name,
			Streams:  []string{c.stream, ">"},
			Count:    c.batchSize,
			Block:    c.block,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			c.logger.Error().Err(err).Str("stream", c.stream).Msg("Failed to read from stream")
			time.Sleep(time.Second)
			continue
		}

		for _, s := range streams {
			for _, m := range s.Messages {
				c.process(ctx, m)
			}
		}
	}
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s on %s: %w", c.group, c.stream, err)
	}
	return nil
}

func (c *Consumer) process(ctx context.Context, m redis.XMessage) {
	kind, _ := m.Values[fieldKind].(string)
	handler, ok := c.handlers[kind]
	if !ok {
		// Not addressed to this service.
		c.ack(ctx, m.ID)
		return
	}

	payload, _ := m.Values[fieldPayload].(string)
	msg, _, err := c.registry.Decode(kind, []byte(payload))
	if err != nil {
		// Undecodable on the consumer side is as permanent as it is in the
		// outbox: ack so it does not block the group.
		c.logger.Warn().
			Err(err).
			Str("stream", c.stream).
			Str("kind", kind).
			Str("message_id", m.ID).
			Msg("Dropping undecodable message")
		c.ack(ctx, m.ID)
		return
	}

	if c.lock != nil {
		if key := c.lockKey(msg); key != "" {
			acquired, err := c.lock.Acquire(ctx, key, c.lockTTL)
			if err != nil || !acquired {
				// Leave the message pending; redelivery will retry once the
				// holder finishes.
				return
			}
			defer func() {
				if err := c.lock.Release(ctx, key); err != nil {
					c.logger.Warn().Err(err).Str("key", key).Msg("Failed to release lock")
				}
			}()
		}
	}

	started := time.Now()
	if err := handler(ctx, msg); err != nil {
		c.metrics.MessageDuration(c.stream, time.Since(started).Seconds())
		if domainerrors.IsDomain(err) {
			// A business rejection is final; redelivery would only repeat it.
			c.logger.Warn().
				Err(err).
				Str("kind", kind).
				Str("message_id", m.ID).
				Msg("Handler rejected message")
			c.metrics.MessageProcessed(c.stream, "rejected")
			c.ack(ctx, m.ID)
			return
		}
		c.logger.Error().
			Err(err).
			Str("kind", kind).
			Str("message_id", m.ID).
			Msg("Handler failed, leaving message pending")
		c.metrics.MessageProcessed(c.stream, "failed")
		return
	}

	c.metrics.MessageDuration(c.stream, time.Since(started).Seconds())
	c.metrics.MessageProcessed(c.stream, "ok")
	c.ack(ctx, m.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.stream, c.group, id).Err(); err != nil {
		c.logger.Error().Err(err).Str("message_id", id).Msg("Failed to ack message")
	}
}
