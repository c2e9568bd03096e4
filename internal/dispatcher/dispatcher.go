package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/cassiomorais/checkout/internal/contracts"
	"github.com/cassiomorais/checkout/internal/outbox"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Repository is the dispatch-side port over the outbox table.
//
// Claim must lock the row (FOR UPDATE SKIP LOCKED) and return nil when the
// row is gone, already processed, or claimed by another replica. That is
// how concurrent dispatcher replicas avoid double-publishing the same row
// without any coordination beyond the database.
type Repository interface {
	FetchPending(ctx context.Context, limit int) ([]uuid.UUID, error)
	Claim(ctx context.Context, id uuid.UUID) (*outbox.Message, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	MarkPoisoned(ctx context.Context, id uuid.UUID, errMsg string) error
}

// TransactionManager scopes each per-message outcome to its own commit so
// one failing message never blocks the rest of the batch.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Bus is the outbound port. Events fan out, commands go point-to-point.
type Bus interface {
	Publish(ctx context.Context, msg contracts.Message) error
	Send(ctx context.Context, msg contracts.Message) error
}

// Metrics is the observability hook; a nil-safe no-op keeps tests quiet.
type Metrics interface {
	OutboxPublished(kind string)
	OutboxRetried(kind string)
	OutboxPoisoned(kind string)
}

type noopMetrics struct{}

func (noopMetrics) OutboxPublished(string) {}
func (noopMetrics) OutboxRetried(string)   {}
func (noopMetrics) OutboxPoisoned(string)  {}

// Dispatcher polls the outbox for unpublished rows and hands them to the
// bus. It owns the retry and poison policy:
//
//   - publish failure: retries+1, error noted, row stays eligible
//   - unresolvable type or undecodable payload: retries pinned to max on the
//     first attempt, since re-resolution can never succeed without a code change
//   - publish success: processedOn set, row never touched again
//
// Delivery is at-least-once; consumers are required to be idempotent.
type Dispatcher struct {
	repo      Repository
	tx        TransactionManager
	bus       Bus
	registry  *contracts.Registry
	logger    zerolog.Logger
	interval  time.Duration
	batchSize int
	metrics   Metrics
}

type Option func(*Dispatcher)

func WithInterval(d time.Duration) Option {
	return func(dp *Dispatcher) { dp.interval = d }
}

func WithBatchSize(n int) Option {
	return func(dp *Dispatcher) { dp.batchSize = n }
}

func WithMetrics(m Metrics) Option {
	return func(dp *Dispatcher) { dp.metrics = m }
}

func New(repo Repository, tx TransactionManager, bus Bus, registry *contracts.Registry, logger zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		repo:      repo,
		tx:        tx,
		bus:       bus,
		registry:  registry,
		logger:    logger,
		interval:  2 * time.Second,
		batchSize: 50,
		metrics:   noopMetrics{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run polls until ctx is cancelled. Cancellation is cooperative: the
// in-flight message is finished and committed before Run returns, so no
// half-written outbox row survives a shutdown.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info().Dur("interval", d.interval).Msg("Outbox dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("Outbox dispatcher stopped")
			return nil
		case <-ticker.C:
		}

		if err := d.processBatch(ctx); err != nil {
			d.logger.Error().Err(err).Msg("Outbox batch failed")
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	ids, err := d.repo.FetchPending(ctx, d.batchSize)
	if err != nil {
		return err
	}

	for _, id := range ids {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		// Detached from the loop context so a shutdown signal drains the
		// current message instead of abandoning it mid-write.
		msgCtx := context.WithoutCancel(ctx)
		if err := d.dispatchOne(msgCtx, id); err != nil {
			d.logger.Error().Err(err).Str("outbox_id", id.String()).Msg("Failed to commit outbox outcome")
		}
	}
	return nil
}

// dispatchOne claims, decodes, publishes and records the outcome of a
// single message inside its own transaction.
func (d *Dispatcher) dispatchOne(ctx context.Context, id uuid.UUID) error {
	return d.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		m, err := d.repo.Claim(txCtx, id)
		if err != nil {
			return err
		}
		if m == nil {
			// Another replica got here first, or the row was processed
			// between fetch and claim.
			return nil
		}

		msg, class, err := d.registry.Decode(m.Type, m.Payload)
		if err != nil {
			d.logger.Warn().
				Err(err).
				Str("outbox_id", m.ID.String()).
				Str("type", m.Type).
				Msg("Poisoning undecodable outbox message")
			d.metrics.OutboxPoisoned(m.Type)
			return d.repo.MarkPoisoned(txCtx, m.ID, err.Error())
		}

		var pubErr error
		if class == contracts.ClassCommand {
			pubErr = d.bus.Send(ctx, msg)
		} else {
			pubErr = d.bus.Publish(ctx, msg)
		}
		if pubErr != nil {
			d.logger.Warn().
				Err(pubErr).
				Str("outbox_id", m.ID.String()).
				Str("type", m.Type).
				Int("retries", m.Retries+1).
				Msg("Failed to publish outbox message")
			d.metrics.OutboxRetried(m.Type)
			return d.repo.MarkFailed(txCtx, m.ID, pubErr.Error())
		}

		d.metrics.OutboxPublished(m.Type)
		d.logger.Info().
			Str("outbox_id", m.ID.String()).
			Str("type", m.Type).
			Msg("Published outbox message")
		return d.repo.MarkProcessed(txCtx, m.ID, time.Now().UTC())
	})
}

// IsPoison reports whether a decode error marks a message as permanently
// unprocessable.
func IsPoison(err error) bool {
	return errors.Is(err, contracts.ErrUnknownKind)
}
