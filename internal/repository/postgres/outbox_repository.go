package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cassiomorais/checkout/internal/outbox"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxRepository implements both the writer port used by handlers and the
// dispatch port used by the outbox dispatcher.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func (r *OutboxRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Insert writes a message row. It is always called inside the transaction
// that persists the aggregate change the message announces.
func (r *OutboxRepository) Insert(ctx context.Context, m *outbox.Message) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO outbox_messages (id, occurred_on, type, payload, processed_on, retries, error)
		 VALUES ($1, $2, $3, $4, NULL, 0, NULL)`,
		m.ID, m.OccurredOn, m.Type, m.Payload,
	)
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// FetchPending lists ids of messages still eligible for dispatch, oldest
// first so publish order follows occurrence order.
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id FROM outbox_messages
		 WHERE processed_on IS NULL AND retries < $1
		 ORDER BY occurred_on ASC
		 LIMIT $2`, outbox.MaxRetries, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox messages: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan outbox id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Claim locks one pending row for this transaction. SKIP LOCKED makes
// concurrent dispatcher replicas pass over each other's rows instead of
// blocking; nil means the row is gone, done, or held elsewhere.
func (r *OutboxRepository) Claim(ctx context.Context, id uuid.UUID) (*outbox.Message, error) {
	m := &outbox.Message{}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, occurred_on, type, payload, processed_on, retries, error
		 FROM outbox_messages
		 WHERE id = $1 AND processed_on IS NULL AND retries < $2
		 FOR UPDATE SKIP LOCKED`, id, outbox.MaxRetries,
	).Scan(&m.ID, &m.OccurredOn, &m.Type, &m.Payload, &m.ProcessedOn, &m.Retries, &m.Error)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("claim outbox message: %w", err)
	}
	return m, nil
}

// MarkProcessed stamps the row; a stamped row is never selected again.
func (r *OutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE outbox_messages SET processed_on = $1, error = NULL WHERE id = $2`, at, id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox processed: %w", err)
	}
	return nil
}

// MarkFailed counts one more transient publish failure. The row stays
// eligible until retries reach the cap; processed_on is never set on a
// failure path.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE outbox_messages SET retries = retries + 1, error = $1 WHERE id = $2`, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox failed: %w", err)
	}
	return nil
}

// MarkPoisoned pins retries to the cap in one step. Unknown kinds and
// undecodable payloads cannot be fixed by retrying, so they are parked for
// operator inspection on the first attempt.
func (r *OutboxRepository) MarkPoisoned(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE outbox_messages SET retries = $1, error = $2 WHERE id = $3`,
		outbox.MaxRetries, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox poisoned: %w", err)
	}
	return nil
}
