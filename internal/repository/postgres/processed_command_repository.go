package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ProcessedCommandRepository is the consumer-side dedup store. Command
// handlers record the command's idempotency key in the same transaction as
// the state change, so a redelivered command finds the key and becomes a
// no-op.
type ProcessedCommandRepository struct {
	pool *pgxpool.Pool
}

func NewProcessedCommandRepository(pool *pgxpool.Pool) *ProcessedCommandRepository {
	return &ProcessedCommandRepository{pool: pool}
}

func (r *ProcessedCommandRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Seen reports whether a command with this key has already been processed.
func (r *ProcessedCommandRepository) Seen(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM processed_commands WHERE command_key = $1)`, key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check processed command: %w", err)
	}
	return exists, nil
}

// Record marks the key processed. ON CONFLICT DO NOTHING keeps a lost race
// between two consumers harmless; the transaction of the loser rolls back
// its state change anyway when the optimistic version check fires.
func (r *ProcessedCommandRepository) Record(ctx context.Context, key string) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO processed_commands (command_key, processed_on)
		 VALUES ($1, $2)
		 ON CONFLICT (command_key) DO NOTHING`,
		key, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record processed command: %w", err)
	}
	return nil
}
