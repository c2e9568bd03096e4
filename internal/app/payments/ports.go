package payments

import "context"

// TransactionManager defines the interface for transaction management.
// This is an application-layer port, not a domain concern.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProcessedCommands is the consumer-side dedup store. Recording the command
// key in the same transaction as the state change makes redelivered
// commands no-ops.
type ProcessedCommands interface {
	Seen(ctx context.Context, key string) (bool, error)
	Record(ctx context.Context, key string) error
}
