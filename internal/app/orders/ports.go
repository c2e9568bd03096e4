package orders

import (
	"context"

	"github.com/cassiomorais/checkout/internal/contracts"
)

// TransactionManager defines the interface for transaction management.
// This is an application-layer port, not a domain concern.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// CommandSender delivers a command to the service that owns it. Commands are
// requests, not facts, so they go point-to-point instead of through the
// event fan-out.
type CommandSender interface {
	Send(ctx context.Context, msg contracts.Message) error
}
