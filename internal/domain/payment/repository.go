package payment

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence port for payments. Update enforces the
// optimistic version check like the order repository.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Payment, error)
	GetByProviderTransactionID(ctx context.Context, txnID string) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
}
