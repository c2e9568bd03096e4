package order

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence port for orders. Update must enforce the
// aggregate's optimistic version: a stale write returns
// errors.ErrOptimisticLockFailed instead of silently overwriting.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	Update(ctx context.Context, o *Order) error
}
