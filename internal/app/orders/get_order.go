package orders

import (
	"context"

	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/google/uuid"
)

// GetOrderUseCase reads a single order.
type GetOrderUseCase struct {
	orderRepo order.Repository
}

// NewGetOrderUseCase creates a new GetOrderUseCase.
func NewGetOrderUseCase(orderRepo order.Repository) *GetOrderUseCase {
	return &GetOrderUseCase{orderRepo: orderRepo}
}

func (uc *GetOrderUseCase) Execute(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return uc.orderRepo.GetByID(ctx, id)
}
