package orders

import (
	"context"

	"github.com/cassiomorais/checkout/internal/contracts"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/outbox"
	"github.com/cassiomorais/checkout/pkg/retry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CancelOrderUseCase cancels an order that has not captured yet.
type CancelOrderUseCase struct {
	orderRepo  order.Repository
	outboxRepo outbox.Writer
	txManager  TransactionManager
	sender     CommandSender
	logger     zerolog.Logger
}

// NewCancelOrderUseCase creates a new CancelOrderUseCase.
func NewCancelOrderUseCase(
	orderRepo order.Repository,
	outboxRepo outbox.Writer,
	txManager TransactionManager,
	sender CommandSender,
	logger zerolog.Logger,
) *CancelOrderUseCase {
	return &CancelOrderUseCase{
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		txManager:  txManager,
		sender:     sender,
		logger:     logger,
	}
}

// Execute cancels the order, then asks the payments service to release any
// authorization hold tied to it.
func (uc *CancelOrderUseCase) Execute(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	var o *order.Order
	err := uc.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		o, err = uc.orderRepo.GetByID(txCtx, orderID)
		if err != nil {
			return err
		}

		// User-initiated, so the order itself is the causation anchor.
		env := contracts.NewEnvelope(o.ID.String(), o.ID.String())
		if err := o.Cancel(env); err != nil {
			return err
		}
		if err := uc.orderRepo.Update(txCtx, o); err != nil {
			return err
		}
		if err := outbox.Stage(txCtx, uc.outboxRepo, o.PendingEvents()...); err != nil {
			return err
		}
		o.ClearEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if o.PaymentID != nil {
		cmd := contracts.CancelPayment{
			Envelope:       contracts.NewEnvelope(o.ID.String(), contracts.KindOrderCancelled),
			PaymentID:      *o.PaymentID,
			OrderID:        o.ID,
			IdempotencyKey: "cancel-" + o.ID.String(),
		}
		if err := retry.Do(ctx, retry.DefaultConfig(), func() error {
			return uc.sender.Send(ctx, cmd)
		}); err != nil {
			uc.logger.Error().
				Err(err).
				Str("order_id", o.ID.String()).
				Msg("Failed to send cancel payment command")
		}
	}

	return o, nil
}
