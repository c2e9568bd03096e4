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

// ConfirmOrderUseCase moves an authorized order into capture.
type ConfirmOrderUseCase struct {
	orderRepo  order.Repository
	outboxRepo outbox.Writer
	txManager  TransactionManager
	sender     CommandSender
	logger     zerolog.Logger
}

// NewConfirmOrderUseCase creates a new ConfirmOrderUseCase.
func NewConfirmOrderUseCase(
	orderRepo order.Repository,
	outboxRepo outbox.Writer,
	txManager TransactionManager,
	sender CommandSender,
	logger zerolog.Logger,
) *ConfirmOrderUseCase {
	return &ConfirmOrderUseCase{
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		txManager:  txManager,
		sender:     sender,
		logger:     logger,
	}
}

// Execute starts the capture leg for an authorized order. The capture
// command carries a key derived from the order id, so confirming twice
// cannot capture twice.
func (uc *ConfirmOrderUseCase) Execute(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	var o *order.Order
	err := uc.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		o, err = uc.orderRepo.GetByID(txCtx, orderID)
		if err != nil {
			return err
		}

		// User-initiated, so the order itself is the causation anchor.
		env := contracts.NewEnvelope(o.ID.String(), o.ID.String())
		if err := o.StartCapture(env); err != nil {
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

	cmd := contracts.CapturePayment{
		Envelope:       contracts.NewEnvelope(o.ID.String(), contracts.KindOrderCapturing),
		PaymentID:      *o.PaymentID,
		OrderID:        o.ID,
		IdempotencyKey: "capture-" + o.ID.String(),
	}
	if err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		return uc.sender.Send(ctx, cmd)
	}); err != nil {
		uc.logger.Error().
			Err(err).
			Str("order_id", o.ID.String()).
			Msg("Failed to send capture command")
	}

	return o, nil
}
