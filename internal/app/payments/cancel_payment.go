package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/cassiomorais/checkout/internal/contracts"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/outbox"
	"github.com/rs/zerolog"
)

// CancelPaymentHandler releases the authorization hold when an order is
// cancelled. The simulated provider expires holds on its own, so no
// provider call is needed; the cancellation is recorded locally.
type CancelPaymentHandler struct {
	paymentRepo payment.Repository
	outboxRepo  outbox.Writer
	txManager   TransactionManager
	processed   ProcessedCommands
	logger      zerolog.Logger
}

// NewCancelPaymentHandler creates a new CancelPaymentHandler.
func NewCancelPaymentHandler(
	paymentRepo payment.Repository,
	outboxRepo outbox.Writer,
	txManager TransactionManager,
	processed ProcessedCommands,
	logger zerolog.Logger,
) *CancelPaymentHandler {
	return &CancelPaymentHandler{
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		txManager:   txManager,
		processed:   processed,
		logger:      logger,
	}
}

// Handle processes one CancelPayment command.
func (h *CancelPaymentHandler) Handle(ctx context.Context, msg contracts.Message) error {
	cmd, ok := msg.(contracts.CancelPayment)
	if !ok {
		return fmt.Errorf("unexpected message type for %s", msg.Kind())
	}

	seen, err := h.processed.Seen(ctx, cmd.IdempotencyKey)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	p, err := h.paymentRepo.GetByID(ctx, cmd.PaymentID)
	if errors.Is(err, domainErrors.ErrPaymentNotFound) {
		h.logger.Warn().
			Str("payment_id", cmd.PaymentID.String()).
			Msg("Cancel requested for unknown payment")
		return nil
	}
	if err != nil {
		return err
	}

	if p.Status == payment.StatusCancelled {
		return nil
	}

	env := contracts.NewEnvelope(cmd.CorrelationID, cmd.Kind())
	if err := p.Cancel(env); err != nil {
		return err
	}

	return h.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := h.paymentRepo.Update(txCtx, p); err != nil {
			return err
		}
		if err := outbox.Stage(txCtx, h.outboxRepo, p.PendingEvents()...); err != nil {
			return err
		}
		p.ClearEvents()
		return h.processed.Record(txCtx, cmd.IdempotencyKey)
	})
}
