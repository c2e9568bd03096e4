package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/cassiomorais/checkout/internal/contracts"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/gateway"
	"github.com/cassiomorais/checkout/internal/outbox"
	"github.com/rs/zerolog"
)

// CapturePaymentHandler executes the capture command against an authorized
// payment.
type CapturePaymentHandler struct {
	paymentRepo payment.Repository
	outboxRepo  outbox.Writer
	txManager   TransactionManager
	processed   ProcessedCommands
	gw          gateway.Gateway
	logger      zerolog.Logger
}

// NewCapturePaymentHandler creates a new CapturePaymentHandler.
func NewCapturePaymentHandler(
	paymentRepo payment.Repository,
	outboxRepo outbox.Writer,
	txManager TransactionManager,
	processed ProcessedCommands,
	gw gateway.Gateway,
	logger zerolog.Logger,
) *CapturePaymentHandler {
	return &CapturePaymentHandler{
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		txManager:   txManager,
		processed:   processed,
		gw:          gw,
		logger:      logger,
	}
}

// Handle processes one CapturePayment command.
func (h *CapturePaymentHandler) Handle(ctx context.Context, msg contracts.Message) error {
	cmd, ok := msg.(contracts.CapturePayment)
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
			Msg("Capture requested for unknown payment")
		return nil
	}
	if err != nil {
		return err
	}

	if p.Status == payment.StatusCaptured || p.Status == payment.StatusSettled {
		return nil
	}

	env := contracts.NewEnvelope(cmd.CorrelationID, cmd.Kind())

	_, gwErr := h.gw.Capture(ctx, gateway.CaptureRequest{
		ProviderTransactionID: derefString(p.ProviderTransactionID),
		AmountCents:           p.Amount.ValueCents,
		Currency:              p.Amount.Currency,
	})
	if gwErr != nil {
		h.logger.Warn().
			Err(gwErr).
			Str("payment_id", p.ID.String()).
			Msg("Gateway error during capture")
		if err := p.MarkFailed("capture failed at provider", "CAPTURE_ERROR", env); err != nil {
			return err
		}
	} else {
		if err := p.MarkCaptured(env); err != nil {
			return err
		}
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

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
