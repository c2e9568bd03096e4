package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/cassiomorais/checkout/internal/contracts"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/money"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/gateway"
	"github.com/cassiomorais/checkout/internal/outbox"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AuthorizePaymentHandler executes the authorize command: create the
// payment, ask the provider for a hold, and record the outcome. Whatever
// the provider says, the handler ends with a committed payment row and a
// staged event; the saga continues from that event, never from the return
// value.
type AuthorizePaymentHandler struct {
	paymentRepo payment.Repository
	outboxRepo  outbox.Writer
	txManager   TransactionManager
	processed   ProcessedCommands
	gw          gateway.Gateway
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewAuthorizePaymentHandler creates a new AuthorizePaymentHandler.
func NewAuthorizePaymentHandler(
	paymentRepo payment.Repository,
	outboxRepo outbox.Writer,
	txManager TransactionManager,
	processed ProcessedCommands,
	gw gateway.Gateway,
	logger zerolog.Logger,
) *AuthorizePaymentHandler {
	return &AuthorizePaymentHandler{
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		txManager:   txManager,
		processed:   processed,
		gw:          gw,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Handle processes one AuthorizePayment command.
func (h *AuthorizePaymentHandler) Handle(ctx context.Context, msg contracts.Message) error {
	cmd, ok := msg.(contracts.AuthorizePayment)
	if !ok {
		return fmt.Errorf("unexpected message type for %s", msg.Kind())
	}
	if err := h.validate.Struct(cmd); err != nil {
		return domainErrors.NewValidationError("command", err.Error())
	}

	// Redelivery check before touching the provider; a duplicate must not
	// authorize twice.
	seen, err := h.processed.Seen(ctx, cmd.IdempotencyKey)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}
	if existing, err := h.paymentRepo.GetByIdempotencyKey(ctx, cmd.IdempotencyKey); err == nil && existing != nil {
		return nil
	}

	p, err := payment.New(cmd.OrderID, money.New(cmd.AmountCents, cmd.Currency), cmd.IdempotencyKey)
	if err != nil {
		return err
	}

	env := contracts.NewEnvelope(cmd.CorrelationID, cmd.Kind())

	result, gwErr := h.gw.Authorize(ctx, gateway.AuthorizeRequest{
		PaymentID:      p.ID,
		OrderID:        cmd.OrderID,
		AmountCents:    cmd.AmountCents,
		Currency:       cmd.Currency,
		IdempotencyKey: cmd.IdempotencyKey,
	})
	switch {
	case gwErr != nil:
		// Timeouts, outages and open breakers all land here. The failure is
		// recorded as a fact so the order side can compensate.
		h.logger.Warn().
			Err(gwErr).
			Str("order_id", cmd.OrderID.String()).
			Msg("Gateway error during authorization")
		if err := p.MarkFailed("payment provider error", "PROVIDER_ERROR", env); err != nil {
			return err
		}
	case !result.Approved:
		if err := p.MarkFailed(result.DeclineReason, result.DeclineCode, env); err != nil {
			return err
		}
	default:
		if err := p.MarkAuthorized(result.ProviderTransactionID, env); err != nil {
			return err
		}
	}

	err = h.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := h.paymentRepo.Create(txCtx, p); err != nil {
			return err
		}
		if err := outbox.Stage(txCtx, h.outboxRepo, p.PendingEvents()...); err != nil {
			return err
		}
		p.ClearEvents()
		return h.processed.Record(txCtx, cmd.IdempotencyKey)
	})
	if errors.Is(err, domainErrors.ErrDuplicateIdempotencyKey) {
		// A concurrent consumer finished first; its outcome stands.
		return nil
	}
	if err != nil {
		return err
	}

	h.logger.Info().
		Str("payment_id", p.ID.String()).
		Str("order_id", cmd.OrderID.String()).
		Str("status", string(p.Status)).
		Msg("Authorization processed")
	return nil
}
