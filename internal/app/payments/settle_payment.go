package payments

import (
	"context"
	"errors"

	"github.com/cassiomorais/checkout/internal/contracts"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/gateway"
	"github.com/cassiomorais/checkout/internal/outbox"
	"github.com/rs/zerolog"
)

// SettlePaymentUseCase handles provider settlement webhooks. The provider
// only knows its own transaction reference, so lookup goes through that.
type SettlePaymentUseCase struct {
	paymentRepo payment.Repository
	outboxRepo  outbox.Writer
	txManager   TransactionManager
	gw          gateway.Gateway
	logger      zerolog.Logger
}

// NewSettlePaymentUseCase creates a new SettlePaymentUseCase.
func NewSettlePaymentUseCase(
	paymentRepo payment.Repository,
	outboxRepo outbox.Writer,
	txManager TransactionManager,
	gw gateway.Gateway,
	logger zerolog.Logger,
) *SettlePaymentUseCase {
	return &SettlePaymentUseCase{
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		txManager:   txManager,
		gw:          gw,
		logger:      logger,
	}
}

// Execute verifies the webhook signature and settles the referenced
// payment. A webhook replay for an already settled payment is a no-op.
func (uc *SettlePaymentUseCase) Execute(ctx context.Context, body []byte, signature string) error {
	n, err := uc.gw.VerifyWebhook(body, signature)
	if err != nil {
		return err
	}

	p, err := uc.paymentRepo.GetByProviderTransactionID(ctx, n.ProviderTransactionID)
	if errors.Is(err, domainErrors.ErrPaymentNotFound) {
		uc.logger.Warn().
			Str("provider_transaction_id", n.ProviderTransactionID).
			Msg("Settlement webhook for unknown payment")
		return err
	}
	if err != nil {
		return err
	}

	if p.Status == payment.StatusSettled {
		return nil
	}

	env := contracts.NewEnvelope(p.OrderID.String(), contracts.KindPaymentCaptured)
	if err := p.MarkSettled(n.ProviderSettlementID, env); err != nil {
		return err
	}

	err = uc.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.paymentRepo.Update(txCtx, p); err != nil {
			return err
		}
		if err := outbox.Stage(txCtx, uc.outboxRepo, p.PendingEvents()...); err != nil {
			return err
		}
		p.ClearEvents()
		return nil
	})
	if err != nil {
		return err
	}

	uc.logger.Info().
		Str("payment_id", p.ID.String()).
		Str("provider_settlement_id", n.ProviderSettlementID).
		Msg("Payment settled")
	return nil
}
