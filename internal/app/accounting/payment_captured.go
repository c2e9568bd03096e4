package accounting

import (
	"context"
	"fmt"

	"github.com/cassiomorais/checkout/internal/contracts"
	"github.com/cassiomorais/checkout/internal/domain/ledger"
	"github.com/cassiomorais/checkout/internal/outbox"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TransactionManager defines the interface for transaction management.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventHandlers writes double-entry ledger pairs in response to payment
// events. Idempotency is existence-based: if the payment already has
// entries for the account pair in question, the event is a duplicate and
// nothing is written.
type EventHandlers struct {
	ledgerRepo ledger.Repository
	outboxRepo outbox.Writer
	txManager  TransactionManager
	logger     zerolog.Logger
}

// NewEventHandlers creates the accounting event handlers.
func NewEventHandlers(
	ledgerRepo ledger.Repository,
	outboxRepo outbox.Writer,
	txManager TransactionManager,
	logger zerolog.Logger,
) *EventHandlers {
	return &EventHandlers{
		ledgerRepo: ledgerRepo,
		outboxRepo: outboxRepo,
		txManager:  txManager,
		logger:     logger,
	}
}

// Register wires the handlers into a consumer by kind.
func (h *EventHandlers) Register(register func(kind string, fn func(ctx context.Context, msg contracts.Message) error)) {
	register(contracts.KindPaymentCaptured, h.onPaymentCaptured)
	register(contracts.KindPaymentSettled, h.onPaymentSettled)
}

// onPaymentCaptured records revenue: debit the customer receivable, credit
// revenue. Both sides share a transaction id and commit together.
func (h *EventHandlers) onPaymentCaptured(ctx context.Context, msg contracts.Message) error {
	ev, ok := msg.(contracts.PaymentCaptured)
	if !ok {
		return fmt.Errorf("unexpected message type for %s", msg.Kind())
	}

	return h.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := h.ledgerRepo.GetByPaymentID(txCtx, ev.PaymentID)
		if err != nil {
			return err
		}
		if hasAccount(existing, ledger.AccountRevenue) {
			// Duplicate delivery; the pair is already on the books.
			return nil
		}

		return h.writePair(txCtx, ev.PaymentID, ev.AmountCents, ev.Currency,
			ledger.AccountCustomerReceivable, ledger.AccountRevenue,
			"capture of payment "+ev.PaymentID.String(),
			contracts.NewEnvelope(ev.CorrelationID, ev.Kind()))
	})
}

// onPaymentSettled clears the receivable once the provider confirms funds:
// debit settlement clearing, credit the customer receivable.
func (h *EventHandlers) onPaymentSettled(ctx context.Context, msg contracts.Message) error {
	ev, ok := msg.(contracts.PaymentSettled)
	if !ok {
		return fmt.Errorf("unexpected message type for %s", msg.Kind())
	}

	return h.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := h.ledgerRepo.GetByPaymentID(txCtx, ev.PaymentID)
		if err != nil {
			return err
		}
		if hasAccount(existing, ledger.AccountSettlementClearing) {
			return nil
		}

		return h.writePair(txCtx, ev.PaymentID, ev.AmountCents, ev.Currency,
			ledger.AccountSettlementClearing, ledger.AccountCustomerReceivable,
			"settlement of payment "+ev.PaymentID.String(),
			contracts.NewEnvelope(ev.CorrelationID, ev.Kind()))
	})
}

func (h *EventHandlers) writePair(ctx context.Context, paymentID uuid.UUID, amountCents int64, currency, debitAccount, creditAccount, description string, env contracts.Envelope) error {
	transactionID := uuid.New()

	debit, err := ledger.NewDebit(transactionID, paymentID, debitAccount, amountCents, currency, description)
	if err != nil {
		return err
	}
	credit, err := ledger.NewCredit(transactionID, paymentID, creditAccount, amountCents, currency, description)
	if err != nil {
		return err
	}

	if err := h.ledgerRepo.Insert(ctx, debit, credit); err != nil {
		return err
	}

	if err := outbox.Stage(ctx, h.outboxRepo, contracts.LedgerEntryCreated{
		Envelope:      env,
		Occurrence:    contracts.Occurred(),
		LedgerEntryID: debit.ID,
		TransactionID: transactionID,
		PaymentID:     paymentID,
		DebitAccount:  debitAccount,
		CreditAccount: creditAccount,
		AmountCents:   amountCents,
		Currency:      currency,
	}); err != nil {
		return err
	}

	h.logger.Info().
		Str("payment_id", paymentID.String()).
		Str("transaction_id", transactionID.String()).
		Str("debit", debitAccount).
		Str("credit", creditAccount).
		Int64("amount_cents", amountCents).
		Msg("Ledger pair recorded")
	return nil
}

func hasAccount(entries []*ledger.Entry, account string) bool {
	for _, e := range entries {
		if e.AccountName == account {
			return true
		}
	}
	return false
}
