package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/cassiomorais/checkout/internal/contracts"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/outbox"
	"github.com/rs/zerolog"
)

// EventHandlers reacts to payment events and advances the order state
// machine. All handlers are idempotent: a redelivered event that finds the
// order already in the target state is a silent no-op, and an event for an
// unknown order is logged and dropped rather than retried forever.
type EventHandlers struct {
	orderRepo  order.Repository
	outboxRepo outbox.Writer
	txManager  TransactionManager
	logger     zerolog.Logger
}

// NewEventHandlers creates the payment event handlers for the orders service.
func NewEventHandlers(
	orderRepo order.Repository,
	outboxRepo outbox.Writer,
	txManager TransactionManager,
	logger zerolog.Logger,
) *EventHandlers {
	return &EventHandlers{
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		txManager:  txManager,
		logger:     logger,
	}
}

// Register wires the handlers into a consumer by kind.
func (h *EventHandlers) Register(register func(kind string, fn func(ctx context.Context, msg contracts.Message) error)) {
	register(contracts.KindPaymentAuthorized, h.onPaymentAuthorized)
	register(contracts.KindPaymentCaptured, h.onPaymentCaptured)
	register(contracts.KindPaymentFailed, h.onPaymentFailed)
}

func (h *EventHandlers) onPaymentAuthorized(ctx context.Context, msg contracts.Message) error {
	ev, ok := msg.(contracts.PaymentAuthorized)
	if !ok {
		return fmt.Errorf("unexpected message type for %s", msg.Kind())
	}

	return h.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		o, err := h.orderRepo.GetByID(txCtx, ev.OrderID)
		if errors.Is(err, domainErrors.ErrOrderNotFound) {
			h.logger.Warn().
				Str("order_id", ev.OrderID.String()).
				Msg("Payment authorized for unknown order")
			return nil
		}
		if err != nil {
			return err
		}

		// Advance through the intermediate status if the authorizing event
		// raced ahead of us; redeliveries past Authorized are no-ops.
		if o.Status == order.StatusCreated {
			if err := o.StartPaymentAuthorization(contracts.NewEnvelope(ev.CorrelationID, ev.Kind())); err != nil {
				return err
			}
		}
		if o.Status != order.StatusPaymentAuthorizing {
			return nil
		}

		if err := o.MarkAuthorized(ev.PaymentID, contracts.NewEnvelope(ev.CorrelationID, ev.Kind())); err != nil {
			return err
		}
		if err := h.orderRepo.Update(txCtx, o); err != nil {
			return err
		}
		if err := outbox.Stage(txCtx, h.outboxRepo, o.PendingEvents()...); err != nil {
			return err
		}
		o.ClearEvents()

		h.logger.Info().
			Str("order_id", o.ID.String()).
			Str("payment_id", ev.PaymentID.String()).
			Msg("Order authorized")
		return nil
	})
}

func (h *EventHandlers) onPaymentCaptured(ctx context.Context, msg contracts.Message) error {
	ev, ok := msg.(contracts.PaymentCaptured)
	if !ok {
		return fmt.Errorf("unexpected message type for %s", msg.Kind())
	}

	return h.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		o, err := h.orderRepo.GetByID(txCtx, ev.OrderID)
		if errors.Is(err, domainErrors.ErrOrderNotFound) {
			h.logger.Warn().
				Str("order_id", ev.OrderID.String()).
				Msg("Payment captured for unknown order")
			return nil
		}
		if err != nil {
			return err
		}

		if o.Status == order.StatusCaptured {
			return nil
		}

		if err := o.MarkCaptured(contracts.NewEnvelope(ev.CorrelationID, ev.Kind())); err != nil {
			return err
		}
		if err := h.orderRepo.Update(txCtx, o); err != nil {
			return err
		}
		if err := outbox.Stage(txCtx, h.outboxRepo, o.PendingEvents()...); err != nil {
			return err
		}
		o.ClearEvents()

		h.logger.Info().
			Str("order_id", o.ID.String()).
			Msg("Order captured")
		return nil
	})
}

func (h *EventHandlers) onPaymentFailed(ctx context.Context, msg contracts.Message) error {
	ev, ok := msg.(contracts.PaymentFailed)
	if !ok {
		return fmt.Errorf("unexpected message type for %s", msg.Kind())
	}

	return h.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		o, err := h.orderRepo.GetByID(txCtx, ev.OrderID)
		if errors.Is(err, domainErrors.ErrOrderNotFound) {
			h.logger.Warn().
				Str("order_id", ev.OrderID.String()).
				Msg("Payment failed for unknown order")
			return nil
		}
		if err != nil {
			return err
		}

		if o.IsTerminal() {
			return nil
		}

		if err := o.MarkFailed(ev.Reason, contracts.NewEnvelope(ev.CorrelationID, ev.Kind())); err != nil {
			return err
		}
		if err := h.orderRepo.Update(txCtx, o); err != nil {
			return err
		}
		if err := outbox.Stage(txCtx, h.outboxRepo, o.PendingEvents()...); err != nil {
			return err
		}
		o.ClearEvents()

		h.logger.Info().
			Str("order_id", o.ID.String()).
			Str("reason", ev.Reason).
			Msg("Order failed")
		return nil
	})
}
