package orders

import (
	"context"
	"errors"

	"github.com/cassiomorais/checkout/internal/contracts"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/money"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/outbox"
	"github.com/cassiomorais/checkout/pkg/retry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CreateOrderRequest holds the input for creating an order.
type CreateOrderRequest struct {
	CustomerID     uuid.UUID `validate:"required"`
	AmountCents    int64     `validate:"gt=0"`
	Currency       string    `validate:"len=3"`
	IdempotencyKey string    `validate:"required"`
}

// CreateOrderUseCase creates an order and kicks off payment authorization.
type CreateOrderUseCase struct {
	orderRepo  order.Repository
	outboxRepo outbox.Writer
	txManager  TransactionManager
	sender     CommandSender
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewCreateOrderUseCase creates a new CreateOrderUseCase.
func NewCreateOrderUseCase(
	orderRepo order.Repository,
	outboxRepo outbox.Writer,
	txManager TransactionManager,
	sender CommandSender,
	logger zerolog.Logger,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		txManager:  txManager,
		sender:     sender,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Execute creates the order, or returns the existing one when the
// idempotency key has been seen before. Both the insert and the creation
// event commit in one transaction; the authorize command goes out only
// after that commit so a rollback never leaks a command.
func (uc *CreateOrderUseCase) Execute(ctx context.Context, req CreateOrderRequest) (*order.Order, error) {
	if err := uc.validate.Struct(req); err != nil {
		return nil, domainErrors.NewValidationError("request", err.Error())
	}

	existing, err := uc.orderRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domainErrors.ErrOrderNotFound) {
		return nil, err
	}

	o, err := order.New(req.CustomerID, money.New(req.AmountCents, req.Currency), req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	err = uc.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.orderRepo.Create(txCtx, o); err != nil {
			return err
		}
		// The order leaves Created immediately: authorization is requested
		// as soon as the creation commits.
		env := contracts.NewEnvelope(o.ID.String(), contracts.KindOrderCreated)
		if err := o.StartPaymentAuthorization(env); err != nil {
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
	if errors.Is(err, domainErrors.ErrDuplicateIdempotencyKey) {
		// Lost the race against a concurrent request with the same key.
		// The winner's order is the canonical one.
		return uc.orderRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	}
	if err != nil {
		return nil, err
	}

	uc.requestAuthorization(ctx, o)
	return o, nil
}

// requestAuthorization sends the authorize command with backoff. If every
// attempt fails the order stays in payment_authorizing with no payment
// created; an operator can re-trigger authorization safely because the
// command key is derived from the order id.
func (uc *CreateOrderUseCase) requestAuthorization(ctx context.Context, o *order.Order) {
	cmd := contracts.AuthorizePayment{
		Envelope:       contracts.NewEnvelope(o.ID.String(), contracts.KindOrderCreated),
		OrderID:        o.ID,
		AmountCents:    o.Amount.ValueCents,
		Currency:       o.Amount.Currency,
		IdempotencyKey: "auth-" + o.ID.String(),
	}

	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		return uc.sender.Send(ctx, cmd)
	})
	if err != nil {
		uc.logger.Error().
			Err(err).
			Str("order_id", o.ID.String()).
			Msg("Failed to send authorize command")
		return
	}

	uc.logger.Info().
		Str("order_id", o.ID.String()).
		Msg("Order created, authorization requested")
}
