package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository implements payment.Repository using PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

const paymentColumns = `id, order_id, amount, currency, status, idempotency_key,
	provider_transaction_id, provider_settlement_id, failure_reason, failure_code, version, created_at, updated_at`

// Create inserts a new payment.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO payments
		 (id, order_id, amount, currency, status, idempotency_key,
		  provider_transaction_id, provider_settlement_id, failure_reason, failure_code, version, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.OrderID, centsToNumericString(p.Amount.ValueCents), p.Amount.Currency,
		string(p.Status), p.IdempotencyKey, p.ProviderTransactionID, p.ProviderSettlementID,
		p.FailureReason, p.FailureCode, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment by its ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	return r.scanPayment(r.db(ctx).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

// GetByIdempotencyKey retrieves a payment by idempotency key.
func (r *PaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*payment.Payment, error) {
	return r.scanPayment(r.db(ctx).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE idempotency_key = $1`, key))
}

// GetByProviderTransactionID retrieves a payment by the provider's
// transaction reference. Settlement webhooks only know this reference.
func (r *PaymentRepository) GetByProviderTransactionID(ctx context.Context, providerTxnID string) (*payment.Payment, error) {
	return r.scanPayment(r.db(ctx).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE provider_transaction_id = $1`, providerTxnID))
}

// Update persists the payment guarded by its version.
func (r *PaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payments SET
		  status=$1, provider_transaction_id=$2, provider_settlement_id=$3,
		  failure_reason=$4, failure_code=$5, version=version+1, updated_at=$6
		 WHERE id=$7 AND version=$8`,
		string(p.Status), p.ProviderTransactionID, p.ProviderSettlementID,
		p.FailureReason, p.FailureCode, p.UpdatedAt, p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db(ctx).QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM payments WHERE id = $1)`, p.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check payment existence: %w", err)
		}
		if !exists {
			return domainErrors.ErrPaymentNotFound
		}
		return domainErrors.ErrOptimisticLockFailed
	}
	p.Version++
	return nil
}

func (r *PaymentRepository) scanPayment(s scanner) (*payment.Payment, error) {
	p := &payment.Payment{}
	var (
		amountStr string
		status    string
	)
	err := s.Scan(
		&p.ID, &p.OrderID, &amountStr, &p.Amount.Currency, &status, &p.IdempotencyKey,
		&p.ProviderTransactionID, &p.ProviderSettlementID, &p.FailureReason, &p.FailureCode,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	cents, err := numericStringToCents(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	p.Amount.ValueCents = cents
	p.Status = payment.Status(status)
	return p, nil
}
