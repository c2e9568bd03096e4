package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderRepository implements order.Repository using PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const orderColumns = `id, customer_id, amount, currency, status, idempotency_key,
	payment_id, failure_reason, version, created_at, updated_at`

// Create inserts a new order. A unique violation on the idempotency key is
// surfaced as ErrDuplicateIdempotencyKey so the application layer can fetch
// and return the winner of the race.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO orders
		 (id, customer_id, amount, currency, status, idempotency_key,
		  payment_id, failure_reason, version, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.CustomerID, centsToNumericString(o.Amount.ValueCents), o.Amount.Currency,
		string(o.Status), o.IdempotencyKey, o.PaymentID, o.FailureReason,
		o.Version, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.scanOrder(r.db(ctx).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

// GetByIdempotencyKey retrieves an order by idempotency key.
func (r *OrderRepository) GetByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	return r.scanOrder(r.db(ctx).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key))
}

// Update persists the order guarded by its version. A stale version loses
// the write and gets ErrOptimisticLockFailed; the caller should reload and
// re-apply or drop the change.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE orders SET
		  status=$1, payment_id=$2, failure_reason=$3, version=version+1, updated_at=$4
		 WHERE id=$5 AND version=$6`,
		string(o.Status), o.PaymentID, o.FailureReason, o.UpdatedAt,
		o.ID, o.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db(ctx).QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check order existence: %w", err)
		}
		if !exists {
			return domainErrors.ErrOrderNotFound
		}
		return domainErrors.ErrOptimisticLockFailed
	}
	o.Version++
	return nil
}

func (r *OrderRepository) scanOrder(s scanner) (*order.Order, error) {
	o := &order.Order{}
	var (
		amountStr string
		status    string
	)
	err := s.Scan(
		&o.ID, &o.CustomerID, &amountStr, &o.Amount.Currency, &status, &o.IdempotencyKey,
		&o.PaymentID, &o.FailureReason, &o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	cents, err := numericStringToCents(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	o.Amount.ValueCents = cents
	o.Status = order.Status(status)
	return o, nil
}
