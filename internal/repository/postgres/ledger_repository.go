package postgres

import (
	"context"
	"fmt"

	"github.com/cassiomorais/checkout/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository implements ledger.Repository using PostgreSQL. The table
// is append-only; there are no UPDATE or DELETE statements here on purpose.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Insert writes entries in order. Callers insert both sides of a pair in
// one transaction so the ledger can never hold half a pair.
func (r *LedgerRepository) Insert(ctx context.Context, entries ...*ledger.Entry) error {
	for _, e := range entries {
		_, err := r.db(ctx).Exec(ctx,
			`INSERT INTO ledger_entries
			 (id, transaction_id, payment_id, account_name, debit, credit, currency, description, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			e.ID, e.TransactionID, e.PaymentID, e.AccountName,
			centsToNumericString(e.DebitCents), centsToNumericString(e.CreditCents),
			e.Currency, e.Description, e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}
	}
	return nil
}

// GetByPaymentID retrieves all entries recorded for a payment.
func (r *LedgerRepository) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*ledger.Entry, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, transaction_id, payment_id, account_name, debit, credit, currency, description, created_at
		 FROM ledger_entries WHERE payment_id = $1 ORDER BY created_at ASC`, paymentID,
	)
	if err != nil {
		return nil, fmt.Errorf("get ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		e := &ledger.Entry{}
		var debitStr, creditStr string
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.PaymentID, &e.AccountName,
			&debitStr, &creditStr, &e.Currency, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if e.DebitCents, err = numericStringToCents(debitStr); err != nil {
			return nil, fmt.Errorf("parse debit: %w", err)
		}
		if e.CreditCents, err = numericStringToCents(creditStr); err != nil {
			return nil, fmt.Errorf("parse credit: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SumTotals aggregates all debits and credits in one query for
// reconciliation.
func (r *LedgerRepository) SumTotals(ctx context.Context) (*ledger.Totals, error) {
	var debitStr, creditStr string
	t := &ledger.Totals{}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(debit), 0), COALESCE(SUM(credit), 0), COUNT(*)
		 FROM ledger_entries`,
	).Scan(&debitStr, &creditStr, &t.EntryCount)
	if err != nil {
		return nil, fmt.Errorf("sum ledger totals: %w", err)
	}

	if t.DebitCents, err = numericStringToCents(debitStr); err != nil {
		return nil, fmt.Errorf("parse total debits: %w", err)
	}
	if t.CreditCents, err = numericStringToCents(creditStr); err != nil {
		return nil, fmt.Errorf("parse total credits: %w", err)
	}
	return t, nil
}
