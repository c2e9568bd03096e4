package accounting

import (
	"context"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/ledger"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/rs/zerolog"
)

// ReconciliationResult is the outcome of one balance check over the whole
// ledger.
type ReconciliationResult struct {
	IsBalanced       bool
	TotalDebitCents  int64
	TotalCreditCents int64
	DifferenceCents  int64
	EntryCount       int64
	RunAt            time.Time
}

// ReconciliationService verifies the core double-entry invariant: summed
// debits equal summed credits. An imbalance means an entry was written
// outside the pair discipline and needs investigation, not auto-repair.
type ReconciliationService struct {
	ledgerRepo ledger.Repository
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// NewReconciliationService creates a new ReconciliationService.
func NewReconciliationService(ledgerRepo ledger.Repository, metrics *observability.Metrics, logger zerolog.Logger) *ReconciliationService {
	return &ReconciliationService{
		ledgerRepo: ledgerRepo,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run performs one reconciliation pass.
func (s *ReconciliationService) Run(ctx context.Context) (*ReconciliationResult, error) {
	totals, err := s.ledgerRepo.SumTotals(ctx)
	if err != nil {
		return nil, err
	}

	diff := totals.DebitCents - totals.CreditCents
	if diff < 0 {
		diff = -diff
	}

	result := &ReconciliationResult{
		IsBalanced:       diff == 0,
		TotalDebitCents:  totals.DebitCents,
		TotalCreditCents: totals.CreditCents,
		DifferenceCents:  diff,
		EntryCount:       totals.EntryCount,
		RunAt:            time.Now().UTC(),
	}

	if s.metrics != nil {
		s.metrics.ReconciliationImbalance.Set(float64(diff))
		if result.IsBalanced {
			s.metrics.ReconciliationRuns.WithLabelValues("balanced").Inc()
		} else {
			s.metrics.ReconciliationRuns.WithLabelValues("imbalanced").Inc()
		}
	}

	if result.IsBalanced {
		s.logger.Info().
			Int64("entries", result.EntryCount).
			Int64("total_debits_cents", result.TotalDebitCents).
			Msg("Ledger reconciled, balanced")
	} else {
		s.logger.Error().
			Int64("entries", result.EntryCount).
			Int64("total_debits_cents", result.TotalDebitCents).
			Int64("total_credits_cents", result.TotalCreditCents).
			Int64("difference_cents", result.DifferenceCents).
			Msg("Ledger imbalance detected")
	}

	return result, nil
}

// RunPeriodically reconciles on a fixed interval until ctx is cancelled.
func (s *ReconciliationService) RunPeriodically(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Reconciliation run failed")
			}
		}
	}
}
