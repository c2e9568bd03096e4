package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Saga metrics
	OrdersTotal   *prometheus.CounterVec
	PaymentsTotal *prometheus.CounterVec
	SagaDuration  *prometheus.HistogramVec

	// Outbox metrics
	OutboxPublishedTotal *prometheus.CounterVec
	OutboxRetriesTotal   *prometheus.CounterVec
	OutboxPoisonedTotal  *prometheus.CounterVec

	// Consumer metrics
	ConsumerMessagesProcessed *prometheus.CounterVec
	ConsumerProcessingTime    *prometheus.HistogramVec

	// Ledger metrics
	LedgerEntriesTotal     *prometheus.CounterVec
	ReconciliationRuns     *prometheus.CounterVec
	ReconciliationImbalance prometheus.Gauge
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		OrdersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_total",
				Help:      "Total number of orders by final status",
			},
			[]string{"status"},
		),
		PaymentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_total",
				Help:      "Total number of payments by final status",
			},
			[]string{"status"},
		),
		SagaDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "saga_duration_seconds",
				Help:      "Time from order creation to terminal order status",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),
		OutboxPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_published_total",
				Help:      "Total number of outbox messages published",
			},
			[]string{"kind"},
		),
		OutboxRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_retries_total",
				Help:      "Total number of outbox publish retries",
			},
			[]string{"kind"},
		),
		OutboxPoisonedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_poisoned_total",
				Help:      "Total number of outbox messages marked poisoned",
			},
			[]string{"kind"},
		),
		ConsumerMessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consumer_messages_processed_total",
				Help:      "Total number of stream messages processed",
			},
			[]string{"stream", "status"},
		),
		ConsumerProcessingTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "consumer_processing_duration_seconds",
				Help:      "Stream message processing duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"stream"},
		),
		LedgerEntriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_entries_total",
				Help:      "Total number of ledger entries written",
			},
			[]string{"account"},
		),
		ReconciliationRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliation_runs_total",
				Help:      "Total number of reconciliation runs by result",
			},
			[]string{"result"},
		),
		ReconciliationImbalance: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reconciliation_imbalance_cents",
				Help:      "Absolute debit/credit difference observed by the last reconciliation run",
			},
		),
	}

	factory.MustRegister(
		m.OrdersTotal,
		m.PaymentsTotal,
		m.SagaDuration,
		m.OutboxPublishedTotal,
		m.OutboxRetriesTotal,
		m.OutboxPoisonedTotal,
		m.ConsumerMessagesProcessed,
		m.ConsumerProcessingTime,
		m.LedgerEntriesTotal,
		m.ReconciliationRuns,
		m.ReconciliationImbalance,
	)

	return m
}

// OutboxPublished implements the dispatcher metrics hook.
func (m *Metrics) OutboxPublished(kind string) {
	m.OutboxPublishedTotal.WithLabelValues(kind).Inc()
}

// OutboxRetried implements the dispatcher metrics hook.
func (m *Metrics) OutboxRetried(kind string) {
	m.OutboxRetriesTotal.WithLabelValues(kind).Inc()
}

// OutboxPoisoned implements the dispatcher metrics hook.
func (m *Metrics) OutboxPoisoned(kind string) {
	m.OutboxPoisonedTotal.WithLabelValues(kind).Inc()
}

// MessageProcessed implements the consumer metrics hook.
func (m *Metrics) MessageProcessed(stream, status string) {
	m.ConsumerMessagesProcessed.WithLabelValues(stream, status).Inc()
}

// MessageDuration implements the consumer metrics hook.
func (m *Metrics) MessageDuration(stream string, seconds float64) {
	m.ConsumerProcessingTime.WithLabelValues(stream).Observe(seconds)
}
