package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/checkout/internal/app/accounting"
	"github.com/cassiomorais/checkout/internal/bootstrap"
	"github.com/cassiomorais/checkout/internal/bus"
	"github.com/cassiomorais/checkout/internal/contracts"
	"github.com/cassiomorais/checkout/internal/dispatcher"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/checkout/internal/infrastructure/redis"
	"github.com/cassiomorais/checkout/internal/repository/postgres"
	"golang.org/x/sync/errgroup"
)

const consumerGroup = "accounting-service"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "accounting", "checkout_accounting")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	ledgerRepo := postgres.NewLedgerRepository(app.Pool)
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Messaging ---
	registry := contracts.Builtin()
	eventBus := bus.NewRedisBus(app.Redis, app.Logger)
	lockMgr := infraRedis.NewLockManager(app.Redis)

	// --- Handlers ---
	handlers := accounting.NewEventHandlers(ledgerRepo, outboxRepo, txManager, app.Logger)
	reconciliation := accounting.NewReconciliationService(ledgerRepo, app.Metrics, app.Logger)

	workerCfg := app.Config.Worker
	consumer := bus.NewConsumer(
		app.Redis, registry,
		bus.EventStream, consumerGroup, app.Config.InstanceID,
		app.Logger,
		bus.WithReadBatch(workerCfg.BatchSize),
		bus.WithBlockDuration(workerCfg.BlockDuration),
		bus.WithLock(lockMgr, ledgerLockKey, workerCfg.LockTTL),
		bus.WithMetrics(app.Metrics),
	)
	handlers.Register(func(kind string, fn func(ctx context.Context, msg contracts.Message) error) {
		consumer.Handle(kind, fn)
	})

	outboxDispatcher := dispatcher.New(
		outboxRepo, txManager, eventBus, registry, app.Logger,
		dispatcher.WithInterval(workerCfg.OutboxPollInterval),
		dispatcher.WithBatchSize(workerCfg.OutboxBatchSize),
		dispatcher.WithMetrics(app.Metrics),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.Run(gCtx)
	})
	g.Go(func() error {
		return outboxDispatcher.Run(gCtx)
	})
	g.Go(func() error {
		return reconciliation.RunPeriodically(gCtx, app.Config.Reconciliation.Interval)
	})
	if app.Config.Observability.EnableMetrics {
		g.Go(func() error {
			return observability.ServeMetrics(gCtx, app.Config.Observability.MetricsPort, app.Logger)
		})
	}
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down accounting service...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Accounting service error")
	}
	app.Logger.Info().Msg("Accounting service exited")
}

// ledgerLockKey serializes ledger writes per payment across instances.
func ledgerLockKey(msg contracts.Message) string {
	switch ev := msg.(type) {
	case contracts.PaymentCaptured:
		return "ledger-payment:" + ev.PaymentID.String()
	case contracts.PaymentSettled:
		return "ledger-payment:" + ev.PaymentID.String()
	}
	return ""
}
