package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/checkout/internal/app/payments"
	"github.com/cassiomorais/checkout/internal/bootstrap"
	"github.com/cassiomorais/checkout/internal/bus"
	"github.com/cassiomorais/checkout/internal/contracts"
	"github.com/cassiomorais/checkout/internal/dispatcher"
	"github.com/cassiomorais/checkout/internal/gateway"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/checkout/internal/infrastructure/redis"
	"github.com/cassiomorais/checkout/internal/repository/postgres"
	"golang.org/x/sync/errgroup"
)

const consumerGroup = "payments-service"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "payments", "checkout_payments")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	paymentRepo := postgres.NewPaymentRepository(app.Pool)
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	processedRepo := postgres.NewProcessedCommandRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Gateway ---
	gwCfg := app.Config.Gateway
	gw := gateway.NewBreaker(gateway.NewSimulated(
		gateway.WithWebhookSecret(gwCfg.WebhookSecret),
		gateway.WithCaptureFailureRate(gwCfg.CaptureFailureRate),
		gateway.WithLatency(gwCfg.Latency),
	))

	// --- Messaging ---
	registry := contracts.Builtin()
	eventBus := bus.NewRedisBus(app.Redis, app.Logger)
	lockMgr := infraRedis.NewLockManager(app.Redis)

	// --- Command handlers ---
	authorize := payments.NewAuthorizePaymentHandler(paymentRepo, outboxRepo, txManager, processedRepo, gw, app.Logger)
	capture := payments.NewCapturePaymentHandler(paymentRepo, outboxRepo, txManager, processedRepo, gw, app.Logger)
	cancelPayment := payments.NewCancelPaymentHandler(paymentRepo, outboxRepo, txManager, processedRepo, app.Logger)

	workerCfg := app.Config.Worker
	consumer := bus.NewConsumer(
		app.Redis, registry,
		bus.PaymentCommandStream, consumerGroup, app.Config.InstanceID,
		app.Logger,
		bus.WithReadBatch(workerCfg.BatchSize),
		bus.WithBlockDuration(workerCfg.BlockDuration),
		bus.WithLock(lockMgr, paymentLockKey, workerCfg.LockTTL),
		bus.WithMetrics(app.Metrics),
	)
	consumer.Handle(contracts.KindAuthorizePayment, authorize.Handle)
	consumer.Handle(contracts.KindCapturePayment, capture.Handle)
	consumer.Handle(contracts.KindCancelPayment, cancelPayment.Handle)

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
			app.Logger.Info().Msg("Shutting down payments service...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Payments service error")
	}
	app.Logger.Info().Msg("Payments service exited")
}

// paymentLockKey serializes command handling per order so an authorize and
// a cancel for the same order never interleave.
func paymentLockKey(msg contracts.Message) string {
	switch cmd := msg.(type) {
	case contracts.AuthorizePayment:
		return "payment-order:" + cmd.OrderID.String()
	case contracts.CapturePayment:
		return "payment-order:" + cmd.OrderID.String()
	case contracts.CancelPayment:
		return "payment-order:" + cmd.OrderID.String()
	}
	return ""
}
