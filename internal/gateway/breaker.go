package gateway

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Breaker decorates a Gateway with circuit breakers so a misbehaving
// provider fails fast instead of tying up consumers. Authorize and Capture
// share trip state through one breaker per operation; webhook verification
// is local computation and is passed through untouched.
type Breaker struct {
	inner     Gateway
	authorize *gobreaker.CircuitBreaker[*AuthorizeResult]
	capture   *gobreaker.CircuitBreaker[*CaptureResult]
	refund    *gobreaker.CircuitBreaker[*RefundResult]
}

func NewBreaker(inner Gateway) *Breaker {
	return &Breaker{
		inner:     inner,
		authorize: newBreaker[*AuthorizeResult]("gateway-authorize"),
		capture:   newBreaker[*CaptureResult]("gateway-capture"),
		refund:    newBreaker[*RefundResult]("gateway-refund"),
	}
}

func newBreaker[T any](name string) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
}

func (b *Breaker) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	return b.authorize.Execute(func() (*AuthorizeResult, error) {
		return b.inner.Authorize(ctx, req)
	})
}

func (b *Breaker) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	return b.capture.Execute(func() (*CaptureResult, error) {
		return b.inner.Capture(ctx, req)
	})
}

func (b *Breaker) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	return b.refund.Execute(func() (*RefundResult, error) {
		return b.inner.Refund(ctx, req)
	})
}

func (b *Breaker) VerifyWebhook(payload []byte, signature string) (*SettlementNotification, error) {
	return b.inner.VerifyWebhook(payload, signature)
}
