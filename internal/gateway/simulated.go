package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/google/uuid"
)

// Deterministic authorization rules. They make demo flows reproducible:
// an amount ending in 99 cents is always declined, and anything over the
// large-amount threshold times out instead of answering.
const (
	declineCentsSuffix    = 99
	timeoutThresholdCents = 1_000_000
)

// Simulated is an in-process provider with deterministic authorization
// behavior and an optional random capture failure rate.
type Simulated struct {
	webhookSecret      string
	captureFailureRate float64 // 0.0 to 1.0
	latency            time.Duration
}

type SimulatedOption func(*Simulated)

func WithWebhookSecret(secret string) SimulatedOption {
	return func(g *Simulated) { g.webhookSecret = secret }
}

func WithCaptureFailureRate(rate float64) SimulatedOption {
	return func(g *Simulated) { g.captureFailureRate = rate }
}

func WithLatency(d time.Duration) SimulatedOption {
	return func(g *Simulated) { g.latency = d }
}

func NewSimulated(opts ...SimulatedOption) *Simulated {
	g := &Simulated{
		webhookSecret:      "simulated-webhook-secret",
		captureFailureRate: 0.0,
		latency:            50 * time.Millisecond,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Simulated) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	if err := g.sleep(ctx); err != nil {
		return nil, err
	}

	if req.AmountCents > timeoutThresholdCents {
		return nil, fmt.Errorf("provider did not respond for payment %s: %w",
			req.PaymentID, domainErrors.ErrGatewayTimeout)
	}

	if req.AmountCents%100 == declineCentsSuffix {
		return &AuthorizeResult{
			Approved:      false,
			DeclineCode:   "INSUFFICIENT_FUNDS",
			DeclineReason: "card has insufficient funds",
		}, nil
	}

	return &AuthorizeResult{
		Approved:              true,
		ProviderTransactionID: "sim_auth_" + uuid.New().String()[:8],
	}, nil
}

func (g *Simulated) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	if err := g.sleep(ctx); err != nil {
		return nil, err
	}

	if rand.Float64() < g.captureFailureRate {
		return nil, fmt.Errorf("simulated capture failure for %s: %w",
			req.ProviderTransactionID, domainErrors.ErrGatewayUnavailable)
	}

	return &CaptureResult{ProviderTransactionID: req.ProviderTransactionID}, nil
}

// Refund always succeeds in simulation.
func (g *Simulated) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if err := g.sleep(ctx); err != nil {
		return nil, err
	}
	return &RefundResult{ProviderRefundID: "sim_ref_" + uuid.New().String()[:8]}, nil
}

// VerifyWebhook checks the hex-encoded HMAC-SHA256 signature over the raw
// body and parses the settlement notification.
func (g *Simulated) VerifyWebhook(payload []byte, signature string) (*SettlementNotification, error) {
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, domainErrors.NewDomainError(
			"invalid_webhook_signature",
			"webhook signature verification failed",
			domainErrors.ErrInvalidSignature,
		)
	}

	var n SettlementNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("failed to parse settlement webhook: %w", err)
	}
	if n.ProviderTransactionID == "" || n.ProviderSettlementID == "" {
		return nil, domainErrors.NewValidationError("webhook", "missing settlement identifiers")
	}
	return &n, nil
}

// Sign computes the signature a real provider would attach. Used by tests
// and demo tooling to produce valid webhook calls.
func (g *Simulated) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *Simulated) sleep(ctx context.Context) error {
	select {
	case <-time.After(g.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
