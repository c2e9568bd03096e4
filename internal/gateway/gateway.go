package gateway

import (
	"context"

	"github.com/google/uuid"
)

// AuthorizeRequest asks the provider to place a hold on funds.
type AuthorizeRequest struct {
	PaymentID      uuid.UUID
	OrderID        uuid.UUID
	AmountCents    int64
	Currency       string
	IdempotencyKey string
}

// AuthorizeResult is the provider's answer. A decline is a successful call
// with Approved=false; provider outages and timeouts come back as errors.
type AuthorizeResult struct {
	Approved              bool
	ProviderTransactionID string
	DeclineCode           string
	DeclineReason         string
}

// CaptureRequest moves previously authorized funds.
type CaptureRequest struct {
	ProviderTransactionID string
	AmountCents           int64
	Currency              string
}

type CaptureResult struct {
	ProviderTransactionID string
}

// RefundRequest reverses a captured amount.
type RefundRequest struct {
	ProviderTransactionID string
	AmountCents           int64
	Currency              string
}

type RefundResult struct {
	ProviderRefundID string
}

// SettlementNotification is the parsed body of a provider settlement
// webhook.
type SettlementNotification struct {
	ProviderTransactionID string `json:"provider_transaction_id"`
	ProviderSettlementID  string `json:"provider_settlement_id"`
}

// Gateway abstracts the external payment provider. Implementations must
// never surface card data; only opaque provider references cross this
// boundary.
type Gateway interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error)
	Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	VerifyWebhook(payload []byte, signature string) (*SettlementNotification, error)
}
