package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Event kinds. Events are facts: they are published fan-out and consumers
// must tolerate duplicates and reordering.
const (
	KindOrderCreated            = "order.created"
	KindOrderPaymentAuthorizing = "order.payment_authorizing"
	KindOrderAuthorized         = "order.authorized"
	KindOrderCapturing          = "order.capturing"
	KindOrderCaptured           = "order.captured"
	KindOrderFailed             = "order.failed"
	KindOrderCancelled          = "order.cancelled"
	KindPaymentAuthorized       = "payment.authorized"
	KindPaymentCaptured         = "payment.captured"
	KindPaymentFailed           = "payment.failed"
	KindPaymentCancelled        = "payment.cancelled"
	KindPaymentSettled          = "payment.settled"
	KindLedgerEntryCreated      = "ledger.entry_created"
)

// Occurrence is the timestamp shared by every event.
type Occurrence struct {
	OccurredOn time.Time `json:"occurredOn"`
}

func (o Occurrence) When() time.Time { return o.OccurredOn }

// Occurred stamps an event with the current UTC time.
func Occurred() Occurrence { return Occurrence{OccurredOn: time.Now().UTC()} }

// --- Orders service events ---

type OrderCreated struct {
	Envelope
	Occurrence
	OrderID        uuid.UUID `json:"orderId"`
	CustomerID     uuid.UUID `json:"customerId"`
	AmountCents    int64     `json:"amountCents"`
	Currency       string    `json:"currency"`
	IdempotencyKey string    `json:"idempotencyKey"`
}

func (OrderCreated) Kind() string { return KindOrderCreated }

type OrderPaymentAuthorizing struct {
	Envelope
	Occurrence
	OrderID uuid.UUID `json:"orderId"`
}

func (OrderPaymentAuthorizing) Kind() string { return KindOrderPaymentAuthorizing }

type OrderAuthorized struct {
	Envelope
	Occurrence
	OrderID   uuid.UUID `json:"orderId"`
	PaymentID uuid.UUID `json:"paymentId"`
}

func (OrderAuthorized) Kind() string { return KindOrderAuthorized }

type OrderCapturing struct {
	Envelope
	Occurrence
	OrderID   uuid.UUID `json:"orderId"`
	PaymentID uuid.UUID `json:"paymentId"`
}

func (OrderCapturing) Kind() string { return KindOrderCapturing }

type OrderCaptured struct {
	Envelope
	Occurrence
	OrderID   uuid.UUID `json:"orderId"`
	PaymentID uuid.UUID `json:"paymentId"`
}

func (OrderCaptured) Kind() string { return KindOrderCaptured }

type OrderFailed struct {
	Envelope
	Occurrence
	OrderID uuid.UUID `json:"orderId"`
	Reason  string    `json:"reason"`
}

func (OrderFailed) Kind() string { return KindOrderFailed }

type OrderCancelled struct {
	Envelope
	Occurrence
	OrderID uuid.UUID `json:"orderId"`
}

func (OrderCancelled) Kind() string { return KindOrderCancelled }

// --- Payments service events ---

type PaymentAuthorized struct {
	Envelope
	Occurrence
	PaymentID             uuid.UUID `json:"paymentId"`
	OrderID               uuid.UUID `json:"orderId"`
	AmountCents           int64     `json:"amountCents"`
	Currency              string    `json:"currency"`
	ProviderTransactionID string    `json:"providerTransactionId"`
}

func (PaymentAuthorized) Kind() string { return KindPaymentAuthorized }

type PaymentCaptured struct {
	Envelope
	Occurrence
	PaymentID             uuid.UUID `json:"paymentId"`
	OrderID               uuid.UUID `json:"orderId"`
	AmountCents           int64     `json:"amountCents"`
	Currency              string    `json:"currency"`
	ProviderTransactionID string    `json:"providerTransactionId"`
}

func (PaymentCaptured) Kind() string { return KindPaymentCaptured }

type PaymentFailed struct {
	Envelope
	Occurrence
	PaymentID   uuid.UUID `json:"paymentId"`
	OrderID     uuid.UUID `json:"orderId"`
	Reason      string    `json:"reason"`
	FailureCode string    `json:"failureCode"`
}

func (PaymentFailed) Kind() string { return KindPaymentFailed }

type PaymentCancelled struct {
	Envelope
	Occurrence
	PaymentID uuid.UUID `json:"paymentId"`
	OrderID   uuid.UUID `json:"orderId"`
}

func (PaymentCancelled) Kind() string { return KindPaymentCancelled }

type PaymentSettled struct {
	Envelope
	Occurrence
	PaymentID            uuid.UUID `json:"paymentId"`
	OrderID              uuid.UUID `json:"orderId"`
	AmountCents          int64     `json:"amountCents"`
	Currency             string    `json:"currency"`
	ProviderSettlementID string    `json:"providerSettlementId"`
}

func (PaymentSettled) Kind() string { return KindPaymentSettled }

// --- Accounting service events ---

type LedgerEntryCreated struct {
	Envelope
	Occurrence
	LedgerEntryID uuid.UUID `json:"ledgerEntryId"`
	TransactionID uuid.UUID `json:"transactionId"`
	PaymentID     uuid.UUID `json:"paymentId"`
	DebitAccount  string    `json:"debitAccount"`
	CreditAccount string    `json:"creditAccount"`
	AmountCents   int64     `json:"amountCents"`
	Currency      string    `json:"currency"`
}

func (LedgerEntryCreated) Kind() string { return KindLedgerEntryCreated }
