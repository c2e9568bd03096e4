package contracts

import "github.com/google/uuid"

// Command kinds. Commands are point-to-point requests for action and are
// routed to exactly one consuming service.
const (
	KindAuthorizePayment = "payments.authorize"
	KindCapturePayment   = "payments.capture"
	KindCancelPayment    = "payments.cancel"
)

// AuthorizePayment asks the payments service to reserve funds for an order.
// The idempotency key makes duplicate submissions safe: the payments service
// creates at most one Payment per key.
type AuthorizePayment struct {
	Envelope
	OrderID        uuid.UUID `json:"orderId" validate:"required"`
	AmountCents    int64     `json:"amountCents" validate:"gt=0"`
	Currency       string    `json:"currency" validate:"len=3"`
	IdempotencyKey string    `json:"idempotencyKey" validate:"required"`
}

func (AuthorizePayment) Kind() string { return KindAuthorizePayment }

// CapturePayment asks the payments service to move previously authorized
// funds. Capture is the point of no return; afterwards only refunds apply.
type CapturePayment struct {
	Envelope
	PaymentID      uuid.UUID `json:"paymentId" validate:"required"`
	OrderID        uuid.UUID `json:"orderId" validate:"required"`
	IdempotencyKey string    `json:"idempotencyKey" validate:"required"`
}

func (CapturePayment) Kind() string { return KindCapturePayment }

// CancelPayment voids an authorized-but-uncaptured payment, releasing the
// hold on the customer's funds.
type CancelPayment struct {
	Envelope
	PaymentID      uuid.UUID `json:"paymentId" validate:"required"`
	OrderID        uuid.UUID `json:"orderId" validate:"required"`
	IdempotencyKey string    `json:"idempotencyKey" validate:"required"`
}

func (CancelPayment) Kind() string { return KindCancelPayment }
