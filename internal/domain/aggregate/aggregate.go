package aggregate

import (
	"time"

	"github.com/cassiomorais/checkout/internal/contracts"
	"github.com/google/uuid"
)

// Root is the identity/audit value embedded in every aggregate, together
// with the append-only buffer of events pending outbox commit.
//
// Version backs optimistic concurrency: repositories compare-and-increment
// it on update, so two concurrently delivered messages touching the same
// aggregate cannot interleave into a lost or illegal transition.
type Root struct {
	ID        uuid.UUID
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time

	pending []contracts.Message
}

// NewRoot initializes identity and timestamps for a fresh aggregate.
func NewRoot() Root {
	now := time.Now().UTC()
	return Root{ID: uuid.New(), Version: 1, CreatedAt: now, UpdatedAt: now}
}

// Record buffers a domain event until the owning transaction commits.
func (r *Root) Record(msg contracts.Message) {
	r.pending = append(r.pending, msg)
}

// PendingEvents returns the buffered events in the order they were raised.
func (r *Root) PendingEvents() []contracts.Message {
	return r.pending
}

// ClearEvents empties the buffer. Callers do this only after the outbox
// rows and the aggregate state have committed together.
func (r *Root) ClearEvents() {
	r.pending = nil
}

// Touch bumps the audit timestamp on every state change.
func (r *Root) Touch() {
	r.UpdatedAt = time.Now().UTC()
}
