package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cassiomorais/checkout/internal/contracts"
	"github.com/google/uuid"
)

// MaxRetries caps transient publish attempts. A message whose retries reach
// this value is never selected again; poisoned messages are pinned here on
// their first attempt.
const MaxRetries = 5

// Message is one row of the transactional outbox. Rows are inserted in the
// same local transaction as the aggregate change they describe and mutated
// only by the dispatcher afterwards.
type Message struct {
	ID          uuid.UUID
	OccurredOn  time.Time
	Type        string
	Payload     []byte
	ProcessedOn *time.Time
	Retries     int
	Error       *string
}

// NewMessage serializes a contracts message into an outbox row. Events keep
// their own occurrence timestamp so dispatch order preserves causality;
// commands are stamped at staging time.
func NewMessage(msg contracts.Message) (*Message, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal outbox payload for %s: %w", msg.Kind(), err)
	}

	occurredOn := time.Now().UTC()
	if ev, ok := msg.(contracts.Event); ok {
		occurredOn = ev.When()
	}

	return &Message{
		ID:         uuid.New(),
		OccurredOn: occurredOn,
		Type:       msg.Kind(),
		Payload:    payload,
	}, nil
}

// Writer is the insert-side port used by command and event handlers.
type Writer interface {
	Insert(ctx context.Context, m *Message) error
}

// Stage serializes and inserts messages. Callers invoke it inside the same
// transaction that persists the aggregate, which is the whole point of the
// outbox: state change and announcement commit or roll back together.
func Stage(ctx context.Context, w Writer, msgs ...contracts.Message) error {
	for _, msg := range msgs {
		m, err := NewMessage(msg)
		if err != nil {
			return err
		}
		if err := w.Insert(ctx, m); err != nil {
			return fmt.Errorf("stage outbox message %s: %w", msg.Kind(), err)
		}
	}
	return nil
}
