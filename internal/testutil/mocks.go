package testutil

import (
	"context"
	"sync"

	"github.com/cassiomorais/checkout/internal/contracts"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/ledger"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/outbox"
	"github.com/google/uuid"
)

// --- Order Repository Mock ---

// MockOrderRepository is an in-memory implementation of order.Repository.
// Set a Func field to override one method for a test.
type MockOrderRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*order.Order
	byKey  map[string]*order.Order

	CreateFunc              func(ctx context.Context, o *order.Order) error
	GetByIDFunc             func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetByIdempotencyKeyFunc func(ctx context.Context, key string) (*order.Order, error)
	UpdateFunc              func(ctx context.Context, o *order.Order) error
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[uuid.UUID]*order.Order),
		byKey:  make(map[string]*order.Order),
	}
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byKey[o.IdempotencyKey]; exists {
		return domainErrors.ErrDuplicateIdempotencyKey
	}
	m.orders[o.ID] = o
	m.byKey[o.IdempotencyKey] = o
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	return o, nil
}

func (m *MockOrderRepository) GetByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	if m.GetByIdempotencyKeyFunc != nil {
		return m.GetByIdempotencyKeyFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byKey[key]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	return o, nil
}

func (m *MockOrderRepository) Update(ctx context.Context, o *order.Order) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return domainErrors.ErrOrderNotFound
	}
	m.orders[o.ID] = o
	o.Version++
	return nil
}

// --- Payment Repository Mock ---

// MockPaymentRepository is an in-memory implementation of payment.Repository.
type MockPaymentRepository struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*payment.Payment
	byKey    map[string]*payment.Payment

	CreateFunc                     func(ctx context.Context, p *payment.Payment) error
	GetByIDFunc                    func(ctx context.Context, id uuid.UUID) (*payment.Payment, error)
	GetByIdempotencyKeyFunc        func(ctx context.Context, key string) (*payment.Payment, error)
	GetByProviderTransactionIDFunc func(ctx context.Context, providerTxnID string) (*payment.Payment, error)
	UpdateFunc                     func(ctx context.Context, p *payment.Payment) error
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[uuid.UUID]*payment.Payment),
		byKey:    make(map[string]*payment.Payment),
	}
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byKey[p.IdempotencyKey]; exists {
		return domainErrors.ErrDuplicateIdempotencyKey
	}
	m.payments[p.ID] = p
	m.byKey[p.IdempotencyKey] = p
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, domainErrors.ErrPaymentNotFound
	}
	return p, nil
}

func (m *MockPaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*payment.Payment, error) {
	if m.GetByIdempotencyKeyFunc != nil {
		return m.GetByIdempotencyKeyFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byKey[key]
	if !ok {
		return nil, domainErrors.ErrPaymentNotFound
	}
	return p, nil
}

func (m *MockPaymentRepository) GetByProviderTransactionID(ctx context.Context, providerTxnID string) (*payment.Payment, error) {
	if m.GetByProviderTransactionIDFunc != nil {
		return m.GetByProviderTransactionIDFunc(ctx, providerTxnID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ProviderTransactionID != nil && *p.ProviderTransactionID == providerTxnID {
			return p, nil
		}
	}
	return nil, domainErrors.ErrPaymentNotFound
}

func (m *MockPaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[p.ID]; !ok {
		return domainErrors.ErrPaymentNotFound
	}
	m.payments[p.ID] = p
	p.Version++
	return nil
}

// --- Ledger Repository Mock ---

// MockLedgerRepository is an in-memory implementation of ledger.Repository.
type MockLedgerRepository struct {
	mu      sync.Mutex
	entries []*ledger.Entry

	InsertFunc func(ctx context.Context, entries ...*ledger.Entry) error
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{}
}

func (m *MockLedgerRepository) Insert(ctx context.Context, entries ...*ledger.Entry) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, entries...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *MockLedgerRepository) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range m.entries {
		if e.PaymentID == paymentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockLedgerRepository) SumTotals(ctx context.Context) (*ledger.Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &ledger.Totals{}
	for _, e := range m.entries {
		t.DebitCents += e.DebitCents
		t.CreditCents += e.CreditCents
		t.EntryCount++
	}
	return t, nil
}

// Entries returns a copy of everything inserted so far.
func (m *MockLedgerRepository) Entries() []*ledger.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ledger.Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// --- Outbox Writer Mock ---

// MockOutboxWriter records staged outbox messages.
type MockOutboxWriter struct {
	mu       sync.Mutex
	messages []*outbox.Message

	InsertFunc func(ctx context.Context, m *outbox.Message) error
}

func NewMockOutboxWriter() *MockOutboxWriter {
	return &MockOutboxWriter{}
}

func (m *MockOutboxWriter) Insert(ctx context.Context, msg *outbox.Message) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of everything staged so far.
func (m *MockOutboxWriter) Messages() []*outbox.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*outbox.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Kinds returns the staged message types in order.
func (m *MockOutboxWriter) Kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		kinds = append(kinds, msg.Type)
	}
	return kinds
}

// --- Processed Commands Mock ---

// MockProcessedCommands is an in-memory dedup store.
type MockProcessedCommands struct {
	mu   sync.Mutex
	keys map[string]bool
}

func NewMockProcessedCommands() *MockProcessedCommands {
	return &MockProcessedCommands{keys: make(map[string]bool)}
}

func (m *MockProcessedCommands) Seen(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *MockProcessedCommands) Record(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = true
	return nil
}

// --- Transaction Manager Mock ---

// PassthroughTxManager runs the callback without a real transaction.
type PassthroughTxManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *PassthroughTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// --- Bus Mock ---

// RecordingBus captures published and sent messages.
type RecordingBus struct {
	mu        sync.Mutex
	Published []contracts.Message
	Sent      []contracts.Message

	PublishFunc func(ctx context.Context, msg contracts.Message) error
	SendFunc    func(ctx context.Context, msg contracts.Message) error
}

func NewRecordingBus() *RecordingBus {
	return &RecordingBus{}
}

func (b *RecordingBus) Publish(ctx context.Context, msg contracts.Message) error {
	if b.PublishFunc != nil {
		return b.PublishFunc(ctx, msg)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Published = append(b.Published, msg)
	return nil
}

func (b *RecordingBus) Send(ctx context.Context, msg contracts.Message) error {
	if b.SendFunc != nil {
		return b.SendFunc(ctx, msg)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Sent = append(b.Sent, msg)
	return nil
}

// SentKinds returns the kinds of sent commands in order.
func (b *RecordingBus) SentKinds() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	kinds := make([]string, 0, len(b.Sent))
	for _, msg := range b.Sent {
		kinds = append(kinds, msg.Kind())
	}
	return kinds
}
