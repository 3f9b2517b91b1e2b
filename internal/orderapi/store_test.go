package orderapi

import (
	"context"
	"sync"
	"time"

	"tailoring-bot/internal/events"
	"tailoring-bot/internal/storage"
)

type memStore struct {
	mu          sync.Mutex
	submissions map[string]*storage.Submission
	sessions    map[string]string
	fittings    []*storage.Fitting
	payments    map[string]*storage.Payment
}

func newMemStore() *memStore {
	return &memStore{
		submissions: make(map[string]*storage.Submission),
		sessions:    make(map[string]string),
		payments:    make(map[string]*storage.Payment),
	}
}

func (m *memStore) SaveSubmission(_ context.Context, sub *storage.Submission) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.sessions[sub.SessionID]; ok {
		return id, nil
	}
	cp := *sub
	cp.CreatedAt = time.Now()
	m.submissions[sub.ID] = &cp
	m.sessions[sub.SessionID] = sub.ID
	return sub.ID, nil
}

func (m *memStore) GetSubmission(_ context.Context, id string) (*storage.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *memStore) SaveFitting(_ context.Context, f *storage.Fitting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fittings = append(m.fittings, f)
	return nil
}

func (m *memStore) CreatePayment(_ context.Context, p *storage.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.payments[p.OrderID] = &cp
	return nil
}

func (m *memStore) GetPayment(_ context.Context, orderID string) (*storage.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[orderID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ConfirmPayment(_ context.Context, submissionID, orderID, paymentID, signature string) (*storage.ConfirmedOrder, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[orderID]
	if !ok || p.SubmissionID != submissionID {
		return nil, false, storage.ErrNotFound
	}
	changed := p.Status != storage.PaymentPaid
	if changed {
		for id, other := range m.payments {
			if id != orderID && other.PaymentID != nil && *other.PaymentID == paymentID {
				return nil, false, storage.ErrPaymentReused
			}
		}
		now := time.Now()
		p.Status = storage.PaymentPaid
		p.PaymentID = &paymentID
		p.Signature = &signature
		p.PaidAt = &now
	}

	sub := m.submissions[submissionID]
	sub.OrderStatus = storage.StatusConfirmed
	return &storage.ConfirmedOrder{
		SubmissionID: sub.ID,
		SessionID:    sub.SessionID,
		OrderID:      orderID,
		PaymentID:    *p.PaymentID,
		FirstName:    sub.FirstName,
		LastName:     sub.LastName,
		Email:        sub.Email,
		Phone:        sub.Phone,
		FabricChoice: sub.FabricChoice,
		Quantity:     p.Quantity,
		Amount:       p.Amount,
		Currency:     p.Currency,
		IsMock:       p.IsMock,
		PaidAt:       *p.PaidAt,
	}, changed, nil
}

func (m *memStore) MarkConfirmed(_ context.Context, submissionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[submissionID]
	if !ok {
		return storage.ErrNotFound
	}
	sub.OrderStatus = storage.StatusConfirmed
	return nil
}

func (m *memStore) Ping(context.Context) error { return nil }

type memReport struct {
	mu     sync.Mutex
	orders []storage.ConfirmedOrder
}

func (r *memReport) Append(o storage.ConfirmedOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, o)
	return nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []events.OrderConfirmed
}

func (p *memPublisher) PublishOrderConfirmed(_ context.Context, ev events.OrderConfirmed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *memPublisher) Close() error { return nil }
