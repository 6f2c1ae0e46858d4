// Package memory хранилище заказов в памяти для тестов и локального запуска без PostgreSQL
package memory

import (
	"context"
	"sync"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/outbox"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/repository"
)

type outboxRow struct {
	rec  outbox.Record
	sent bool
	err  string
}

// Repository реализует OrderRepository в памяти
type Repository struct {
	mu       sync.Mutex
	orders   map[string]domain.Order
	payments map[string]repository.Payment
	outbox   []*outboxRow
}

var _ repository.OrderRepository = (*Repository)(nil)

// NewRepository создаёт пустое хранилище
func NewRepository() *Repository {
	return &Repository{
		orders:   make(map[string]domain.Order),
		payments: make(map[string]repository.Payment),
	}
}

func (r *Repository) appendOutbox(events []eventbus.Envelope) {
	for _, env := range events {
		r.outbox = append(r.outbox, &outboxRow{rec: outbox.Record{Envelope: env}})
	}
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.Item(nil), o.Items...)
	return o
}

func (r *Repository) Create(ctx context.Context, o domain.Order, events ...eventbus.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; ok {
		return repository.ErrAlreadyExists
	}
	o.UpdatedAt = o.CreatedAt
	r.orders[o.ID] = cloneOrder(o)
	r.appendOutbox(events)
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, repository.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *Repository) Update(ctx context.Context, o domain.Order, expected domain.Status, events ...eventbus.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.orders[o.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Status != expected {
		return repository.ErrStatusConflict
	}
	cur.Status = o.Status
	cur.Notes = o.Notes
	cur.UpdatedAt = o.UpdatedAt
	r.orders[o.ID] = cur
	r.appendOutbox(events)
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string, events ...eventbus.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.orders, id)
	r.appendOutbox(events)
	return nil
}

func (r *Repository) ApplyPayment(ctx context.Context, p repository.Payment, events ...eventbus.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.TransactionID]; ok {
		return repository.ErrPaymentAlreadyApplied
	}
	cur, ok := r.orders[p.OrderID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Status != domain.StatusPending {
		return repository.ErrStatusConflict
	}
	paidAt := p.PaidAt
	cur.Status = domain.StatusPaid
	cur.PaymentTransactionID = p.TransactionID
	cur.PaidAt = &paidAt
	cur.UpdatedAt = paidAt
	r.orders[p.OrderID] = cur
	r.payments[p.TransactionID] = p
	r.appendOutbox(events)
	return nil
}

func (r *Repository) PendingOutbox(ctx context.Context, limit int) ([]outbox.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []outbox.Record
	for _, row := range r.outbox {
		if len(out) == limit {
			break
		}
		if !row.sent {
			out = append(out, row.rec)
		}
	}
	return out, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.outbox {
		if row.rec.Envelope.EventID == eventID {
			row.sent = true
			row.err = ""
		}
	}
	return nil
}

func (r *Repository) MarkOutboxFailed(ctx context.Context, eventID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.outbox {
		if row.rec.Envelope.EventID == eventID {
			row.rec.Attempts++
			row.err = errMsg
		}
	}
	return nil
}
