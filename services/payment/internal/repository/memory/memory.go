package memory

import (
	"context"
	"sync"

	"github.com/vladyslavplus/KosherClouds-sub002/services/payment/internal/repository"
)

// MemoryRepository реализует PaymentRepository в памяти процесса
type MemoryRepository struct {
	mu           sync.RWMutex
	transactions map[string]repository.Transaction // ключ = orderID
}

// NewMemoryRepository создаёт новый in-memory репозиторий
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		transactions: make(map[string]repository.Transaction),
	}
}

// GetByOrderID получает транзакцию по orderID
func (r *MemoryRepository) GetByOrderID(ctx context.Context, orderID string) (repository.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, exists := r.transactions[orderID]
	if !exists {
		return repository.Transaction{}, repository.ErrNotFound
	}
	return tx, nil
}

// Create сохраняет транзакцию, если по заказу её ещё нет
func (r *MemoryRepository) Create(ctx context.Context, tx repository.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.transactions[tx.OrderID]; exists {
		return repository.ErrAlreadyExists
	}
	r.transactions[tx.OrderID] = tx
	return nil
}

// MarkPublished выставляет Published
func (r *MemoryRepository) MarkPublished(ctx context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, exists := r.transactions[orderID]
	if !exists {
		return repository.ErrNotFound
	}
	tx.Published = true
	r.transactions[orderID] = tx
	return nil
}
