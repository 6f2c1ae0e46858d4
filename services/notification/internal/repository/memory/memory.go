package memory

import (
	"context"
	"sync"

	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/repository"
)

type inboxKey struct {
	eventID, kind string
}

type inboxEntry struct {
	status    string
	attempts  int
	lastError string
}

// InboxRepository реализует InboxRepository в памяти процесса.
// Для local окружения и тестов: после рестарта дубликаты не распознаются.
type InboxRepository struct {
	mu      sync.Mutex
	entries map[inboxKey]*inboxEntry
}

var _ repository.InboxRepository = (*InboxRepository)(nil)

// NewInboxRepository создаёт in-memory inbox
func NewInboxRepository() *InboxRepository {
	return &InboxRepository{entries: make(map[inboxKey]*inboxEntry)}
}

// UpsertPending создаёт pending запись или возвращает состояние существующей
func (r *InboxRepository) UpsertPending(ctx context.Context, eventID, kind, eventType string) (repository.InboxUpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := inboxKey{eventID: eventID, kind: kind}
	entry, exists := r.entries[key]
	if !exists {
		r.entries[key] = &inboxEntry{status: repository.InboxStatusPending}
		return repository.InboxUpsertResult{CanProcess: true}, nil
	}
	if entry.status == repository.InboxStatusSent {
		return repository.InboxUpsertResult{AlreadyProcessed: true, Attempts: entry.attempts}, nil
	}
	return repository.InboxUpsertResult{CanProcess: true, Attempts: entry.attempts}, nil
}

// MarkSent переводит запись в sent
func (r *InboxRepository) MarkSent(ctx context.Context, eventID, kind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.entries[inboxKey{eventID: eventID, kind: kind}]; exists {
		entry.status = repository.InboxStatusSent
		entry.lastError = ""
	}
	return nil
}

// MarkFailed сохраняет ошибку попытки pending записи
func (r *InboxRepository) MarkFailed(ctx context.Context, eventID, kind, errString string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.entries[inboxKey{eventID: eventID, kind: kind}]; exists && entry.status == repository.InboxStatusPending {
		entry.attempts++
		entry.lastError = errString
	}
	return nil
}

// LastError последняя ошибка записи (для тестов и отладки)
func (r *InboxRepository) LastError(eventID, kind string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.entries[inboxKey{eventID: eventID, kind: kind}]; exists {
		return entry.lastError
	}
	return ""
}
