package repository

import (
	"context"
)

// Статусы записи inbox
const (
	InboxStatusPending = "pending"
	InboxStatusSent    = "sent"
)

// InboxUpsertResult результат UpsertPending: уже обработано (sent) или можно продолжать (pending)
type InboxUpsertResult struct {
	AlreadyProcessed bool // запись есть со статусом sent, не обрабатывать
	CanProcess       bool // запись pending (новая или retry), продолжать обработку
	Attempts         int  // число предыдущих неудачных попыток
}

// InboxRepository inbox уведомлений. Ключ записи (event_id, kind): одно событие
// может породить несколько уведомлений разных видов.
type InboxRepository interface {
	// UpsertPending создаёт запись pending если её нет; sent -> AlreadyProcessed; pending -> CanProcess (retry)
	UpsertPending(ctx context.Context, eventID, kind, eventType string) (InboxUpsertResult, error)
	// MarkSent переводит запись в статус sent
	MarkSent(ctx context.Context, eventID, kind string) error
	// MarkFailed сохраняет last_error и увеличивает attempts (запись остаётся pending для retry)
	MarkFailed(ctx context.Context, eventID, kind, errString string) error
}
