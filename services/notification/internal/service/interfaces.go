package service

import (
	"context"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	httpclient "github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/client/http"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/templates"
)

// Виды уведомлений; совпадают с именами шаблонов
const (
	KindOrderCreated     = "order_created"
	KindPaymentCompleted = "payment_completed"
	KindUserRegistered   = "user_registered"
	KindPasswordReset    = "password_reset"
	KindBookingCreated   = "booking_created"
	KindBookingUpdated   = "booking_updated"
	KindBookingCancelled = "booking_cancelled"
	KindBookingDeleted   = "booking_deleted"
)

// UserDirectory синхронный lookup получателя в User Service
type UserDirectory interface {
	// GetPublicUser возвращает httpclient.ErrUserNotFound, если пользователя нет
	GetPublicUser(ctx context.Context, userID string) (httpclient.PublicUser, error)
}

// Renderer рендерит письмо по виду уведомления
type Renderer interface {
	Render(kind string, data templates.Data) (templates.Rendered, error)
}

// Sender ставит письмо в очередь отправки
type Sender interface {
	Send(ctx context.Context, email contracts.EmailOutbound) error
}
