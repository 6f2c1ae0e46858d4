package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	httpclient "github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/client/http"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/templates"
)

// messageNamespace пространство имён для детерминированных MessageId писем
var messageNamespace = uuid.MustParse("0b6f8d4e-5a57-4c8e-9d7e-3c1f2a9b6e41")

// ErrNoRecipient в событии нет ни получателя, ни UserId для lookup
var ErrNoRecipient = errors.New("notification has no recipient")

// NotificationService Notification Dispatcher: событие -> получатель -> шаблон -> очередь писем.
// Идемпотентность через inbox (event_id, kind).
type NotificationService struct {
	logger   *zap.Logger
	inbox    repository.InboxRepository
	users    UserDirectory
	renderer Renderer
	sender   Sender
	now      func() time.Time
}

// NewNotificationService создаёт новый экземпляр NotificationService
func NewNotificationService(
	logger *zap.Logger,
	inbox repository.InboxRepository,
	users UserDirectory,
	renderer Renderer,
	sender Sender,
) *NotificationService {
	return &NotificationService{
		logger:   logger,
		inbox:    inbox,
		users:    users,
		renderer: renderer,
		sender:   sender,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// notification одно уведомление: recipient известен из события, иначе lookup по userID
type notification struct {
	kind      string
	meta      eventbus.Metadata
	userID    string
	recipient *httpclient.PublicUser
	event     any
}

// HandleOrderCreated письмо о принятом заказе
func (s *NotificationService) HandleOrderCreated(ctx context.Context, meta eventbus.Metadata, e contracts.OrderCreated) error {
	return s.dispatch(ctx, notification{kind: KindOrderCreated, meta: meta, userID: e.UserID, event: e})
}

// HandlePaymentCompleted письмо об оплате заказа
func (s *NotificationService) HandlePaymentCompleted(ctx context.Context, meta eventbus.Metadata, e contracts.PaymentCompleted) error {
	return s.dispatch(ctx, notification{kind: KindPaymentCompleted, meta: meta, userID: e.UserID, event: e})
}

// HandleUserRegistered приветственное письмо; адрес берётся из события
func (s *NotificationService) HandleUserRegistered(ctx context.Context, meta eventbus.Metadata, e contracts.UserRegistered) error {
	return s.dispatch(ctx, notification{
		kind:      KindUserRegistered,
		meta:      meta,
		userID:    e.UserID,
		recipient: &httpclient.PublicUser{ID: e.UserID, Email: e.Email, UserName: e.UserName},
		event:     e,
	})
}

// HandlePasswordResetRequested письмо с кодом сброса; адрес берётся из события
func (s *NotificationService) HandlePasswordResetRequested(ctx context.Context, meta eventbus.Metadata, e contracts.PasswordResetRequested) error {
	return s.dispatch(ctx, notification{
		kind:      KindPasswordReset,
		meta:      meta,
		userID:    e.UserID,
		recipient: &httpclient.PublicUser{ID: e.UserID, Email: e.Email, UserName: e.UserName},
		event:     e,
	})
}

// HandleBookingCreated письмо о новом бронировании
func (s *NotificationService) HandleBookingCreated(ctx context.Context, meta eventbus.Metadata, e contracts.BookingCreated) error {
	return s.dispatch(ctx, notification{kind: KindBookingCreated, meta: meta, userID: e.UserID, event: e})
}

// HandleBookingUpdated письмо об изменении бронирования
func (s *NotificationService) HandleBookingUpdated(ctx context.Context, meta eventbus.Metadata, e contracts.BookingUpdated) error {
	return s.dispatch(ctx, notification{kind: KindBookingUpdated, meta: meta, userID: e.UserID, event: e})
}

// HandleBookingCancelled письмо об отмене бронирования
func (s *NotificationService) HandleBookingCancelled(ctx context.Context, meta eventbus.Metadata, e contracts.BookingCancelled) error {
	return s.dispatch(ctx, notification{kind: KindBookingCancelled, meta: meta, userID: e.UserID, event: e})
}

// HandleBookingDeleted письмо об удалении бронирования
func (s *NotificationService) HandleBookingDeleted(ctx context.Context, meta eventbus.Metadata, e contracts.BookingDeleted) error {
	return s.dispatch(ctx, notification{kind: KindBookingDeleted, meta: meta, userID: e.UserID, event: e})
}

func (s *NotificationService) dispatch(ctx context.Context, n notification) error {
	log := observability.L(ctx, s.logger,
		zap.String("event_id", n.meta.EventID),
		zap.String("event_type", n.meta.EventType),
		zap.String("kind", n.kind),
	)
	log.Info("handling notification event", zap.String("user_id", n.userID))

	res, err := s.inbox.UpsertPending(ctx, n.meta.EventID, n.kind, n.meta.EventType)
	if err != nil {
		log.Error("failed to upsert inbox", zap.Error(err))
		return err
	}
	if res.AlreadyProcessed {
		log.Info("notification already sent (duplicate)")
		return nil
	}
	if res.Attempts > 0 {
		log.Info("retrying notification", zap.Int("previous_attempts", res.Attempts))
	}

	if err := s.deliver(ctx, n); err != nil {
		if markErr := s.inbox.MarkFailed(ctx, n.meta.EventID, n.kind, err.Error()); markErr != nil {
			log.Warn("failed to mark inbox failed", zap.Error(markErr))
		}
		log.Warn("notification not sent", zap.Error(err), zap.Bool("permanent", eventbus.IsPermanent(err)))
		return err
	}

	// письмо уже в очереди: повтор после ошибки MarkSent даст дубликат с тем же MessageId
	if err := s.inbox.MarkSent(ctx, n.meta.EventID, n.kind); err != nil {
		log.Error("failed to mark inbox sent", zap.Error(err))
		return err
	}
	log.Info("notification sent")
	return nil
}

func (s *NotificationService) deliver(ctx context.Context, n notification) error {
	recipient, err := s.resolve(ctx, n)
	if err != nil {
		return err
	}

	rendered, err := s.renderer.Render(n.kind, templates.Data{
		UserName: recipient.UserName,
		Email:    recipient.Email,
		Event:    n.event,
	})
	if err != nil {
		// шаблон не изменится от повтора
		return eventbus.Permanent(err)
	}

	return s.sender.Send(ctx, contracts.EmailOutbound{
		MessageID:     MessageID(n.meta.EventID, n.kind),
		To:            recipient.Email,
		Subject:       rendered.Subject,
		Body:          rendered.Body,
		Kind:          n.kind,
		SourceEventID: n.meta.EventID,
		CreatedAt:     s.now(),
	})
}

func (s *NotificationService) resolve(ctx context.Context, n notification) (httpclient.PublicUser, error) {
	if n.recipient != nil && n.recipient.Email != "" {
		return *n.recipient, nil
	}
	if n.userID == "" {
		return httpclient.PublicUser{}, eventbus.Permanent(ErrNoRecipient)
	}
	user, err := s.users.GetPublicUser(ctx, n.userID)
	switch {
	case errors.Is(err, httpclient.ErrUserNotFound):
		return httpclient.PublicUser{}, eventbus.Permanent(fmt.Errorf("recipient %s: %w", n.userID, err))
	case err != nil:
		return httpclient.PublicUser{}, fmt.Errorf("resolve recipient %s: %w", n.userID, err)
	case user.Email == "":
		return httpclient.PublicUser{}, eventbus.Permanent(fmt.Errorf("recipient %s: %w", n.userID, ErrNoRecipient))
	}
	return user, nil
}

// MessageID детерминированный идентификатор письма для пары (event_id, kind)
func MessageID(eventID, kind string) string {
	return uuid.NewSHA1(messageNamespace, []byte(eventID+"/"+kind)).String()
}
