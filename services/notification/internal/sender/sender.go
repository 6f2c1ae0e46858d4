// Package sender ставит готовые письма в очередь отправки.
package sender

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
)

// Sender определяет интерфейс для отправки писем
type Sender interface {
	Send(ctx context.Context, email contracts.EmailOutbound) error
}

// BusSender публикует email.outbound на шину; доставку выполняет внешний почтовый шлюз
type BusSender struct {
	logger    *zap.Logger
	publisher eventbus.Publisher
}

// NewBusSender создаёт BusSender
func NewBusSender(logger *zap.Logger, publisher eventbus.Publisher) *BusSender {
	return &BusSender{logger: logger, publisher: publisher}
}

// Send возвращает ошибку, если брокер не подтвердил публикацию
func (s *BusSender) Send(ctx context.Context, email contracts.EmailOutbound) error {
	if err := s.publisher.Publish(ctx, email); err != nil {
		return fmt.Errorf("failed to enqueue email: %w", err)
	}
	observability.L(ctx, s.logger).Debug("email enqueued",
		zap.String("message_id", email.MessageID),
		zap.String("kind", email.Kind),
	)
	return nil
}

// LogSender только логирует письмо (local окружение, тесты)
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender создаёт LogSender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send ничего не отправляет, только логирует
func (s *LogSender) Send(ctx context.Context, email contracts.EmailOutbound) error {
	observability.L(ctx, s.logger).Info("log sender: email not sent",
		zap.String("message_id", email.MessageID),
		zap.String("kind", email.Kind),
		zap.String("subject", email.Subject),
		zap.String("body_preview", truncate(email.Body, 50)),
	)
	return nil
}

// truncate обрезает строку до указанной длины по границе руны
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
