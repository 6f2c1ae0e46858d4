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
	"github.com/vladyslavplus/KosherClouds-sub002/services/payment/internal/repository"
)

const statusSuccess = "success"

var (
	// ErrInvalidInput некорректные входные данные
	ErrInvalidInput = errors.New("invalid input")
	// ErrEventNotPublished платёж сохранён, но payment.completed не опубликовано
	ErrEventNotPublished = errors.New("event not published")
)

// ProcessPaymentInput параметры оплаты заказа
type ProcessPaymentInput struct {
	OrderID string
	UserID  string
	Amount  float64
	Method  string
}

// PaymentService обрабатывает оплату заказов
type PaymentService struct {
	logger    *zap.Logger
	repo      repository.PaymentRepository
	publisher eventbus.Publisher
	now       func() time.Time
}

// NewPaymentService создаёт новый экземпляр PaymentService
func NewPaymentService(logger *zap.Logger, repo repository.PaymentRepository, publisher eventbus.Publisher) *PaymentService {
	return &PaymentService{
		logger:    logger,
		repo:      repo,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ProcessPayment обрабатывает платеж.
// Идемпотентна по orderID: повторный вызов возвращает ту же транзакцию и created=false.
// Если payment.completed по существующей транзакции ещё не опубликовано, публикует его повторно.
func (s *PaymentService) ProcessPayment(ctx context.Context, in ProcessPaymentInput) (tx repository.Transaction, created bool, err error) {
	log := observability.L(ctx, s.logger, zap.String("order_id", in.OrderID))

	if in.OrderID == "" || in.UserID == "" || in.Method == "" {
		return repository.Transaction{}, false, fmt.Errorf("%w: order, user and method are required", ErrInvalidInput)
	}
	if in.Amount <= 0 {
		return repository.Transaction{}, false, fmt.Errorf("%w: invalid amount: must be greater than 0", ErrInvalidInput)
	}

	existing, err := s.repo.GetByOrderID(ctx, in.OrderID)
	switch {
	case err == nil:
		log.Info("payment already processed", zap.String("transaction_id", existing.TransactionID))
		return existing, false, s.ensurePublished(ctx, existing)
	case !errors.Is(err, repository.ErrNotFound):
		return repository.Transaction{}, false, fmt.Errorf("failed to check existing transaction: %w", err)
	}

	now := s.now()
	tx = repository.Transaction{
		PaymentID:     uuid.NewString(),
		OrderID:       in.OrderID,
		UserID:        in.UserID,
		Amount:        in.Amount,
		Method:        in.Method,
		TransactionID: fmt.Sprintf("tx_%s_%d", in.OrderID, now.Unix()),
		Status:        statusSuccess,
		CreatedAt:     now,
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		if !errors.Is(err, repository.ErrAlreadyExists) {
			return repository.Transaction{}, false, fmt.Errorf("failed to save transaction: %w", err)
		}
		// параллельный запрос по тому же заказу успел раньше
		existing, err := s.repo.GetByOrderID(ctx, in.OrderID)
		if err != nil {
			return repository.Transaction{}, false, fmt.Errorf("failed to load transaction: %w", err)
		}
		return existing, false, s.ensurePublished(ctx, existing)
	}

	log.Info("payment processed",
		zap.String("payment_id", tx.PaymentID),
		zap.String("transaction_id", tx.TransactionID),
		zap.Float64("amount", tx.Amount),
	)
	if err := s.ensurePublished(ctx, tx); err != nil {
		return tx, true, err
	}
	tx.Published = true
	return tx, true, nil
}

func (s *PaymentService) ensurePublished(ctx context.Context, tx repository.Transaction) error {
	if tx.Published {
		return nil
	}
	evt := contracts.PaymentCompleted{
		PaymentID:     tx.PaymentID,
		OrderID:       tx.OrderID,
		UserID:        tx.UserID,
		Amount:        tx.Amount,
		TransactionID: tx.TransactionID,
		CompletedAt:   tx.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		observability.L(ctx, s.logger).Error("failed to publish payment.completed",
			zap.Error(err),
			zap.String("order_id", tx.OrderID),
			zap.String("transaction_id", tx.TransactionID),
		)
		return fmt.Errorf("%w: %v", ErrEventNotPublished, err)
	}
	if err := s.repo.MarkPublished(ctx, tx.OrderID); err != nil {
		// событие уже в шине; повторная публикация безопасна для идемпотентного потребителя
		observability.L(ctx, s.logger).Warn("failed to mark payment published", zap.Error(err), zap.String("order_id", tx.OrderID))
	}
	return nil
}
