package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/services/payment/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/payment/internal/repository/memory"
)

// MockPaymentRepository реализует PaymentRepository для тестов
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (repository.Transaction, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(repository.Transaction), args.Error(1)
}

func (m *MockPaymentRepository) Create(ctx context.Context, tx repository.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockPaymentRepository) MarkPublished(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

// MockPublisher реализует eventbus.Publisher для тестов
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, events ...eventbus.Event) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(repo repository.PaymentRepository, pub eventbus.Publisher) *PaymentService {
	svc := NewPaymentService(zap.NewNop(), repo, pub)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func validInput() ProcessPaymentInput {
	return ProcessPaymentInput{OrderID: "order-1", UserID: "user-1", Amount: 100, Method: "card"}
}

func TestPaymentService_ProcessPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid input returns error, repo not called", func(t *testing.T) {
		tests := []struct {
			name string
			in   ProcessPaymentInput
		}{
			{name: "zero amount", in: ProcessPaymentInput{OrderID: "order-1", UserID: "user-1", Method: "card"}},
			{name: "negative amount", in: ProcessPaymentInput{OrderID: "order-1", UserID: "user-1", Amount: -10, Method: "card"}},
			{name: "no order", in: ProcessPaymentInput{UserID: "user-1", Amount: 10, Method: "card"}},
			{name: "no method", in: ProcessPaymentInput{OrderID: "order-1", UserID: "user-1", Amount: 10}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mockRepo := new(MockPaymentRepository)
				mockPub := new(MockPublisher)
				service := newService(mockRepo, mockPub)

				_, created, err := service.ProcessPayment(ctx, tt.in)

				require.ErrorIs(t, err, ErrInvalidInput)
				require.False(t, created)
				mockRepo.AssertNotCalled(t, "GetByOrderID", mock.Anything, mock.Anything)
				mockPub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("new payment is saved and payment.completed published", func(t *testing.T) {
		// Arrange
		mockRepo := new(MockPaymentRepository)
		mockPub := new(MockPublisher)
		service := newService(mockRepo, mockPub)

		mockRepo.On("GetByOrderID", ctx, "order-1").Return(repository.Transaction{}, repository.ErrNotFound)
		mockRepo.On("Create", ctx, mock.MatchedBy(func(tx repository.Transaction) bool {
			return tx.OrderID == "order-1" && tx.TransactionID == "tx_order-1_1772366400" && tx.PaymentID != ""
		})).Return(nil)
		mockRepo.On("MarkPublished", ctx, "order-1").Return(nil)
		mockPub.On("Publish", ctx, mock.MatchedBy(func(events []eventbus.Event) bool {
			if len(events) != 1 {
				return false
			}
			evt, ok := events[0].(contracts.PaymentCompleted)
			return ok && evt.OrderID == "order-1" && evt.Amount == 100 && evt.TransactionID == "tx_order-1_1772366400"
		})).Return(nil)

		// Act
		tx, created, err := service.ProcessPayment(ctx, validInput())

		// Assert
		require.NoError(t, err)
		require.True(t, created)
		require.True(t, tx.Published)
		require.Equal(t, fixedNow, tx.CreatedAt)
		mockRepo.AssertExpectations(t)
		mockPub.AssertExpectations(t)
	})

	t.Run("existing published transaction returns same transactionID, nothing published", func(t *testing.T) {
		mockRepo := new(MockPaymentRepository)
		mockPub := new(MockPublisher)
		service := newService(mockRepo, mockPub)

		existing := repository.Transaction{OrderID: "order-1", TransactionID: "tx_order-1_1", Published: true}
		mockRepo.On("GetByOrderID", ctx, "order-1").Return(existing, nil)

		tx, created, err := service.ProcessPayment(ctx, validInput())

		require.NoError(t, err)
		require.False(t, created)
		require.Equal(t, "tx_order-1_1", tx.TransactionID)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		mockPub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("repository error is returned", func(t *testing.T) {
		mockRepo := new(MockPaymentRepository)
		service := newService(mockRepo, new(MockPublisher))

		mockRepo.On("GetByOrderID", ctx, "order-1").Return(repository.Transaction{}, errors.New("database connection failed"))

		_, _, err := service.ProcessPayment(ctx, validInput())

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to check existing transaction")
	})
}

func TestPaymentService_PublishFailureIsRetriedOnNextCall(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	mockPub := new(MockPublisher)
	service := newService(repo, mockPub)

	mockPub.On("Publish", ctx, mock.Anything).Return(errors.New("broker down")).Once()
	first, created, err := service.ProcessPayment(ctx, validInput())
	require.ErrorIs(t, err, ErrEventNotPublished)
	require.True(t, created)

	mockPub.On("Publish", ctx, mock.Anything).Return(nil).Once()
	second, created, err := service.ProcessPayment(ctx, validInput())
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.TransactionID, second.TransactionID)
	require.Equal(t, first.PaymentID, second.PaymentID)

	// третий вызов: событие уже опубликовано
	_, _, err = service.ProcessPayment(ctx, validInput())
	require.NoError(t, err)
	mockPub.AssertNumberOfCalls(t, "Publish", 2)
}
