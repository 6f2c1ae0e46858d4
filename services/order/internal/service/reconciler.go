package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/repository"
)

// checkoutNamespace пространство имён для id заказа, выводимого из event_id оформления корзины
var checkoutNamespace = uuid.MustParse("5f1d7c4e-3b9a-4f0e-8d2a-9c6b1e7a4d30")

// OrderIDForCheckout детерминированный id заказа: повторная доставка cart.checked_out не создаёт дубль
func OrderIDForCheckout(eventID string) string {
	return uuid.NewSHA1(checkoutNamespace, []byte(eventID)).String()
}

// HandlePaymentCompleted переводит заказ Pending -> Paid.
// Ключ идемпотентности TransactionId; статус никогда не откатывается.
func (s *OrderService) HandlePaymentCompleted(ctx context.Context, meta eventbus.Metadata, e contracts.PaymentCompleted) error {
	log := observability.L(ctx, s.logger,
		zap.String("event_id", meta.EventID),
		zap.String("event_type", meta.EventType),
		zap.String("order_id", e.OrderID),
		zap.String("transaction_id", e.TransactionID),
	)

	order, err := s.repo.GetByID(ctx, e.OrderID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn("order not found for payment")
		return eventbus.Permanent(fmt.Errorf("order %s: %w", e.OrderID, err))
	}
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}

	switch order.DecidePayment(e.TransactionID) {
	case domain.PaymentDuplicate:
		log.Info("duplicate payment event, already applied")
		return nil
	case domain.PaymentStale:
		log.Info("order already past pending, status not regressed",
			zap.String("status", string(order.Status)),
			zap.String("applied_transaction_id", order.PaymentTransactionID),
		)
		return nil
	}

	if e.Amount != order.TotalAmount {
		log.Warn("payment amount differs from order total",
			zap.Float64("amount", e.Amount),
			zap.Float64("total_amount", order.TotalAmount),
		)
	}

	paidAt := e.CompletedAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	status := string(domain.StatusPaid)
	envs, err := envelopes(contracts.OrderUpdated{OrderID: order.ID, Status: &status, UpdatedAt: paidAt})
	if err != nil {
		return err
	}

	err = s.repo.ApplyPayment(ctx, repository.Payment{
		OrderID:       order.ID,
		PaymentID:     e.PaymentID,
		TransactionID: e.TransactionID,
		Amount:        e.Amount,
		PaidAt:        paidAt,
	}, envs...)
	switch {
	case errors.Is(err, repository.ErrPaymentAlreadyApplied):
		log.Info("duplicate payment event, transaction already recorded")
		return nil
	case errors.Is(err, repository.ErrStatusConflict):
		// статус сменился между чтением и записью: повтор перечитает заказ
		return fmt.Errorf("apply payment: %w", err)
	case errors.Is(err, repository.ErrNotFound):
		log.Warn("order deleted while applying payment")
		return eventbus.Permanent(fmt.Errorf("order %s: %w", e.OrderID, err))
	case err != nil:
		return fmt.Errorf("apply payment: %w", err)
	}
	s.notifier.Notify()

	log.Info("order marked as paid", zap.String("payment_id", e.PaymentID))
	return nil
}

// HandleCartCheckedOut создаёт Pending заказ из оформленной корзины
func (s *OrderService) HandleCartCheckedOut(ctx context.Context, meta eventbus.Metadata, e contracts.CartCheckedOut) error {
	orderID := OrderIDForCheckout(meta.EventID)
	log := observability.L(ctx, s.logger,
		zap.String("event_id", meta.EventID),
		zap.String("event_type", meta.EventType),
		zap.String("order_id", orderID),
		zap.String("user_id", e.UserID),
	)

	items := make([]domain.Item, 0, len(e.Items))
	for _, it := range e.Items {
		items = append(items, domain.Item{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
		})
	}
	if err := validateItems(items); err != nil {
		return eventbus.Permanent(err)
	}

	_, err := s.createOrder(ctx, orderID, CreateOrderInput{UserID: e.UserID, Items: items})
	if errors.Is(err, repository.ErrAlreadyExists) {
		log.Info("duplicate checkout event, order already created")
		return nil
	}
	if err != nil {
		return fmt.Errorf("create order from checkout: %w", err)
	}
	log.Info("order created from checkout", zap.Int("items", len(items)))
	return nil
}
