package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/event"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/repository"
)

const maxStatusRetries = 5

// ErrInvalidInput некорректные входные данные
var ErrInvalidInput = errors.New("invalid input")

// OutboxNotifier будит outbox dispatcher после коммита
type OutboxNotifier interface {
	Notify()
}

type noopNotifier struct{}

func (noopNotifier) Notify() {}

// OrderService бизнес-логика заказов.
// События пишутся в outbox вместе с заказом, публикует их dispatcher.
type OrderService struct {
	logger   *zap.Logger
	repo     repository.OrderRepository
	notifier OutboxNotifier
	now      func() time.Time
}

// NewOrderService создаёт OrderService; notifier может быть nil
func NewOrderService(logger *zap.Logger, repo repository.OrderRepository, notifier OutboxNotifier) *OrderService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &OrderService{
		logger:   logger,
		repo:     repo,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func envelopes(events ...eventbus.Event) ([]eventbus.Envelope, error) {
	out := make([]eventbus.Envelope, 0, len(events))
	for _, e := range events {
		env, err := eventbus.NewEnvelope(event.ServiceName, e)
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, nil
}

// CreateOrderInput входные данные для создания заказа
type CreateOrderInput struct {
	UserID string
	Items  []domain.Item
	Notes  string
}

func validateItems(items []domain.Item) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(items))
	for i, it := range items {
		switch {
		case strings.TrimSpace(it.ProductID) == "":
			return fmt.Errorf("%w: product_id is required in items[%d]", ErrInvalidInput, i)
		case it.Quantity <= 0:
			return fmt.Errorf("%w: quantity must be > 0 in items[%d]", ErrInvalidInput, i)
		case it.UnitPrice < 0:
			return fmt.Errorf("%w: unit_price must be >= 0 in items[%d]", ErrInvalidInput, i)
		case seen[it.ProductID]:
			return fmt.Errorf("%w: duplicate product_id %s", ErrInvalidInput, it.ProductID)
		}
		seen[it.ProductID] = true
	}
	return nil
}

// CreateOrder создаёт заказ в статусе Pending и пишет order.created в outbox
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return domain.Order{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if err := validateItems(in.Items); err != nil {
		return domain.Order{}, err
	}
	return s.createOrder(ctx, uuid.NewString(), in)
}

func (s *OrderService) createOrder(ctx context.Context, id string, in CreateOrderInput) (domain.Order, error) {
	now := s.now()
	order := domain.Order{
		ID:          id,
		UserID:      in.UserID,
		Status:      domain.StatusPending,
		Items:       in.Items,
		TotalAmount: domain.TotalOf(in.Items),
		Notes:       in.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	evt := contracts.OrderCreated{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		CreatedAt:   now,
		Items:       make([]contracts.OrderItem, 0, len(order.Items)),
	}
	for _, it := range order.Items {
		evt.Items = append(evt.Items, contracts.OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			LineTotal:   it.LineTotal(),
		})
	}
	envs, err := envelopes(evt)
	if err != nil {
		return domain.Order{}, err
	}

	if err := s.repo.Create(ctx, order, envs...); err != nil {
		return domain.Order{}, err
	}
	s.notifier.Notify()

	observability.L(ctx, s.logger).Info("order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.Float64("total_amount", order.TotalAmount),
		zap.Int("items", len(order.Items)),
	)
	return order, nil
}

// GetOrder возвращает заказ по id
func (s *OrderService) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateOrderInput nil поля не меняются
type UpdateOrderInput struct {
	Status *string
	Notes  *string
}

// UpdateOrder меняет статус (по разрешённым переходам) и/или заметки.
// Без фактических изменений событие не пишется.
func (s *OrderService) UpdateOrder(ctx context.Context, id string, in UpdateOrderInput) (domain.Order, error) {
	var target *domain.Status
	if in.Status != nil {
		st, err := domain.ParseStatus(*in.Status)
		if err != nil {
			return domain.Order{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		target = &st
	}

	for attempt := 1; ; attempt++ {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return domain.Order{}, err
		}

		next := current
		evt := contracts.OrderUpdated{OrderID: id}
		if target != nil && *target != current.Status {
			if !domain.CanTransition(current.Status, *target) {
				return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, *target)
			}
			next.Status = *target
			status := string(*target)
			evt.Status = &status
		}
		if in.Notes != nil && *in.Notes != current.Notes {
			next.Notes = *in.Notes
			notes := *in.Notes
			evt.Notes = &notes
		}
		if evt.Status == nil && evt.Notes == nil {
			return current, nil
		}

		next.UpdatedAt = s.now()
		evt.UpdatedAt = next.UpdatedAt
		envs, err := envelopes(evt)
		if err != nil {
			return domain.Order{}, err
		}

		err = s.repo.Update(ctx, next, current.Status, envs...)
		if errors.Is(err, repository.ErrStatusConflict) && attempt < maxStatusRetries {
			continue
		}
		if err != nil {
			return domain.Order{}, err
		}
		s.notifier.Notify()

		observability.L(ctx, s.logger).Info("order updated",
			zap.String("order_id", id),
			zap.String("old_status", string(current.Status)),
			zap.String("new_status", string(next.Status)),
		)
		return next, nil
	}
}

// DeleteOrder удаляет заказ и пишет order.deleted
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	envs, err := envelopes(contracts.OrderDeleted{OrderID: id, UserID: order.UserID, DeletedAt: s.now()})
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, envs...); err != nil {
		return err
	}
	s.notifier.Notify()

	observability.L(ctx, s.logger).Info("order deleted", zap.String("order_id", id), zap.String("user_id", order.UserID))
	return nil
}
