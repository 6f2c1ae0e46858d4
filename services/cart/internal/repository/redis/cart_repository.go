package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/repository"
)

// maxTxRetries число повторов WATCH/MULTI при конкурентной записи
const maxTxRetries = 10

// CartRepository реализует CartRepository на Redis:
// hash cart:{userId} (productId -> JSON позиции) и set product:{productId}:carts
type CartRepository struct {
	client *redis.Client
	logger *zap.Logger
}

var _ repository.CartRepository = (*CartRepository)(nil)

// NewCartRepository создаёт Redis cart repository
func NewCartRepository(client *redis.Client, logger *zap.Logger) *CartRepository {
	return &CartRepository{client: client, logger: logger}
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

func productCartsKey(productID string) string {
	return fmt.Sprintf("product:%s:carts", productID)
}

func decodeCart(userID string, fields map[string]string) (domain.Cart, error) {
	cart := domain.Cart{UserID: userID, Items: make([]domain.LineItem, 0, len(fields))}
	for productID, raw := range fields {
		var li domain.LineItem
		if err := json.Unmarshal([]byte(raw), &li); err != nil {
			return domain.Cart{}, fmt.Errorf("decode line item %s: %w", productID, err)
		}
		cart.Items = append(cart.Items, li)
	}
	sort.Slice(cart.Items, func(i, j int) bool { return cart.Items[i].ProductID < cart.Items[j].ProductID })
	return cart, nil
}

// Get читает корзину пользователя
func (r *CartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	fields, err := r.client.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return domain.Cart{}, fmt.Errorf("failed to get cart: %w", err)
	}
	return decodeCart(userID, fields)
}

// UpdateItem WATCH cart:{userId} -> HGET -> mutate -> MULTI HSET/HDEL + SADD/SREM -> EXEC
func (r *CartRepository) UpdateItem(ctx context.Context, userID, productID string, mutate repository.ItemMutation) error {
	key := cartKey(userID)
	txf := func(tx *redis.Tx) error {
		var current *domain.LineItem
		raw, err := tx.HGet(ctx, key, productID).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var li domain.LineItem
			if err := json.Unmarshal([]byte(raw), &li); err != nil {
				return fmt.Errorf("decode line item %s: %w", productID, err)
			}
			current = &li
		}

		next, write, err := mutate(current)
		if err != nil || !write {
			return err
		}

		var data []byte
		if next != nil {
			if data, err = json.Marshal(next); err != nil {
				return fmt.Errorf("encode line item: %w", err)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.HDel(ctx, key, productID)
				pipe.SRem(ctx, productCartsKey(productID), userID)
				return nil
			}
			pipe.HSet(ctx, key, productID, data)
			pipe.SAdd(ctx, productCartsKey(productID), userID)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			r.logger.Debug("cart transaction conflict, retrying",
				zap.String("user_id", userID),
				zap.String("product_id", productID),
				zap.Int("attempt", attempt),
			)
			continue
		}
		return err
	}
	return repository.ErrConflict
}

// CartsWithProduct SMEMBERS product:{productId}:carts
func (r *CartRepository) CartsWithProduct(ctx context.Context, productID string) ([]string, error) {
	users, err := r.client.SMembers(ctx, productCartsKey(productID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list carts with product: %w", err)
	}
	sort.Strings(users)
	return users, nil
}

// Checkout WATCH cart:{userId} -> HGETALL -> prepare -> MULTI DEL + SREM -> EXEC
func (r *CartRepository) Checkout(ctx context.Context, userID string, prepare func(domain.Cart) error) (domain.Cart, error) {
	key := cartKey(userID)
	var cart domain.Cart
	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if cart, err = decodeCart(userID, fields); err != nil {
			return err
		}
		if err := prepare(cart); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			for _, li := range cart.Items {
				pipe.SRem(ctx, productCartsKey(li.ProductID), userID)
			}
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.Cart{}, err
		}
		return cart, nil
	}
	return domain.Cart{}, repository.ErrConflict
}
