package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/repository"
)

// Repository реализует CartRepository в памяти (локальный запуск, тесты сервиса)
type Repository struct {
	mu    sync.Mutex
	carts map[string]map[string]domain.LineItem
}

var _ repository.CartRepository = (*Repository)(nil)

// NewRepository создаёт пустое хранилище
func NewRepository() *Repository {
	return &Repository{carts: make(map[string]map[string]domain.LineItem)}
}

func (r *Repository) snapshot(userID string) domain.Cart {
	cart := domain.Cart{UserID: userID, Items: []domain.LineItem{}}
	for _, li := range r.carts[userID] {
		cart.Items = append(cart.Items, li)
	}
	sort.Slice(cart.Items, func(i, j int) bool { return cart.Items[i].ProductID < cart.Items[j].ProductID })
	return cart
}

func (r *Repository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(userID), nil
}

func (r *Repository) UpdateItem(ctx context.Context, userID, productID string, mutate repository.ItemMutation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var current *domain.LineItem
	if li, ok := r.carts[userID][productID]; ok {
		current = &li
	}
	next, write, err := mutate(current)
	if err != nil || !write {
		return err
	}
	if next == nil {
		delete(r.carts[userID], productID)
		if len(r.carts[userID]) == 0 {
			delete(r.carts, userID)
		}
		return nil
	}
	if r.carts[userID] == nil {
		r.carts[userID] = make(map[string]domain.LineItem)
	}
	r.carts[userID][productID] = *next
	return nil
}

func (r *Repository) CartsWithProduct(ctx context.Context, productID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []string
	for userID, items := range r.carts {
		if _, ok := items[productID]; ok {
			users = append(users, userID)
		}
	}
	sort.Strings(users)
	return users, nil
}

func (r *Repository) Checkout(ctx context.Context, userID string, prepare func(domain.Cart) error) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart := r.snapshot(userID)
	if err := prepare(cart); err != nil {
		return domain.Cart{}, err
	}
	delete(r.carts, userID)
	return cart, nil
}
