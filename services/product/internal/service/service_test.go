package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/repository/memory"
)

// MockPublisher реализует eventbus.Publisher для тестов
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, events ...eventbus.Event) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func newTestService(t *testing.T) (*ProductService, *memory.Repository, *MockPublisher) {
	t.Helper()
	repo := memory.NewRepository()
	pub := new(MockPublisher)
	return NewProductService(zap.NewNop(), repo, pub), repo, pub
}

func TestCreateProduct_PublishesProductUpdated(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	pub.On("Publish", ctx, mock.MatchedBy(func(events []eventbus.Event) bool {
		e, ok := events[0].(contracts.ProductUpdated)
		return ok && e.Name == "Challah" && e.Price == 10 && e.IsAvailable && e.Version == 1
	})).Return(nil).Once()

	p, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Challah", Price: 10, IsAvailable: true})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, int64(1), p.Version)
	pub.AssertExpectations(t)
}

func TestCreateProduct_InvalidInput(t *testing.T) {
	svc, _, pub := newTestService(t)

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{Name: "", Price: 1})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateProduct(context.Background(), CreateProductInput{Name: "x", Price: -1})
	require.ErrorIs(t, err, ErrInvalidInput)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestUpdateProduct_PriceChangeBumpsVersion(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	pub.On("Publish", ctx, mock.Anything).Return(nil)

	p, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Wine", Price: 10, IsAvailable: true})
	require.NoError(t, err)

	price := 12.5
	updated, err := svc.UpdateProduct(ctx, p.ID, UpdateProductInput{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 12.5, updated.Price)
	assert.Equal(t, "Wine", updated.Name)
	assert.Equal(t, int64(2), updated.Version)

	last := pub.Calls[len(pub.Calls)-1].Arguments.Get(1).([]eventbus.Event)[0].(contracts.ProductUpdated)
	assert.Equal(t, 12.5, last.Price)
	assert.Equal(t, int64(2), last.Version)
}

func TestUpdateProduct_PublishFailureSurfaces(t *testing.T) {
	svc, repo, pub := newTestService(t)
	ctx := context.Background()
	pub.On("Publish", ctx, mock.Anything).Return(nil).Once()
	p, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Wine", Price: 10, IsAvailable: true})
	require.NoError(t, err)

	pub.On("Publish", ctx, mock.Anything).Return(errors.New("broker down")).Once()
	available := false
	_, err = svc.UpdateProduct(ctx, p.ID, UpdateProductInput{IsAvailable: &available})
	require.ErrorIs(t, err, ErrEventNotPublished)

	// локальная запись уже зафиксирована
	stored, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsAvailable)
}

func TestDeleteProduct_PublishesProductDeleted(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	pub.On("Publish", ctx, mock.Anything).Return(nil).Once()
	p, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Matzah", Price: 3, IsAvailable: true})
	require.NoError(t, err)

	pub.On("Publish", ctx, mock.MatchedBy(func(events []eventbus.Event) bool {
		e, ok := events[0].(contracts.ProductDeleted)
		return ok && e.ProductID == p.ID && e.Version == 2
	})).Return(nil).Once()

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	pub.AssertExpectations(t)

	_, err = svc.GetProduct(ctx, p.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	err = svc.DeleteProduct(ctx, p.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
