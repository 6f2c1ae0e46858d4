package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/repository/memory"
)

func meta(eventType string) eventbus.Metadata {
	return eventbus.Metadata{EventID: "evt", EventType: eventType}
}

func seedProduct(t *testing.T, repo *memory.Repository, id string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), repository.Product{ID: id, Name: "Bagel", Price: 2, IsAvailable: true, Version: 1}))
}

func rating(t *testing.T, repo *memory.Repository, id string) domain.Rating {
	t.Helper()
	p, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Rating
}

func TestRatingProjector_Scenario(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	seedProduct(t, repo, "p-1")

	require.NoError(t, svc.HandleReviewCreated(ctx, meta(contracts.TypeReviewCreated),
		contracts.ReviewCreated{ReviewID: "r-1", ProductID: "p-1", UserID: "u-1", Rating: 5}))
	assert.Equal(t, domain.Rating{Mean: 5, Count: 1}, rating(t, repo, "p-1"))

	require.NoError(t, svc.HandleReviewCreated(ctx, meta(contracts.TypeReviewCreated),
		contracts.ReviewCreated{ReviewID: "r-2", ProductID: "p-1", UserID: "u-2", Rating: 3}))
	assert.Equal(t, 4.0, rating(t, repo, "p-1").Rounded())
	assert.Equal(t, 2, rating(t, repo, "p-1").Count)

	require.NoError(t, svc.HandleReviewUpdated(ctx, meta(contracts.TypeReviewUpdated),
		contracts.ReviewUpdated{ReviewID: "r-1", ProductID: "p-1", OldRating: 5, NewRating: 1}))
	assert.Equal(t, 2.0, rating(t, repo, "p-1").Rounded())
	assert.Equal(t, 2, rating(t, repo, "p-1").Count)

	require.NoError(t, svc.HandleReviewDeleted(ctx, meta(contracts.TypeReviewDeleted),
		contracts.ReviewDeleted{ReviewID: "r-1", ProductID: "p-1", Rating: 1}))
	assert.Equal(t, 3.0, rating(t, repo, "p-1").Rounded())
	assert.Equal(t, 1, rating(t, repo, "p-1").Count)
}

func TestRatingProjector_DuplicateDeliveryIsNoop(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	seedProduct(t, repo, "p-1")

	created := contracts.ReviewCreated{ReviewID: "r-1", ProductID: "p-1", UserID: "u-1", Rating: 4}
	require.NoError(t, svc.HandleReviewCreated(ctx, meta(contracts.TypeReviewCreated), created))
	require.NoError(t, svc.HandleReviewCreated(ctx, meta(contracts.TypeReviewCreated), created))

	deleted := contracts.ReviewDeleted{ReviewID: "r-1", ProductID: "p-1", Rating: 4}
	require.NoError(t, svc.HandleReviewDeleted(ctx, meta(contracts.TypeReviewDeleted), deleted))
	require.NoError(t, svc.HandleReviewDeleted(ctx, meta(contracts.TypeReviewDeleted), deleted))
	// повторный Created после удаления не воскрешает отзыв
	require.NoError(t, svc.HandleReviewCreated(ctx, meta(contracts.TypeReviewCreated), created))

	assert.Equal(t, domain.Rating{}, rating(t, repo, "p-1"))
}

func TestRatingProjector_ModerationCompensates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	seedProduct(t, repo, "p-1")

	require.NoError(t, svc.HandleReviewCreated(ctx, meta(contracts.TypeReviewCreated),
		contracts.ReviewCreated{ReviewID: "r-1", ProductID: "p-1", UserID: "u-1", Rating: 5}))
	require.NoError(t, svc.HandleReviewCreated(ctx, meta(contracts.TypeReviewCreated),
		contracts.ReviewCreated{ReviewID: "r-2", ProductID: "p-1", UserID: "u-2", Rating: 1}))

	hide := contracts.ReviewStatusChanged{ReviewID: "r-2", ProductID: "p-1", Rating: 1,
		OldStatus: contracts.ReviewStatusPublished, NewStatus: contracts.ReviewStatusHidden}
	require.NoError(t, svc.HandleReviewStatusChanged(ctx, meta(contracts.TypeReviewStatusChanged), hide))
	assert.Equal(t, domain.Rating{Mean: 5, Count: 1}, rating(t, repo, "p-1"))

	// Hidden -> Flagged: отзыв по-прежнему не учитывается
	flag := contracts.ReviewStatusChanged{ReviewID: "r-2", ProductID: "p-1", Rating: 1,
		OldStatus: contracts.ReviewStatusHidden, NewStatus: contracts.ReviewStatusFlagged}
	require.NoError(t, svc.HandleReviewStatusChanged(ctx, meta(contracts.TypeReviewStatusChanged), flag))
	assert.Equal(t, 1, rating(t, repo, "p-1").Count)

	publish := contracts.ReviewStatusChanged{ReviewID: "r-2", ProductID: "p-1", Rating: 1,
		OldStatus: contracts.ReviewStatusFlagged, NewStatus: contracts.ReviewStatusPublished}
	require.NoError(t, svc.HandleReviewStatusChanged(ctx, meta(contracts.TypeReviewStatusChanged), publish))
	assert.Equal(t, 3.0, rating(t, repo, "p-1").Rounded())
	assert.Equal(t, 2, rating(t, repo, "p-1").Count)
}

func TestRatingProjector_MissingOrDeletedProductIsAcknowledged(t *testing.T) {
	svc, repo, pub := newTestService(t)
	ctx := context.Background()

	err := svc.HandleReviewCreated(ctx, meta(contracts.TypeReviewCreated),
		contracts.ReviewCreated{ReviewID: "r-1", ProductID: "missing", UserID: "u-1", Rating: 5})
	require.NoError(t, err)

	pub.On("Publish", ctx, mock.Anything).Return(nil)
	p, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Kugel", Price: 7, IsAvailable: true})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteProduct(ctx, p.ID))

	err = svc.HandleReviewCreated(ctx, meta(contracts.TypeReviewCreated),
		contracts.ReviewCreated{ReviewID: "r-2", ProductID: p.ID, UserID: "u-1", Rating: 5})
	require.NoError(t, err)
	stored, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Rating.Count)
}

func TestRatingProjector_OrderLevelReviewIgnored(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.HandleReviewCreated(context.Background(), meta(contracts.TypeReviewCreated),
		contracts.ReviewCreated{ReviewID: "r-1", OrderID: "o-1", UserID: "u-1", Rating: 5})
	require.NoError(t, err)
}

// conflictingRepo отдаёт ErrVersionConflict первые conflicts вызовов ApplyRating
type conflictingRepo struct {
	*memory.Repository
	mu        sync.Mutex
	conflicts int
}

func (r *conflictingRepo) ApplyRating(ctx context.Context, u repository.RatingUpdate) error {
	r.mu.Lock()
	if r.conflicts > 0 {
		r.conflicts--
		r.mu.Unlock()
		return repository.ErrVersionConflict
	}
	r.mu.Unlock()
	return r.Repository.ApplyRating(ctx, u)
}

func TestRatingProjector_RetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	base := memory.NewRepository()
	seedProduct(t, base, "p-1")

	repo := &conflictingRepo{Repository: base, conflicts: 2}
	svc := NewProductService(zap.NewNop(), repo, new(MockPublisher))

	require.NoError(t, svc.HandleReviewCreated(ctx, meta(contracts.TypeReviewCreated),
		contracts.ReviewCreated{ReviewID: "r-1", ProductID: "p-1", UserID: "u-1", Rating: 4}))
	assert.Equal(t, domain.Rating{Mean: 4, Count: 1}, rating(t, base, "p-1"))

	repo.conflicts = maxVersionRetries
	err := svc.HandleReviewCreated(ctx, meta(contracts.TypeReviewCreated),
		contracts.ReviewCreated{ReviewID: "r-2", ProductID: "p-1", UserID: "u-2", Rating: 2})
	require.ErrorIs(t, err, repository.ErrVersionConflict)
	// конфликт транзиентный: шина повторит
	assert.False(t, eventbus.IsPermanent(err))
}

func TestReconcileRatings_CorrectsDrift(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	seedProduct(t, repo, "p-1")
	seedProduct(t, repo, "p-2")

	for i, r := range []int{5, 4, 3} {
		require.NoError(t, svc.HandleReviewCreated(ctx, meta(contracts.TypeReviewCreated),
			contracts.ReviewCreated{ReviewID: "r-" + string(rune('a'+i)), ProductID: "p-1", UserID: "u", Rating: r}))
	}

	// запись мимо проектора
	p, err := repo.GetByID(ctx, "p-1")
	require.NoError(t, err)
	require.NoError(t, repo.ApplyRating(ctx, repository.RatingUpdate{
		ProductID: "p-1", ExpectedVersion: p.Version, Rating: domain.Rating{Mean: 1, Count: 9},
	}))

	fixed, err := svc.ReconcileRatings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)
	assert.Equal(t, domain.Rating{Mean: 4, Count: 3}, rating(t, repo, "p-1"))

	fixed, err = svc.ReconcileRatings(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed)
}
