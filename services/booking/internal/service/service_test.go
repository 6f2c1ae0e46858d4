package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/repository/memory"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
	fail   error
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) last() eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// conflictOnce отвечает ErrConflict на первый Update, имитируя параллельного писателя
type conflictOnce struct {
	repository.BookingRepository
	fired bool
}

func (c *conflictOnce) Update(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	if !c.fired {
		c.fired = true
		return domain.Booking{}, repository.ErrConflict
	}
	return c.BookingRepository.Update(ctx, b)
}

func newTestService(repo repository.BookingRepository) (*BookingService, *recordingPublisher) {
	pub := &recordingPublisher{}
	svc := NewBookingService(zap.NewNop(), repo, pub)
	svc.now = func() time.Time { return testNow }
	return svc, pub
}

func createPending(t *testing.T, svc *BookingService) domain.Booking {
	t.Helper()
	b, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID:          "u-1",
		BookingDateTime: testNow.Add(24 * time.Hour),
		NumberOfGuests:  2,
	})
	require.NoError(t, err)
	return b
}

func TestCreateBooking(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateBookingInput
		wantErr error
	}{
		{
			name:  "future booking",
			input: CreateBookingInput{UserID: "u-1", BookingDateTime: testNow.Add(time.Hour), NumberOfGuests: 3},
		},
		{
			name:    "booking in the past",
			input:   CreateBookingInput{UserID: "u-1", BookingDateTime: testNow.Add(-time.Minute), NumberOfGuests: 3},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "booking exactly now",
			input:   CreateBookingInput{UserID: "u-1", BookingDateTime: testNow, NumberOfGuests: 3},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "no guests",
			input:   CreateBookingInput{UserID: "u-1", BookingDateTime: testNow.Add(time.Hour)},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "missing user",
			input:   CreateBookingInput{BookingDateTime: testNow.Add(time.Hour), NumberOfGuests: 3},
			wantErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, pub := newTestService(memory.NewMemoryRepository())

			b, err := svc.CreateBooking(context.Background(), tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, pub.count())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.StatusPending, b.Status)

			created, ok := pub.last().(contracts.BookingCreated)
			require.True(t, ok)
			assert.Equal(t, b.ID, created.BookingID)
			assert.Equal(t, "u-1", created.UserID)
			assert.True(t, tt.input.BookingDateTime.Equal(created.BookingDateTime))
		})
	}
}

func TestBookingLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(memory.NewMemoryRepository())
	b := createPending(t, svc)

	confirmed, err := svc.ConfirmBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)
	updated, ok := pub.last().(contracts.BookingUpdated)
	require.True(t, ok)
	require.NotNil(t, updated.Status)
	assert.Equal(t, contracts.BookingStatusConfirmed, *updated.Status)

	_, err = svc.ConfirmBooking(ctx, b.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	cancelled, err := svc.CancelBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	evt, ok := pub.last().(contracts.BookingCancelled)
	require.True(t, ok)
	assert.True(t, b.BookingDateTime.Equal(evt.OriginalBookingDateTime))

	// отменённое бронирование остаётся в хранилище
	got, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)

	comment := "window seat"
	_, err = svc.UpdateBooking(ctx, b.ID, UpdateBookingInput{Comment: &comment})
	require.ErrorIs(t, err, domain.ErrBookingCancelled)

	require.NoError(t, svc.DeleteBooking(ctx, b.ID))
	deleted, ok := pub.last().(contracts.BookingDeleted)
	require.True(t, ok)
	assert.Equal(t, "u-1", deleted.UserID)

	_, err = svc.GetBooking(ctx, b.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.ErrorIs(t, svc.DeleteBooking(ctx, b.ID), repository.ErrNotFound)
}

func TestUpdateBooking(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(memory.NewMemoryRepository())
	b := createPending(t, svc)

	t.Run("no changes publish nothing", func(t *testing.T) {
		before := pub.count()
		guests := b.NumberOfGuests
		_, err := svc.UpdateBooking(ctx, b.ID, UpdateBookingInput{NumberOfGuests: &guests})
		require.NoError(t, err)
		assert.Equal(t, before, pub.count())
	})

	t.Run("past date rejected", func(t *testing.T) {
		past := testNow.Add(-time.Hour)
		_, err := svc.UpdateBooking(ctx, b.ID, UpdateBookingInput{BookingDateTime: &past})
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("changed fields are published", func(t *testing.T) {
		at := testNow.Add(72 * time.Hour)
		comment := "birthday"
		got, err := svc.UpdateBooking(ctx, b.ID, UpdateBookingInput{BookingDateTime: &at, Comment: &comment})
		require.NoError(t, err)
		assert.Equal(t, "birthday", got.Comment)

		evt, ok := pub.last().(contracts.BookingUpdated)
		require.True(t, ok)
		require.NotNil(t, evt.BookingDateTime)
		assert.True(t, at.Equal(*evt.BookingDateTime))
		require.NotNil(t, evt.Comment)
		assert.Nil(t, evt.Status)
	})
}

func TestConfirmBooking_RetriesOnConflict(t *testing.T) {
	repo := &conflictOnce{BookingRepository: memory.NewMemoryRepository()}
	svc, _ := newTestService(repo)
	b := createPending(t, svc)

	got, err := svc.ConfirmBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, repo.fired)
	assert.Equal(t, domain.StatusConfirmed, got.Status)
}

func TestCancelBooking_PublishFailureIsReported(t *testing.T) {
	svc, pub := newTestService(memory.NewMemoryRepository())
	b := createPending(t, svc)

	pub.fail = errors.New("broker down")
	_, err := svc.CancelBooking(context.Background(), b.ID)
	require.ErrorIs(t, err, ErrEventNotPublished)

	// переход уже закоммичен
	got, err := svc.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
}
