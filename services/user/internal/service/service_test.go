package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/repository/memory"
)

// MockPublisher реализует eventbus.Publisher для тестов
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, events ...eventbus.Event) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// published события из вызовов Publish
func (m *MockPublisher) published() []eventbus.Event {
	var out []eventbus.Event
	for _, call := range m.Calls {
		if call.Method == "Publish" {
			out = append(out, call.Arguments.Get(1).([]eventbus.Event)...)
		}
	}
	return out
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memory.UserRepository, *MockPublisher) {
	t.Helper()
	repo := memory.NewUserRepository()
	pub := new(MockPublisher)
	svc := NewService(zap.NewNop(), repo, memory.NewResetTokenRepository(), pub, time.Hour)
	svc.hashCost = bcrypt.MinCost
	svc.now = func() time.Time { return fixedNow }
	svc.newToken = func() string { return "tok-1" }
	return svc, repo, pub
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with bcrypt hash and publishes user.registered", func(t *testing.T) {
		svc, repo, pub := newTestService(t)
		pub.On("Publish", ctx, mock.Anything).Return(nil)

		profile, err := svc.Register(ctx, RegisterInput{Email: "dan@example.com", UserName: "dan", Password: "secret1"})
		require.NoError(t, err)

		stored, err := repo.GetByID(ctx, profile.UserID)
		require.NoError(t, err)
		assert.NotEqual(t, "secret1", stored.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))

		events := pub.published()
		require.Len(t, events, 1)
		registered := events[0].(contracts.UserRegistered)
		assert.Equal(t, profile.UserID, registered.UserID)
		assert.Equal(t, "dan@example.com", registered.Email)
		assert.Equal(t, fixedNow, registered.CreatedAt)
	})

	t.Run("duplicate email ignores case", func(t *testing.T) {
		svc, _, pub := newTestService(t)
		pub.On("Publish", ctx, mock.Anything).Return(nil)

		_, err := svc.Register(ctx, RegisterInput{Email: "dan@example.com", Password: "secret1"})
		require.NoError(t, err)
		_, err = svc.Register(ctx, RegisterInput{Email: "DAN@example.com", Password: "secret2"})
		require.ErrorIs(t, err, repository.ErrAlreadyExists)
		pub.AssertNumberOfCalls(t, "Publish", 1)
	})

	t.Run("invalid input", func(t *testing.T) {
		svc, _, pub := newTestService(t)
		_, err := svc.Register(ctx, RegisterInput{Email: "dan", Password: "secret1"})
		require.ErrorIs(t, err, ErrInvalidInput)
		_, err = svc.Register(ctx, RegisterInput{Email: "dan@example.com", Password: "123"})
		require.ErrorIs(t, err, ErrInvalidInput)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("publish failure keeps user", func(t *testing.T) {
		svc, repo, pub := newTestService(t)
		pub.On("Publish", ctx, mock.Anything).Return(errors.New("broker down"))

		profile, err := svc.Register(ctx, RegisterInput{Email: "dan@example.com", Password: "secret1"})
		require.ErrorIs(t, err, ErrEventNotPublished)
		_, err = repo.GetByID(ctx, profile.UserID)
		require.NoError(t, err)
	})
}

func TestService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestService(t)
	pub.On("Publish", ctx, mock.Anything).Return(nil)

	profile, err := svc.Register(ctx, RegisterInput{Email: "dan@example.com", UserName: "dan", Password: "secret1"})
	require.NoError(t, err)

	// неизвестный email: успех без события
	require.NoError(t, svc.RequestPasswordReset(ctx, "nobody@example.com"))
	require.Len(t, pub.published(), 1)

	require.NoError(t, svc.RequestPasswordReset(ctx, "dan@example.com"))
	events := pub.published()
	require.Len(t, events, 2)
	reset := events[1].(contracts.PasswordResetRequested)
	assert.Equal(t, profile.UserID, reset.UserID)
	assert.Equal(t, "tok-1", reset.ResetToken)
	assert.Equal(t, fixedNow.Add(time.Hour), reset.ExpiresAt)

	require.NoError(t, svc.ConfirmPasswordReset(ctx, "tok-1", "newsecret"))
	_, err = svc.VerifyPassword(ctx, "dan@example.com", "newsecret")
	require.NoError(t, err)
	_, err = svc.VerifyPassword(ctx, "dan@example.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidInput)

	// токен одноразовый
	require.ErrorIs(t, svc.ConfirmPasswordReset(ctx, "tok-1", "another1"), ErrInvalidResetToken)
}

func TestService_GetPublicProfile(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestService(t)
	pub.On("Publish", ctx, mock.Anything).Return(nil)

	created, err := svc.Register(ctx, RegisterInput{Email: "dan@example.com", UserName: "dan", PhoneNumber: "+100", Password: "secret1"})
	require.NoError(t, err)

	got, err := svc.GetPublicProfile(ctx, created.UserID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = svc.GetPublicProfile(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
