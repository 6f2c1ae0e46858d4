package event_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/memory"
	httpclient "github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/client/http"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/event"
	memrepo "github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/repository/memory"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/sender"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/service"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/templates"
)

type noSleep struct{}

func (noSleep) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func TestSubscriptions_QueuePerEventType(t *testing.T) {
	subs := event.Subscriptions(&service.NotificationService{})
	queues := make([]string, 0, len(subs))
	for _, s := range subs {
		queues = append(queues, s.Queue())
	}
	assert.Contains(t, queues, "notification-order-created-queue")
	assert.Contains(t, queues, "notification-password-reset-requested-queue")
	assert.Contains(t, queues, "notification-booking-cancelled-queue")
	assert.Len(t, queues, 8)
}

func TestNotificationsOverBus(t *testing.T) {
	users := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users/u-1/public" {
			_, _ = w.Write([]byte(`{"id":"u-1","email":"miriam@example.com","user_name":"Miriam"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer users.Close()

	bus := memory.New(zap.NewNop(), "test", eventbus.Config{Workers: 1, MaxAttempts: 3}, eventbus.WithSleeper(noSleep{}))
	renderer, err := templates.NewRenderer()
	require.NoError(t, err)
	svc := service.NewNotificationService(zap.NewNop(), memrepo.NewInboxRepository(),
		httpclient.NewUserClient(users.URL, time.Second), renderer, sender.NewBusSender(zap.NewNop(), bus))
	require.NoError(t, event.Register(bus, svc))

	var (
		mu     sync.Mutex
		emails []contracts.EmailOutbound
	)
	require.NoError(t, bus.Subscribe(eventbus.Subscription{
		Service:   "mailer",
		EventType: contracts.TypeEmailOutbound,
		Handler: eventbus.Typed(func(ctx context.Context, meta eventbus.Metadata, e contracts.EmailOutbound) error {
			mu.Lock()
			defer mu.Unlock()
			emails = append(emails, e)
			return nil
		}),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = bus.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	at := time.Now().UTC().Add(24 * time.Hour)
	require.NoError(t, bus.Publish(context.Background(),
		contracts.BookingCreated{BookingID: "b-1", UserID: "u-1", BookingDateTime: at, CreatedAt: time.Now()},
		contracts.BookingCancelled{BookingID: "b-2", UserID: "ghost", OriginalBookingDateTime: at},
	))

	flush := func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		require.NoError(t, bus.Flush(flushCtx))
	}
	flush()
	// письмо публикуется из обработчика: второй проход доставляет его mailer
	flush()

	mu.Lock()
	require.Len(t, emails, 1)
	assert.Equal(t, "miriam@example.com", emails[0].To)
	assert.Equal(t, service.KindBookingCreated, emails[0].Kind)
	mu.Unlock()

	dead := bus.DeadLetters(eventbus.QueueName(event.ServiceName, contracts.TypeBookingCancelled))
	require.Len(t, dead, 1)
	assert.Equal(t, 1, dead[0].Attempts)
	assert.Contains(t, dead[0].ErrorMessage, "user not found")
}
