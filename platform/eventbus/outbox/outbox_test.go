package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
)

type fakeStore struct {
	mu      sync.Mutex
	records []Record
	sent    []string
	errors  map[string]string
}

func (s *fakeStore) PendingOutbox(ctx context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, r := range s.records {
		if len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *fakeStore) MarkOutboxSent(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, eventID)
	for i, r := range s.records {
		if r.Envelope.EventID == eventID {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeStore) MarkOutboxFailed(ctx context.Context, eventID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errors == nil {
		s.errors = map[string]string{}
	}
	s.errors[eventID] = errMsg
	for i := range s.records {
		if s.records[i].Envelope.EventID == eventID {
			s.records[i].Attempts++
		}
	}
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	failKey   string
	published []string
}

func (p *fakePublisher) PublishEnvelope(ctx context.Context, envs ...eventbus.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, env := range envs {
		if env.PartitionKey == p.failKey {
			return errors.New("broker unavailable")
		}
		p.published = append(p.published, env.EventID)
	}
	return nil
}

func record(id, key string) Record {
	return Record{Envelope: eventbus.Envelope{EventID: id, EventType: "order.updated", PartitionKey: key}}
}

func TestDispatchOnce_PublishesInOrder(t *testing.T) {
	store := &fakeStore{records: []Record{record("e1", "o-1"), record("e2", "o-2"), record("e3", "o-1")}}
	pub := &fakePublisher{}
	d := NewDispatcher(zap.NewNop(), store, pub, Config{BatchSize: 10})

	sent, err := d.DispatchOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, sent)
	assert.Equal(t, []string{"e1", "e2", "e3"}, pub.published)
	assert.Empty(t, store.records)
}

func TestDispatchOnce_FailureBlocksSameKey(t *testing.T) {
	store := &fakeStore{records: []Record{record("e1", "o-1"), record("e2", "o-2"), record("e3", "o-1")}}
	pub := &fakePublisher{failKey: "o-1"}
	d := NewDispatcher(zap.NewNop(), store, pub, Config{BatchSize: 10})

	sent, err := d.DispatchOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"e2"}, pub.published)
	// e3 не публикуется раньше e1
	assert.Contains(t, store.errors, "e1")
	assert.NotContains(t, store.errors, "e3")
	require.Len(t, store.records, 2)
	assert.Equal(t, 1, store.records[0].Attempts)

	pub.failKey = ""
	sent, err = d.DispatchOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{"e2", "e1", "e3"}, pub.published)
}

func TestRun_NotifyTriggersDispatch(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	d := NewDispatcher(zap.NewNop(), store, pub, Config{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Run(ctx)
	}()

	store.mu.Lock()
	store.records = append(store.records, record("e1", "o-1"))
	store.mu.Unlock()
	d.Notify()

	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.published) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
