package systemlog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-regula/internal/common/models"
	"go-regula/internal/testsupport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// blockingRepo holds every insert until release is closed.
type blockingRepo struct {
	mu      sync.Mutex
	release chan struct{}
	events  []Event
	err     error
}

func (r *blockingRepo) Insert(ctx context.Context, e Event) error {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *blockingRepo) Search(context.Context, Query) (Page, error) { return Page{}, nil }

func (r *blockingRepo) ListByWorkflow(context.Context, string) ([]Event, error) { return nil, nil }

func (r *blockingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestWriterDropsWhenFull(t *testing.T) {
	repo := &blockingRepo{release: make(chan struct{})}
	w := NewWriter(repo, nil, testsupport.NewClock(), zap.NewNop(), 1)

	start := time.Now()
	for i := 0; i < 10; i++ {
		w.Record(Event{EventType: EventWebhookSent, Status: StatusSuccess})
	}
	assert.Less(t, time.Since(start), time.Second, "Record must never block")
	// one in flight in the worker, one buffered, the rest dropped
	assert.GreaterOrEqual(t, w.Dropped(), int64(8))

	close(repo.release)
	require.NoError(t, w.Close(context.Background()))
	assert.Equal(t, int64(10), int64(repo.count())+w.Dropped())
}

func TestWriterDrainsOnClose(t *testing.T) {
	repo := &blockingRepo{}
	hub := NewHub()
	feed, cancel := hub.Subscribe(10)
	defer cancel()

	w := NewWriter(repo, hub, testsupport.NewClock(), zap.NewNop(), 10)
	for i := 0; i < 5; i++ {
		w.Record(NewEvent(EventWorkflowSubmit, models.Actor{Email: "a@example.com", Role: models.RoleRequester}, "wf-1", StatusSuccess, "submitted", nil))
	}
	require.NoError(t, w.Close(context.Background()))
	assert.Equal(t, 5, repo.count())

	got := <-feed
	assert.Equal(t, EventWorkflowSubmit, got.EventType)
	assert.Equal(t, testsupport.Epoch, got.Timestamp)
	assert.NotEmpty(t, got.ID)

	w.Record(Event{EventType: "late"})
	assert.Equal(t, int64(1), w.Dropped())
}

func TestWriterSwallowsStoreErrors(t *testing.T) {
	repo := &blockingRepo{err: errors.New("disk full")}
	w := NewWriter(repo, nil, testsupport.NewClock(), zap.NewNop(), 4)
	w.Record(Event{EventType: EventSLABreach})
	require.NoError(t, w.Close(context.Background()))
	assert.Equal(t, 1, repo.count())
}

func TestHubSkipsSlowSubscribers(t *testing.T) {
	hub := NewHub()
	feed, cancel := hub.Subscribe(1)

	hub.Publish(Event{EventType: "a"})
	hub.Publish(Event{EventType: "b"})
	assert.Equal(t, "a", (<-feed).EventType)

	cancel()
	cancel()
	assert.Zero(t, hub.Subscribers())
	_, open := <-feed
	assert.False(t, open)
}
