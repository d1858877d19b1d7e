package refreshqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/carefinder/internal/domain/hospital"
)

// memoryList mimics the SET NX, DEL, LPUSH and BRPOP semantics the queue relies on.
type memoryList struct {
	mu      sync.Mutex
	markers map[string]bool
	items   map[string][]string
	pushErr error
	pushed  chan struct{}
}

func newMemoryList() *memoryList {
	return &memoryList{
		markers: map[string]bool{},
		items:   map[string][]string{},
		pushed:  make(chan struct{}, 16),
	}
}

func (l *memoryList) claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.markers[key] {
		return false, nil
	}
	l.markers[key] = true
	return true, nil
}

func (l *memoryList) release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.markers, key)
	return nil
}

func (l *memoryList) push(_ context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pushErr != nil {
		return l.pushErr
	}
	l.items[key] = append([]string{value}, l.items[key]...)
	l.pushed <- struct{}{}
	return nil
}

func (l *memoryList) pop(ctx context.Context, key string, timeout time.Duration) (string, bool, error) {
	deadline := time.After(timeout)
	for {
		l.mu.Lock()
		if items := l.items[key]; len(items) > 0 {
			last := items[len(items)-1]
			l.items[key] = items[:len(items)-1]
			l.mu.Unlock()
			return last, true, nil
		}
		l.mu.Unlock()
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-deadline:
			return "", false, nil
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (l *memoryList) depth(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items[key])
}

func (l *memoryList) pending(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.markers[key]
}

func TestValkeyQueueCollapsesPendingJobs(t *testing.T) {
	list := newMemoryList()
	queue := newQueue(list, "test:jobs", newTestLogger())

	require.NoError(t, queue.Enqueue(context.Background(), hospital.JobRefresh, nil))
	require.NoError(t, queue.Enqueue(context.Background(), hospital.JobRefresh, nil))
	require.Equal(t, 1, list.depth("test:jobs"))
	require.True(t, list.pending("test:jobs:pending:"+hospital.JobRefresh))
}

func TestValkeyQueueReleasesMarkerWhenPushFails(t *testing.T) {
	list := newMemoryList()
	list.pushErr = errors.New("connection reset")
	queue := newQueue(list, "test:jobs", newTestLogger())

	err := queue.Enqueue(context.Background(), hospital.JobRefresh, nil)
	require.ErrorIs(t, err, list.pushErr)
	require.False(t, list.pending("test:jobs:pending:"+hospital.JobRefresh))

	list.mu.Lock()
	list.pushErr = nil
	list.mu.Unlock()

	require.NoError(t, queue.Enqueue(context.Background(), hospital.JobRefresh, nil))
	require.Equal(t, 1, list.depth("test:jobs"))
}

func TestValkeyQueueWorkerRunsJobAndClearsMarker(t *testing.T) {
	list := newMemoryList()
	queue := newQueue(list, "test:jobs", newTestLogger())
	queue.pollTimeout = 50 * time.Millisecond

	catalog := &stubCatalog{done: make(chan struct{}, 1)}
	queue.SetHandler(NewCatalogHandler(catalog, time.Second, newTestLogger()))
	t.Cleanup(queue.Close)

	require.NoError(t, queue.Enqueue(context.Background(), hospital.JobRefresh, map[string]any{"requestedBy": "test"}))

	select {
	case <-catalog.done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh job did not run")
	}
	require.Equal(t, 1, catalog.count())
	require.False(t, list.pending("test:jobs:pending:"+hospital.JobRefresh))
}
