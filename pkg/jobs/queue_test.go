package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDrainsOnStop(t *testing.T) {
	var mu sync.Mutex
	seen := make([]string, 0)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job.ID)
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 8})

	q.Start(context.Background())
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{ID: id, Type: "noop"}))
	}
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, uint64(3), q.Stats().Processed)
}

func TestQueueDrainsAfterParentContextCancelled(t *testing.T) {
	var processed int32
	var cancelledCtx int32
	gate := make(chan struct{})
	q := NewQueue("audit", func(ctx context.Context, job Job) error {
		<-gate
		if ctx.Err() != nil {
			atomic.AddInt32(&cancelledCtx, 1)
			return ctx.Err()
		}
		atomic.AddInt32(&processed, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 16, DrainTimeout: 5 * time.Second})

	parent, cancel := context.WithCancel(context.Background())
	q.Start(parent)
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{ID: string(rune('a' + i)), Type: "audit"}))
	}
	cancel()
	close(gate)
	q.Stop()

	assert.Equal(t, int32(10), atomic.LoadInt32(&processed))
	assert.Zero(t, atomic.LoadInt32(&cancelledCtx))
	stats := q.Stats()
	assert.Equal(t, uint64(10), stats.Processed)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.Pending)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.TryEnqueue(Job{ID: "j1"}))

	require.Eventually(t, func() bool { return q.Stats().Processed == 1 }, time.Second, 5*time.Millisecond)
	stats := q.Stats()
	assert.Equal(t, uint64(2), stats.Retried)
	assert.Zero(t, stats.Failed)
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	q := NewQueue("fail", func(ctx context.Context, job Job) error {
		return errors.New("permanent")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.TryEnqueue(Job{ID: "j1"}))

	require.Eventually(t, func() bool { return q.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), q.Stats().Retried)
}

func TestQueueRejectsWhenNotRunning(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.TryEnqueue(Job{ID: "x"}), ErrQueueStopped)

	q.Start(context.Background())
	q.Stop()
	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{ID: "y"}), ErrQueueStopped)
}

func TestQueueTryEnqueueFull(t *testing.T) {
	release := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())

	require.NoError(t, q.TryEnqueue(Job{ID: "1"}))
	require.Eventually(t, func() bool { return q.Stats().Pending == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.TryEnqueue(Job{ID: "2"}))
	assert.ErrorIs(t, q.TryEnqueue(Job{ID: "3"}), ErrQueueFull)

	close(release)
	q.Stop()
	assert.Equal(t, uint64(2), q.Stats().Processed)
}
