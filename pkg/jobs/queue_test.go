package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	done := make(chan Job, 1)
	q := NewQueue("cleanup", func(_ context.Context, job Job) error {
		if calls.Add(1) < 3 {
			return errors.New("object store unavailable")
		}
		done <- job
		return nil
	}, QueueConfig{MaxRetries: 5, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "object.delete", Payload: "arsip/2024/01/1_a.pdf"}))

	select {
	case job := <-done:
		assert.Equal(t, 2, job.Attempt)
		assert.Equal(t, "arsip/2024/01/1_a.pdf", job.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried to completion")
	}
	assert.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestQueueDropsAfterMaxRetries(t *testing.T) {
	dropped := make(chan Job, 1)
	q := NewQueue("cleanup", func(context.Context, Job) error {
		return errors.New("still failing")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnDrop:     func(job Job, _ error) { dropped <- job },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "2", Type: "row.delete"}))

	select {
	case job := <-dropped:
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not dropped")
	}
	assert.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("cleanup", func(context.Context, Job) error { return nil }, QueueConfig{})
	require.Error(t, q.Enqueue(Job{ID: "3"}))
}

func TestQueueBackoffCaps(t *testing.T) {
	q := NewQueue("cleanup", nil, QueueConfig{RetryDelay: time.Second, MaxRetryDelay: 4 * time.Second})
	assert.Equal(t, time.Second, q.backoff(1))
	assert.Equal(t, 2*time.Second, q.backoff(2))
	assert.Equal(t, 4*time.Second, q.backoff(3))
	assert.Equal(t, 4*time.Second, q.backoff(6))
}
