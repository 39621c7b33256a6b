package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})

	err := q.Enqueue(Job{ID: "job-1"})
	require.Error(t, err)
}

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "audit.write"}))

	select {
	case job := <-done:
		require.Equal(t, "job-1", job.ID)
		require.False(t, job.Enqueued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRejectsWhenFull(t *testing.T) {
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	q := NewQueue("test", func(context.Context, Job) error {
		entered <- struct{}{}
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not pick up the first job")
	}

	// The worker holds job-1, so job-2 fills the buffer and job-3 is
	// rejected instead of blocking the caller.
	require.NoError(t, q.Enqueue(Job{ID: "job-2"}))
	require.Error(t, q.Enqueue(Job{ID: "job-3"}))
	close(release)
}
