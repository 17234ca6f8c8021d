package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_DrainExecutesJob(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	worker := NewWorker(store, WorkerConfig{Queue: QueueDataFetch}, zerolog.Nop())
	worker.Handle(KindFetchCompany, func(ctx context.Context, job *Job, progress func(int)) (interface{}, error) {
		progress(50)
		return map[string]interface{}{"ok": true}, nil
	})
	job := enqueueTestJob(t, store, QueueDataFetch, KindFetchCompany, 1)

	worker.drain(context.Background())

	saved, err := store.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, saved.State)
	assert.Equal(t, 100, saved.Progress)
	assert.NotEmpty(t, saved.Result)
}

func TestWorker_RetriesThenFailsPermanently(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	base := time.Now()
	store.now = func() time.Time { return base }

	worker := NewWorker(store, WorkerConfig{
		Queue:   QueueDataFetch,
		Backoff: FixedBackoff(time.Second),
	}, zerolog.Nop())

	calls := 0
	worker.Handle(KindFetchCompany, func(ctx context.Context, job *Job, progress func(int)) (interface{}, error) {
		calls++
		return nil, errors.New("upstream down")
	})

	job := enqueueTestJob(t, store, QueueDataFetch, KindFetchCompany, 2)

	// First attempt fails and is requeued with a delay.
	worker.drain(context.Background())
	assert.Equal(t, 1, calls)
	saved, err := store.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateWaiting, saved.State)
	assert.Equal(t, "upstream down", saved.FailedReason)

	// Second attempt exhausts the budget.
	store.now = func() time.Time { return base.Add(2 * time.Second) }
	worker.drain(context.Background())
	assert.Equal(t, 2, calls)
	saved, err = store.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, saved.State)
}

func TestWorker_NoHandlerFailsJob(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	worker := NewWorker(store, WorkerConfig{Queue: QueueDataFetch}, zerolog.Nop())
	job := enqueueTestJob(t, store, QueueDataFetch, "unknown-kind", 1)

	worker.drain(context.Background())

	saved, err := store.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, saved.State)
	assert.Contains(t, saved.FailedReason, "no handler")
}

func TestWorker_JobTimeoutCancelsContext(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	worker := NewWorker(store, WorkerConfig{
		Queue:      QueueScraping,
		JobTimeout: 10 * time.Millisecond,
	}, zerolog.Nop())
	worker.Handle(KindScrapePortfolio, func(ctx context.Context, job *Job, progress func(int)) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	job := enqueueTestJob(t, store, QueueScraping, KindScrapePortfolio, 1)
	worker.drain(context.Background())

	saved, err := store.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, saved.State)
	assert.Contains(t, saved.FailedReason, "context deadline exceeded")
}

func TestWorker_RunStopsOnStop(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	worker := NewWorker(store, WorkerConfig{
		Queue:        QueueDataFetch,
		PollInterval: 10 * time.Millisecond,
	}, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		worker.Run(context.Background())
		close(done)
	}()

	worker.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
