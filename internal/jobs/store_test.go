package jobs

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	atesting "github.com/atlasresearch/atlas/internal/testing"
)

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	db, cleanup := atesting.NewTestDB(t, "research")
	return NewStore(db.Conn(), zerolog.Nop()), cleanup
}

func enqueueTestJob(t *testing.T, store *Store, queue, kind string, maxAttempts int) *Job {
	t.Helper()
	payload, err := marshalPayload(map[string]string{"k": "v"})
	require.NoError(t, err)
	job := &Job{
		ID:          uuid.NewString(),
		Queue:       queue,
		Kind:        kind,
		Payload:     payload,
		MaxAttempts: maxAttempts,
	}
	require.NoError(t, store.Enqueue(job))
	return job
}

func TestStore_EnqueueAndClaim(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	queued := enqueueTestJob(t, store, QueueDataFetch, KindFetchCompany, 3)

	claimed, err := store.ClaimNext(QueueDataFetch)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, queued.ID, claimed.ID)
	assert.Equal(t, StateActive, claimed.State)
	assert.Equal(t, 1, claimed.Attempts)

	// Queue is now empty.
	next, err := store.ClaimNext(QueueDataFetch)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestStore_ClaimRespectsQueue(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	enqueueTestJob(t, store, QueueScraping, KindScrapePortfolio, 2)

	job, err := store.ClaimNext(QueueDataFetch)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestStore_RetryDelaysJob(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	base := time.Now()
	store.now = func() time.Time { return base }

	job := enqueueTestJob(t, store, QueueDataFetch, KindFetchCompany, 3)
	_, err := store.ClaimNext(QueueDataFetch)
	require.NoError(t, err)

	require.NoError(t, store.Retry(job.ID, "transient", 4*time.Second))

	// Not due yet.
	next, err := store.ClaimNext(QueueDataFetch)
	require.NoError(t, err)
	assert.Nil(t, next)

	// Due after the delay passes.
	store.now = func() time.Time { return base.Add(5 * time.Second) }
	next, err = store.ClaimNext(QueueDataFetch)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, 2, next.Attempts)
	assert.Equal(t, "transient", next.FailedReason)
}

func TestStore_CompleteStoresResult(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	job := enqueueTestJob(t, store, QueueDataFetch, KindFetchCompany, 1)
	_, err := store.ClaimNext(QueueDataFetch)
	require.NoError(t, err)

	result, err := marshalPayload(map[string]interface{}{"success": true})
	require.NoError(t, err)
	require.NoError(t, store.Complete(job.ID, result))

	saved, err := store.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, saved.State)
	assert.Equal(t, 100, saved.Progress)
	assert.NotEmpty(t, saved.Result)
}

func TestStore_Stats(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	enqueueTestJob(t, store, QueueDataFetch, KindFetchCompany, 1)
	enqueueTestJob(t, store, QueueDataFetch, KindFetchCompany, 1)
	failed := enqueueTestJob(t, store, QueueDataFetch, KindFetchCompany, 1)

	_, err := store.ClaimNext(QueueDataFetch)
	require.NoError(t, err)
	require.NoError(t, store.Fail(failed.ID, "boom"))

	stats, err := store.Stats(QueueDataFetch)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Waiting)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Completed)
}

func TestStore_PruneCompleted(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	base := time.Now()
	store.now = func() time.Time { return base }

	job := enqueueTestJob(t, store, QueueDataFetch, KindFetchCompany, 1)
	require.NoError(t, store.Complete(job.ID, nil))

	store.now = func() time.Time { return base.Add(48 * time.Hour) }
	pruned, err := store.PruneCompleted(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	_, err = store.GetByID(job.ID)
	assert.Error(t, err)
}

func TestBackoffFuncs(t *testing.T) {
	exp := ExponentialBackoff(2 * time.Second)
	assert.Equal(t, 2*time.Second, exp(1))
	assert.Equal(t, 4*time.Second, exp(2))
	assert.Equal(t, 8*time.Second, exp(3))

	fixed := FixedBackoff(5 * time.Second)
	assert.Equal(t, 5*time.Second, fixed(1))
	assert.Equal(t, 5*time.Second, fixed(4))
}
