package jobs

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *Store, func()) {
	t.Helper()
	store, cleanup := newTestStore(t)
	fetch := &FetchCompanyProcessor{log: zerolog.Nop()}
	scrape := &ScrapePortfolioProcessor{log: zerolog.Nop()}
	return NewManager(store, fetch, scrape, zerolog.Nop()), store, cleanup
}

func TestManager_EnqueueFetchCompany(t *testing.T) {
	manager, store, cleanup := newTestManager(t)
	defer cleanup()

	jobID, err := manager.EnqueueFetchCompany("company-1")
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job, err := store.GetByID(jobID)
	require.NoError(t, err)
	assert.Equal(t, QueueDataFetch, job.Queue)
	assert.Equal(t, KindFetchCompany, job.Kind)
	assert.Equal(t, 3, job.MaxAttempts)
	assert.Equal(t, StateWaiting, job.State)

	var payload FetchCompanyPayload
	require.NoError(t, unmarshalPayload(job.Payload, &payload))
	assert.Equal(t, "company-1", payload.CompanyID)
}

func TestManager_EnqueueScrapePortfolio(t *testing.T) {
	manager, store, cleanup := newTestManager(t)
	defer cleanup()

	jobID, err := manager.EnqueueScrapePortfolio("investor-1", "sequoia-capital")
	require.NoError(t, err)

	job, err := store.GetByID(jobID)
	require.NoError(t, err)
	assert.Equal(t, QueueScraping, job.Queue)
	assert.Equal(t, 2, job.MaxAttempts)
}

func TestManager_GetJobStatus(t *testing.T) {
	manager, _, cleanup := newTestManager(t)
	defer cleanup()

	status, err := manager.GetJobStatus("no-such-job")
	require.NoError(t, err)
	assert.Equal(t, "not_found", status.Status)

	jobID, err := manager.EnqueueFetchCompany("company-1")
	require.NoError(t, err)

	status, err = manager.GetJobStatus(jobID)
	require.NoError(t, err)
	assert.Equal(t, StateWaiting, status.Status)
	assert.NotNil(t, status.Data)
}

func TestManager_AllStats(t *testing.T) {
	manager, _, cleanup := newTestManager(t)
	defer cleanup()

	_, err := manager.EnqueueFetchCompany("company-1")
	require.NoError(t, err)

	stats, err := manager.AllStats()
	require.NoError(t, err)
	require.Contains(t, stats, QueueDataFetch)
	require.Contains(t, stats, QueueScraping)
	assert.Equal(t, 1, stats[QueueDataFetch].Waiting)
	assert.Equal(t, 0, stats[QueueScraping].Waiting)
}
