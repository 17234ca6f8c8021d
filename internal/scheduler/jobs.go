package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/aggregation"
	"github.com/atlasresearch/atlas/internal/cache"
	"github.com/atlasresearch/atlas/internal/jobs"
	"github.com/atlasresearch/atlas/internal/modules/connections"
)

// staleBatchSize caps how many companies one refresh sweep enqueues.
const staleBatchSize = 25

// CacheSweepJob deletes expired entries from the SQLite cache.
type CacheSweepJob struct {
	store *cache.SQLiteStore
	log   zerolog.Logger
}

// NewCacheSweepJob creates the cache sweep job.
func NewCacheSweepJob(store *cache.SQLiteStore, log zerolog.Logger) *CacheSweepJob {
	return &CacheSweepJob{store: store, log: log.With().Str("job", "cache-sweep").Logger()}
}

func (j *CacheSweepJob) Name() string { return "cache-sweep" }

func (j *CacheSweepJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := j.store.DeleteExpired(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		j.log.Info().Int64("removed", removed).Msg("Expired cache entries removed")
	}
	return nil
}

// StaleRefreshJob queues background fetches for companies whose provider
// data has gone stale.
type StaleRefreshJob struct {
	aggregation *aggregation.Service
	manager     *jobs.Manager
	log         zerolog.Logger
}

// NewStaleRefreshJob creates the stale data refresh job.
func NewStaleRefreshJob(agg *aggregation.Service, manager *jobs.Manager, log zerolog.Logger) *StaleRefreshJob {
	return &StaleRefreshJob{
		aggregation: agg,
		manager:     manager,
		log:         log.With().Str("job", "stale-refresh").Logger(),
	}
}

func (j *StaleRefreshJob) Name() string { return "stale-refresh" }

func (j *StaleRefreshJob) Run() error {
	stale, err := j.aggregation.GetStaleCompanies(staleBatchSize)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	queued := 0
	for _, company := range stale {
		if _, err := j.manager.EnqueueFetchCompany(company.ID); err != nil {
			j.log.Warn().Err(err).Str("company", company.Name).Msg("Failed to queue refresh")
			continue
		}
		queued++
	}
	j.log.Info().Int("queued", queued).Int("stale", len(stale)).Msg("Stale companies queued for refresh")
	return nil
}

// ConnectionRefreshJob recomputes the co-investment graph from current
// portfolio holdings.
type ConnectionRefreshJob struct {
	connections *connections.Service
	log         zerolog.Logger
}

// NewConnectionRefreshJob creates the connection rediscovery job.
func NewConnectionRefreshJob(svc *connections.Service, log zerolog.Logger) *ConnectionRefreshJob {
	return &ConnectionRefreshJob{
		connections: svc,
		log:         log.With().Str("job", "connection-refresh").Logger(),
	}
}

func (j *ConnectionRefreshJob) Name() string { return "connection-refresh" }

func (j *ConnectionRefreshJob) Run() error {
	pairs, err := j.connections.DiscoverConnections()
	if err != nil {
		return err
	}
	j.log.Info().Int("pairs", pairs).Msg("Connection graph refreshed")
	return nil
}

// JobPruneJob clears completed queue entries older than a week.
type JobPruneJob struct {
	store *jobs.Store
	log   zerolog.Logger
}

// NewJobPruneJob creates the queue pruning job.
func NewJobPruneJob(store *jobs.Store, log zerolog.Logger) *JobPruneJob {
	return &JobPruneJob{store: store, log: log.With().Str("job", "job-prune").Logger()}
}

func (j *JobPruneJob) Name() string { return "job-prune" }

func (j *JobPruneJob) Run() error {
	removed, err := j.store.PruneCompleted(7 * 24 * time.Hour)
	if err != nil {
		return err
	}
	if removed > 0 {
		j.log.Info().Int64("removed", removed).Msg("Completed jobs pruned")
	}
	return nil
}
