package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/domain"
)

// ScrapeJobTimeout caps one portfolio scrape run.
const ScrapeJobTimeout = 60 * time.Second

// JobStatus is the externally visible state of one job.
type JobStatus struct {
	Status       string      `json:"status"`
	Progress     int         `json:"progress,omitempty"`
	Data         interface{} `json:"data,omitempty"`
	Result       interface{} `json:"result,omitempty"`
	FailedReason string      `json:"failedReason,omitempty"`
}

// Manager owns the queue workers and is the enqueue entry point for the
// rest of the platform.
type Manager struct {
	store     *Store
	dataFetch *Worker
	scraping  *Worker
	log       zerolog.Logger
}

// NewManager creates the manager and its two workers. Workers do not run
// until Start is called.
func NewManager(store *Store, fetch *FetchCompanyProcessor, scrape *ScrapePortfolioProcessor, log zerolog.Logger) *Manager {
	m := &Manager{
		store: store,
		log:   log.With().Str("service", "jobs").Logger(),
	}

	m.dataFetch = NewWorker(store, WorkerConfig{
		Queue:   QueueDataFetch,
		Backoff: ExponentialBackoff(2 * time.Second),
	}, log)
	m.dataFetch.Handle(KindFetchCompany, fetch.Handle)

	m.scraping = NewWorker(store, WorkerConfig{
		Queue:      QueueScraping,
		JobTimeout: ScrapeJobTimeout,
		Backoff:    FixedBackoff(5 * time.Second),
	}, log)
	m.scraping.Handle(KindScrapePortfolio, scrape.Handle)

	return m
}

// Start launches both workers.
func (m *Manager) Start(ctx context.Context) {
	go m.dataFetch.Run(ctx)
	go m.scraping.Run(ctx)
	m.log.Info().Msg("Job workers started")
}

// Stop shuts both workers down, waiting for in-flight jobs.
func (m *Manager) Stop() {
	m.dataFetch.Stop()
	m.scraping.Stop()
	m.log.Info().Msg("Job workers stopped")
}

// EnqueueFetchCompany queues a background data fetch for a company.
// Returns the job ID.
func (m *Manager) EnqueueFetchCompany(companyID string) (string, error) {
	payload, err := marshalPayload(FetchCompanyPayload{CompanyID: companyID})
	if err != nil {
		return "", err
	}
	job := &Job{
		ID:          uuid.NewString(),
		Queue:       QueueDataFetch,
		Kind:        KindFetchCompany,
		Payload:     payload,
		MaxAttempts: 3,
	}
	if err := m.store.Enqueue(job); err != nil {
		return "", err
	}
	m.dataFetch.Trigger()
	return job.ID, nil
}

// EnqueueScrapePortfolio queues a portfolio scrape. target is a firm name
// or a portfolio page URL; investorID may be empty for ad-hoc scrapes.
func (m *Manager) EnqueueScrapePortfolio(investorID, target string) (string, error) {
	payload, err := marshalPayload(ScrapePortfolioPayload{InvestorID: investorID, Target: target})
	if err != nil {
		return "", err
	}
	job := &Job{
		ID:          uuid.NewString(),
		Queue:       QueueScraping,
		Kind:        KindScrapePortfolio,
		Payload:     payload,
		MaxAttempts: 2,
	}
	if err := m.store.Enqueue(job); err != nil {
		return "", err
	}
	m.scraping.Trigger()
	return job.ID, nil
}

// GetJobStatus returns the externally visible state of a job. Unknown IDs
// report status "not_found" rather than an error.
func (m *Manager) GetJobStatus(id string) (*JobStatus, error) {
	job, err := m.store.GetByID(id)
	if errors.Is(err, domain.ErrNotFound) {
		return &JobStatus{Status: "not_found"}, nil
	}
	if err != nil {
		return nil, err
	}

	status := &JobStatus{
		Status:       job.State,
		Progress:     job.Progress,
		FailedReason: job.FailedReason,
	}
	if len(job.Payload) > 0 {
		var data interface{}
		if err := unmarshalPayload(job.Payload, &data); err == nil {
			status.Data = data
		}
	}
	if len(job.Result) > 0 {
		var result interface{}
		if err := unmarshalPayload(job.Result, &result); err == nil {
			status.Result = result
		}
	}
	return status, nil
}

// QueueStats returns per-state counts for one queue.
func (m *Manager) QueueStats(queue string) (*QueueStats, error) {
	return m.store.Stats(queue)
}

// AllStats returns stats for every queue.
func (m *Manager) AllStats() (map[string]*QueueStats, error) {
	stats := make(map[string]*QueueStats, 2)
	for _, queue := range []string{QueueDataFetch, QueueScraping} {
		s, err := m.store.Stats(queue)
		if err != nil {
			return nil, err
		}
		stats[queue] = s
	}
	return stats, nil
}
