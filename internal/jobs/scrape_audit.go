package jobs

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/domain"
)

// ScrapeAuditStore persists the audit trail of portfolio scrape runs.
type ScrapeAuditStore struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewScrapeAuditStore creates a new scrape audit store.
func NewScrapeAuditStore(db *sql.DB, log zerolog.Logger) *ScrapeAuditStore {
	return &ScrapeAuditStore{
		db:  db,
		log: log.With().Str("repo", "scraping_jobs").Logger(),
		now: time.Now,
	}
}

// Start records a new running scrape.
func (s *ScrapeAuditStore) Start(id, url, investorID string) error {
	now := s.now()
	_, err := s.db.Exec(`INSERT INTO scraping_jobs
		(id, url, status, investor_id, started_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, url, string(domain.ScrapingRunning), investorID, now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to record scrape start: %w", err)
	}
	return nil
}

// Complete marks a scrape finished and stores the JSON result.
func (s *ScrapeAuditStore) Complete(id, result string) error {
	_, err := s.db.Exec(`UPDATE scraping_jobs
		SET status = ?, result = ?, completed_at = ?
		WHERE id = ?`,
		string(domain.ScrapingCompleted), result, s.now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to record scrape completion: %w", err)
	}
	return nil
}

// Fail marks a scrape failed with the error message.
func (s *ScrapeAuditStore) Fail(id, errMsg string) error {
	_, err := s.db.Exec(`UPDATE scraping_jobs
		SET status = ?, error = ?, completed_at = ?
		WHERE id = ?`,
		string(domain.ScrapingFailed), errMsg, s.now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to record scrape failure: %w", err)
	}
	return nil
}

// GetByID returns one scrape record or domain.ErrNotFound.
func (s *ScrapeAuditStore) GetByID(id string) (*domain.ScrapingJob, error) {
	row := s.db.QueryRow(`SELECT id, url, status, investor_id, result, error,
		started_at, completed_at, created_at
		FROM scraping_jobs WHERE id = ?`, id)

	var job domain.ScrapingJob
	var status string
	var startedAt, completedAt sql.NullInt64
	var createdAt int64
	err := row.Scan(&job.ID, &job.URL, &status, &job.InvestorID, &job.Result,
		&job.Error, &startedAt, &completedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan scraping job: %w", err)
	}
	job.Status = domain.ScrapingJobStatus(status)
	if startedAt.Valid {
		t := time.Unix(startedAt.Int64, 0)
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0)
		job.CompletedAt = &t
	}
	job.CreatedAt = time.Unix(createdAt, 0)
	return &job, nil
}

// ListForInvestor returns an investor's scrape history, newest first.
func (s *ScrapeAuditStore) ListForInvestor(investorID string, limit int) ([]domain.ScrapingJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT id, url, status, investor_id, result, error,
		started_at, completed_at, created_at
		FROM scraping_jobs WHERE investor_id = ?
		ORDER BY created_at DESC LIMIT ?`, investorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scraping jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.ScrapingJob
	for rows.Next() {
		var job domain.ScrapingJob
		var status string
		var startedAt, completedAt sql.NullInt64
		var createdAt int64
		if err := rows.Scan(&job.ID, &job.URL, &status, &job.InvestorID, &job.Result,
			&job.Error, &startedAt, &completedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan scraping job: %w", err)
		}
		job.Status = domain.ScrapingJobStatus(status)
		if startedAt.Valid {
			t := time.Unix(startedAt.Int64, 0)
			job.StartedAt = &t
		}
		if completedAt.Valid {
			t := time.Unix(completedAt.Int64, 0)
			job.CompletedAt = &t
		}
		job.CreatedAt = time.Unix(createdAt, 0)
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
