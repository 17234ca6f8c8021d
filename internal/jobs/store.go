// Package jobs implements durable background job queues on top of the
// research database. Jobs survive restarts; payloads and results are
// msgpack-encoded blobs.
package jobs

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/domain"
)

// Queue names.
const (
	QueueDataFetch = "data-fetch"
	QueueScraping  = "scraping"
)

// Job kinds.
const (
	KindFetchCompany    = "fetch-company"
	KindScrapePortfolio = "scrape-portfolio"
)

// Job states.
const (
	StateWaiting   = "waiting"
	StateActive    = "active"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Job is one durable queue entry.
type Job struct {
	ID           string    `json:"id"`
	Queue        string    `json:"queue"`
	Kind         string    `json:"kind"`
	Payload      []byte    `json:"-"`
	State        string    `json:"state"`
	Progress     int       `json:"progress"`
	Attempts     int       `json:"attempts"`
	MaxAttempts  int       `json:"maxAttempts"`
	Result       []byte    `json:"-"`
	FailedReason string    `json:"failedReason,omitempty"`
	RunAt        time.Time `json:"runAt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// QueueStats counts jobs per state for one queue.
type QueueStats struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

const jobColumns = `id, queue, kind, payload, state, progress, attempts, max_attempts,
	result, failed_reason, run_at, created_at, updated_at`

// Store persists jobs in the research database.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewStore creates a new job store.
func NewStore(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("repo", "jobs").Logger(),
		now: time.Now,
	}
}

// Enqueue inserts a new waiting job.
func (s *Store) Enqueue(job *Job) error {
	now := s.now()
	if job.RunAt.IsZero() {
		job.RunAt = now
	}
	if job.MaxAttempts < 1 {
		job.MaxAttempts = 1
	}
	job.State = StateWaiting
	job.CreatedAt = now
	job.UpdatedAt = now

	_, err := s.db.Exec(`INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, 0, 0, ?, NULL, '', ?, ?, ?)`,
		job.ID, job.Queue, job.Kind, job.Payload, job.State, job.MaxAttempts,
		job.RunAt.Unix(), job.CreatedAt.Unix(), job.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// ClaimNext atomically takes the oldest due waiting job from a queue and
// marks it active, incrementing the attempt counter. Returns nil when the
// queue has nothing due.
func (s *Store) ClaimNext(queue string) (*Job, error) {
	now := s.now()
	for {
		job, err := s.nextWaiting(queue, now)
		if err != nil || job == nil {
			return job, err
		}

		res, err := s.db.Exec(`UPDATE jobs
			SET state = ?, attempts = attempts + 1, updated_at = ?
			WHERE id = ? AND state = ?`,
			StateActive, now.Unix(), job.ID, StateWaiting)
		if err != nil {
			return nil, fmt.Errorf("failed to claim job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check claim: %w", err)
		}
		if affected == 0 {
			// Lost the race to another worker, try the next one.
			continue
		}
		job.State = StateActive
		job.Attempts++
		return job, nil
	}
}

func (s *Store) nextWaiting(queue string, now time.Time) (*Job, error) {
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs
		WHERE queue = ? AND state = ? AND run_at <= ?
		ORDER BY run_at, created_at LIMIT 1`,
		queue, StateWaiting, now.Unix())
	job, err := scanJob(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return job, err
}

// SetProgress records completion progress for an active job.
func (s *Store) SetProgress(id string, progress int) error {
	_, err := s.db.Exec(`UPDATE jobs SET progress = ?, updated_at = ? WHERE id = ?`,
		progress, s.now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// Complete marks a job done and stores its result.
func (s *Store) Complete(id string, result []byte) error {
	_, err := s.db.Exec(`UPDATE jobs
		SET state = ?, progress = 100, result = ?, updated_at = ?
		WHERE id = ?`,
		StateCompleted, result, s.now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// Retry puts a failed attempt back on the queue to run after the delay.
func (s *Store) Retry(id string, reason string, delay time.Duration) error {
	now := s.now()
	_, err := s.db.Exec(`UPDATE jobs
		SET state = ?, failed_reason = ?, run_at = ?, updated_at = ?
		WHERE id = ?`,
		StateWaiting, reason, now.Add(delay).Unix(), now.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to requeue job: %w", err)
	}
	return nil
}

// Fail marks a job permanently failed.
func (s *Store) Fail(id string, reason string) error {
	_, err := s.db.Exec(`UPDATE jobs
		SET state = ?, failed_reason = ?, updated_at = ?
		WHERE id = ?`,
		StateFailed, reason, s.now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}

// GetByID returns one job or domain.ErrNotFound.
func (s *Store) GetByID(id string) (*Job, error) {
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// Stats counts jobs per state for one queue.
func (s *Store) Stats(queue string) (*QueueStats, error) {
	rows, err := s.db.Query(`SELECT state, COUNT(*) FROM jobs WHERE queue = ? GROUP BY state`, queue)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue stats: %w", err)
	}
	defer rows.Close()

	stats := &QueueStats{}
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan queue stats: %w", err)
		}
		switch state {
		case StateWaiting:
			stats.Waiting = n
		case StateActive:
			stats.Active = n
		case StateCompleted:
			stats.Completed = n
		case StateFailed:
			stats.Failed = n
		}
	}
	return stats, rows.Err()
}

// PruneCompleted deletes completed jobs older than the cutoff. Returns the
// number of rows removed.
func (s *Store) PruneCompleted(olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan).Unix()
	res, err := s.db.Exec(`DELETE FROM jobs WHERE state = ? AND updated_at < ?`,
		StateCompleted, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune jobs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var result sql.NullString
	var runAt, createdAt, updatedAt int64
	err := row.Scan(&job.ID, &job.Queue, &job.Kind, &job.Payload, &job.State,
		&job.Progress, &job.Attempts, &job.MaxAttempts, &result,
		&job.FailedReason, &runAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	if result.Valid {
		job.Result = []byte(result.String)
	}
	job.RunAt = time.Unix(runAt, 0)
	job.CreatedAt = time.Unix(createdAt, 0)
	job.UpdatedAt = time.Unix(updatedAt, 0)
	return &job, nil
}
