package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// HandlerFunc processes one job. The progress callback reports percentage
// milestones; the returned value is msgpack-encoded and stored as the job
// result.
type HandlerFunc func(ctx context.Context, job *Job, progress func(int)) (interface{}, error)

// BackoffFunc returns the delay before retry attempt n (1-based).
type BackoffFunc func(attempt int) time.Duration

// ExponentialBackoff doubles the base delay per attempt.
func ExponentialBackoff(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		delay := base
		for i := 1; i < attempt; i++ {
			delay *= 2
		}
		return delay
	}
}

// FixedBackoff retries after the same delay every time.
func FixedBackoff(delay time.Duration) BackoffFunc {
	return func(int) time.Duration { return delay }
}

// WorkerConfig configures one queue worker.
type WorkerConfig struct {
	Queue        string
	PollInterval time.Duration // default 2s
	JobTimeout   time.Duration // 0 means no per-job timeout
	Backoff      BackoffFunc   // default fixed 5s
}

// Worker polls one queue and runs jobs sequentially. Kicking Trigger wakes
// it up without waiting for the next poll tick.
type Worker struct {
	store    *Store
	cfg      WorkerConfig
	handlers map[string]HandlerFunc
	log      zerolog.Logger

	trigger chan struct{}
	stop    chan struct{}
	stopped chan struct{}
}

// NewWorker creates a worker for one queue.
func NewWorker(store *Store, cfg WorkerConfig, log zerolog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Backoff == nil {
		cfg.Backoff = FixedBackoff(5 * time.Second)
	}
	return &Worker{
		store:    store,
		cfg:      cfg,
		handlers: make(map[string]HandlerFunc),
		log:      log.With().Str("worker", cfg.Queue).Logger(),
		trigger:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Handle registers the handler for a job kind.
func (w *Worker) Handle(kind string, fn HandlerFunc) {
	w.handlers[kind] = fn
}

// Run drains the queue until Stop is called. Blocks; run in a goroutine.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.stopped)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-w.trigger:
		case <-ticker.C:
		}
		w.drain(ctx)
	}
}

// Stop shuts the worker down and waits for the current job to finish.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.stopped
}

// Trigger wakes the worker to check for work. Non-blocking.
func (w *Worker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// drain runs due jobs until the queue is empty or the worker is stopped.
func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		default:
		}

		job, err := w.store.ClaimNext(w.cfg.Queue)
		if err != nil {
			w.log.Error().Err(err).Msg("Failed to claim job")
			return
		}
		if job == nil {
			return
		}
		w.execute(ctx, job)
	}
}

func (w *Worker) execute(ctx context.Context, job *Job) {
	handler, ok := w.handlers[job.Kind]
	if !ok {
		w.log.Error().Str("kind", job.Kind).Msg("No handler for job kind")
		if err := w.store.Fail(job.ID, "no handler for kind "+job.Kind); err != nil {
			w.log.Error().Err(err).Msg("Failed to mark job failed")
		}
		return
	}

	jobCtx := ctx
	if w.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.cfg.JobTimeout)
		defer cancel()
	}

	progress := func(pct int) {
		if err := w.store.SetProgress(job.ID, pct); err != nil {
			w.log.Warn().Err(err).Str("job", job.ID).Msg("Failed to update progress")
		}
	}

	start := time.Now()
	result, err := handler(jobCtx, job, progress)
	if err != nil {
		w.handleFailure(job, err)
		return
	}

	encoded, err := encodeResult(result)
	if err != nil {
		w.log.Error().Err(err).Str("job", job.ID).Msg("Failed to encode job result")
	}
	if err := w.store.Complete(job.ID, encoded); err != nil {
		w.log.Error().Err(err).Str("job", job.ID).Msg("Failed to complete job")
		return
	}
	w.log.Info().
		Str("job", job.ID).
		Str("kind", job.Kind).
		Dur("took", time.Since(start)).
		Msg("Job completed")
}

func (w *Worker) handleFailure(job *Job, jobErr error) {
	reason := jobErr.Error()
	if job.Attempts < job.MaxAttempts {
		delay := w.cfg.Backoff(job.Attempts)
		w.log.Warn().
			Str("job", job.ID).
			Str("kind", job.Kind).
			Int("attempt", job.Attempts).
			Dur("retry_in", delay).
			Err(jobErr).
			Msg("Job failed, will retry")
		if err := w.store.Retry(job.ID, reason, delay); err != nil {
			w.log.Error().Err(err).Str("job", job.ID).Msg("Failed to requeue job")
		}
		return
	}

	w.log.Error().
		Str("job", job.ID).
		Str("kind", job.Kind).
		Int("attempts", job.Attempts).
		Err(jobErr).
		Msg("Job failed permanently")
	if err := w.store.Fail(job.ID, reason); err != nil {
		w.log.Error().Err(err).Str("job", job.ID).Msg("Failed to mark job failed")
	}
}

func encodeResult(result interface{}) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	encoded, err := marshalPayload(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return encoded, nil
}
