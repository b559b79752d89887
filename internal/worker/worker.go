package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/skein/internal/email"
	"github.com/dukerupert/skein/internal/jobs"
	"github.com/dukerupert/skein/internal/repository"
	"github.com/dukerupert/skein/internal/telemetry"
)

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// PollInterval is how often to check for new jobs
	PollInterval time.Duration

	// MaxConcurrency is the maximum number of jobs to process concurrently
	MaxConcurrency int

	// Queue name to process (empty string = all queues)
	Queue string

	// ShutdownTimeout bounds how long Start waits for in-flight jobs
	ShutdownTimeout time.Duration
}

// Worker drains the job outbox.
type Worker struct {
	config       Config
	queries      repository.JobQuerier
	emailService *email.Service
	logger       *slog.Logger
	inflight     sync.WaitGroup
}

// NewWorker creates a new background job worker
func NewWorker(queries repository.JobQuerier, emailService *email.Service, config Config, logger *slog.Logger) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 5
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		config:       config,
		queries:      queries,
		emailService: emailService,
		logger:       logger.With("worker_id", config.WorkerID),
	}
}

// Start begins processing jobs until the context is cancelled. In-flight
// jobs are given ShutdownTimeout to finish on a detached context.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"queue", w.config.Queue,
		"poll_interval", w.config.PollInterval,
		"max_concurrency", w.config.MaxConcurrency,
	)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Jobs keep running after ctx ends so a shutdown doesn't abandon them
	// mid-send; jobCtx is cancelled once the grace period runs out.
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	sem := make(chan struct{}, w.config.MaxConcurrency)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down")
			w.drain(cancelJobs)
			return ctx.Err()

		case <-ticker.C:
			w.fill(jobCtx, sem)
		}
	}
}

// fill claims jobs until every slot is busy or the queue is empty.
func (w *Worker) fill(ctx context.Context, sem chan struct{}) {
	for {
		select {
		case sem <- struct{}{}:
		default:
			return
		}

		job, ok := w.claim(ctx)
		if !ok {
			<-sem
			return
		}

		w.inflight.Add(1)
		go func() {
			defer func() {
				<-sem
				w.inflight.Done()
			}()
			w.run(ctx, &job)
		}()
	}
}

func (w *Worker) drain(cancel context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		w.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("shutdown timeout reached, cancelling in-flight jobs")
		cancel()
		<-done
	}
}

// RunOnce claims and processes a single job. It reports false when no job
// was ready.
func (w *Worker) RunOnce(ctx context.Context) bool {
	job, ok := w.claim(ctx)
	if !ok {
		return false
	}
	w.run(ctx, &job)
	return true
}

func (w *Worker) claim(ctx context.Context) (repository.Job, bool) {
	job, err := w.queries.ClaimNextJob(ctx, repository.ClaimNextJobParams{
		WorkerID: pgtype.Text{String: w.config.WorkerID, Valid: true},
		Queue:    w.config.Queue,
	})
	if err != nil {
		if !repository.IsNotFound(err) {
			w.logger.Error("failed to claim job", "error", err)
		}
		return repository.Job{}, false
	}
	return job, true
}

// run processes a claimed job and records the outcome
func (w *Worker) run(ctx context.Context, job *repository.Job) {
	w.logger.Info("processing job",
		"job_id", jobID(job),
		"job_type", job.JobType,
		"retry_count", job.RetryCount,
	)

	start := time.Now()
	err := w.processJob(ctx, job)
	telemetry.Business.RecordJobResult(job.JobType, time.Since(start).Seconds(), err)

	if err != nil {
		w.logger.Error("job failed",
			"job_id", jobID(job),
			"job_type", job.JobType,
			"error", err,
		)
		failed, ferr := w.queries.FailJob(ctx, repository.FailJobParams{
			ID:           job.ID,
			ErrorMessage: pgtype.Text{String: err.Error(), Valid: true},
		})
		if ferr != nil {
			w.logger.Error("failed to record job failure", "job_id", jobID(job), "error", ferr)
			return
		}
		if failed.Status == "failed" {
			telemetry.CaptureError(err, map[string]any{
				"job_id":      jobID(job),
				"job_type":    job.JobType,
				"retry_count": failed.RetryCount,
			})
		}
		return
	}

	if err := w.queries.CompleteJob(ctx, job.ID); err != nil {
		w.logger.Error("failed to complete job", "job_id", jobID(job), "error", err)
		return
	}
	w.logger.Info("job completed", "job_id", jobID(job), "job_type", job.JobType)
}

// processJob processes a single job
func (w *Worker) processJob(ctx context.Context, job *repository.Job) error {
	timeout := time.Duration(job.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if jobs.IsEmailJob(job.JobType) {
		if w.emailService == nil {
			return fmt.Errorf("no email service configured for %s", job.JobType)
		}
		return jobs.ProcessEmailJob(jobCtx, job, w.emailService)
	}

	return fmt.Errorf("unknown job type: %s", job.JobType)
}

func jobID(job *repository.Job) string {
	return uuid.UUID(job.ID.Bytes).String()
}
