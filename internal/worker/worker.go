package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/translearn/translearn/internal/metrics"
	"github.com/translearn/translearn/internal/repository"
)

// Worker polls the jobs table and runs registered handlers across a pool of
// goroutines. Dequeueing uses FOR UPDATE SKIP LOCKED, so several server
// instances can share one queue without double-processing.
type Worker struct {
	db       *sql.DB
	queries  *repository.Queries
	handlers map[string]JobHandler
	config   Config
	logger   *slog.Logger

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New validates the configuration and returns a stopped Worker. Register
// handlers, then call Start.
func New(db *sql.DB, queries *repository.Queries, config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		db:       db,
		queries:  queries,
		handlers: make(map[string]JobHandler),
		config:   config,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Register wires a handler for its job type. Registering the same type twice
// replaces the earlier handler.
func (w *Worker) Register(handler JobHandler) {
	jobType := handler.Type()
	if _, exists := w.handlers[jobType]; exists {
		w.logger.Warn("replacing job handler", "job_type", jobType)
	}
	w.handlers[jobType] = handler
}

// Start resets jobs orphaned by a previous crash, then launches the worker
// pool.
func (w *Worker) Start(ctx context.Context) {
	if err := w.recoverStaleJobs(ctx); err != nil {
		w.logger.Error("stale job recovery failed", "error", err)
	}

	for i := 0; i < w.config.Concurrency; i++ {
		w.wg.Add(1)
		go w.poll(ctx, i+1)
	}

	w.logger.Info("worker pool started", "concurrency", w.config.Concurrency)
}

// Stop signals the pool and waits up to ShutdownTimeout for in-flight jobs.
// Jobs still running after the timeout get picked up later by stale job
// recovery.
func (w *Worker) Stop() {
	close(w.stopCh)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("worker pool stopped")
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("shutdown timeout exceeded, jobs may still be running")
	}
}

func (w *Worker) recoverStaleJobs(ctx context.Context) error {
	count, err := w.queries.RecoverStaleJobs(ctx, w.config.StaleJobThreshold.Seconds())
	if err != nil {
		return fmt.Errorf("recover stale jobs: %w", err)
	}
	if count > 0 {
		w.logger.Warn("recovered stale jobs", "count", count, "threshold", w.config.StaleJobThreshold)
	}
	return nil
}

// poll is one goroutine's loop. An empty queue is the common case and is not
// logged.
func (w *Worker) poll(ctx context.Context, workerID int) {
	defer w.wg.Done()

	logger := w.logger.With("worker_id", workerID)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.processNextJob(ctx, logger); err != nil && !errors.Is(err, sql.ErrNoRows) {
				logger.Error("job processing failed", "error", err)
			}
		}
	}
}

// processNextJob claims one job inside a short transaction, then runs the
// handler outside it so a long job never holds a row lock. Returns
// sql.ErrNoRows when the queue is empty.
func (w *Worker) processNextJob(ctx context.Context, logger *slog.Logger) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := w.queries.WithTx(tx)

	job, err := qtx.DequeueJob(ctx)
	if err != nil {
		return err
	}
	if err := qtx.UpdateJobStarted(ctx, job.ID); err != nil {
		return fmt.Errorf("mark job started: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit dequeue: %w", err)
	}

	logger = logger.With("job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts+1)
	logger.Info("processing job")

	metrics.JobStarted(job.JobType)
	start := time.Now()

	if err := w.runHandler(ctx, job); err != nil {
		logger.Error("job failed", "error", err)
		if IsPermanent(err) || job.Attempts+1 >= job.MaxAttempts {
			metrics.JobFailed(job.JobType)
		} else {
			metrics.JobRetried(job.JobType)
		}
		w.markJobFailed(ctx, job.ID, err)
		return fmt.Errorf("execute job: %w", err)
	}

	logger.Info("job completed", "duration_ms", time.Since(start).Milliseconds())
	metrics.JobCompleted(job.JobType, time.Since(start))
	return w.markJobCompleted(ctx, job.ID)
}

// runHandler dispatches to the registered handler under the job timeout.
// An unknown job type fails permanently; retrying cannot fix it.
func (w *Worker) runHandler(ctx context.Context, job repository.Job) error {
	handler, ok := w.handlers[job.JobType]
	if !ok {
		return NewPermanentError(fmt.Errorf("no handler registered for job type: %s", job.JobType))
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	return handler.Handle(jobCtx, job.Payload)
}

func (w *Worker) markJobCompleted(ctx context.Context, jobID uuid.UUID) error {
	if err := w.queries.UpdateJobCompleted(ctx, jobID); err != nil {
		return fmt.Errorf("update job completed: %w", err)
	}
	return nil
}

// markJobFailed records the failure. The SQL decides between reschedule with
// backoff and terminal failure, using the attempt count and the permanent
// flag.
func (w *Worker) markJobFailed(ctx context.Context, jobID uuid.UUID, jobErr error) {
	if IsPermanent(jobErr) {
		w.logger.Warn("permanent job failure, not retrying", "job_id", jobID, "error", jobErr)
	}

	params := repository.UpdateJobFailedParams{
		ID:           jobID,
		ErrorMessage: sql.NullString{String: jobErr.Error(), Valid: true},
		Permanent:    IsPermanent(jobErr),
	}
	if err := w.queries.UpdateJobFailed(ctx, params); err != nil {
		w.logger.Error("failed to record job failure", "job_id", jobID, "error", err)
	}
}
