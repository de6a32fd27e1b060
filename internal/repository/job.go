package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job is one row of the background job queue.
type Job struct {
	ID           uuid.UUID
	JobType      string
	Payload      json.RawMessage
	Status       string
	Priority     int32
	Attempts     int32
	MaxAttempts  int32
	ErrorMessage sql.NullString
	ScheduledAt  time.Time
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
	CreatedAt    time.Time
}

const jobColumns = `id, job_type, payload, status, priority, attempts, max_attempts, error_message, scheduled_at, started_at, completed_at, created_at`

func scanJob(row interface{ Scan(dest ...interface{}) error }) (Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.JobType, &j.Payload, &j.Status, &j.Priority,
		&j.Attempts, &j.MaxAttempts, &j.ErrorMessage,
		&j.ScheduledAt, &j.StartedAt, &j.CompletedAt, &j.CreatedAt,
	)
	return j, err
}

// EnqueueJobParams contains the fields for inserting a job.
type EnqueueJobParams struct {
	JobType     string
	Payload     json.RawMessage
	Priority    int32
	MaxAttempts int32
	ScheduledAt time.Time
}

// EnqueueJob inserts a pending job and returns it.
func (q *Queries) EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO jobs (job_type, payload, status, priority, max_attempts, scheduled_at)
		VALUES ($1, $2, 'pending', $3, $4, $5)
		RETURNING `+jobColumns,
		arg.JobType, arg.Payload, arg.Priority, arg.MaxAttempts, arg.ScheduledAt,
	)
	return scanJob(row)
}

// DequeueJob claims the next runnable job, highest priority first.
//
// FOR UPDATE SKIP LOCKED lets concurrent workers dequeue without blocking
// each other or double-claiming. Returns sql.ErrNoRows when the queue is
// empty; callers treat that as "nothing to do".
func (q *Queries) DequeueJob(ctx context.Context) (Job, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = 'pending' AND scheduled_at <= now()
		ORDER BY priority DESC, scheduled_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED`,
	)
	return scanJob(row)
}

// UpdateJobStarted marks a job as running and counts the attempt.
func (q *Queries) UpdateJobStarted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'running', attempts = attempts + 1, started_at = now()
		WHERE id = $1`,
		id,
	)
	return err
}

// UpdateJobCompleted marks a job as successfully finished.
func (q *Queries) UpdateJobCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'completed', completed_at = now() WHERE id = $1`,
		id,
	)
	return err
}

// UpdateJobFailedParams contains the fields for recording a job failure.
type UpdateJobFailedParams struct {
	ID           uuid.UUID
	ErrorMessage sql.NullString
	Permanent    bool
}

// UpdateJobFailed records a failure. Jobs with attempts remaining go back to
// pending with exponential backoff; exhausted or permanently failed jobs
// land in 'failed'.
func (q *Queries) UpdateJobFailed(ctx context.Context, arg UpdateJobFailedParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = CASE WHEN $3 OR attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
		    scheduled_at = now() + (interval '30 seconds' * power(2, attempts)),
		    error_message = $2
		WHERE id = $1`,
		arg.ID, arg.ErrorMessage, arg.Permanent,
	)
	return err
}

// RecoverStaleJobs resets 'running' jobs older than the threshold back to
// pending. Called at worker startup to pick up after a crashed process.
func (q *Queries) RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'pending', started_at = NULL
		WHERE status = 'running' AND started_at < now() - ($1 * interval '1 second')`,
		thresholdSeconds,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
