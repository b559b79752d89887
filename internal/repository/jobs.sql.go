package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const jobColumns = `id, job_type, queue, payload, status, priority, retry_count, max_retries, timeout_seconds,
    scheduled_at, locked_by, locked_at, error_message, metadata, completed_at, created_at`

func scanJob(row interface{ Scan(...any) error }) (Job, error) {
	var i Job
	err := row.Scan(
		&i.ID,
		&i.JobType,
		&i.Queue,
		&i.Payload,
		&i.Status,
		&i.Priority,
		&i.RetryCount,
		&i.MaxRetries,
		&i.TimeoutSeconds,
		&i.ScheduledAt,
		&i.LockedBy,
		&i.LockedAt,
		&i.ErrorMessage,
		&i.Metadata,
		&i.CompletedAt,
		&i.CreatedAt,
	)
	return i, err
}

type EnqueueJobParams struct {
	JobType        string             `json:"job_type"`
	Queue          string             `json:"queue"`
	Payload        []byte             `json:"payload"`
	Priority       int32              `json:"priority"`
	MaxRetries     int32              `json:"max_retries"`
	ScheduledAt    pgtype.Timestamptz `json:"scheduled_at"`
	TimeoutSeconds int32              `json:"timeout_seconds"`
	Metadata       []byte             `json:"metadata"`
}

const enqueueJob = `-- name: EnqueueJob :one
INSERT INTO jobs (job_type, queue, payload, priority, max_retries, scheduled_at, timeout_seconds, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + jobColumns + `
`

func (q *Queries) EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error) {
	row := q.db.QueryRow(ctx, enqueueJob,
		arg.JobType,
		arg.Queue,
		arg.Payload,
		arg.Priority,
		arg.MaxRetries,
		arg.ScheduledAt,
		arg.TimeoutSeconds,
		arg.Metadata,
	)
	return scanJob(row)
}

type ClaimNextJobParams struct {
	WorkerID pgtype.Text `json:"worker_id"`
	Queue    string      `json:"queue"`
}

const claimNextJob = `-- name: ClaimNextJob :one
UPDATE jobs
SET status = 'running', locked_by = $1, locked_at = now()
WHERE id = (
    SELECT id FROM jobs
    WHERE status = 'pending'
      AND scheduled_at <= now()
      AND ($2::text = '' OR queue = $2)
    ORDER BY priority DESC, scheduled_at
    FOR UPDATE SKIP LOCKED
    LIMIT 1
)
RETURNING ` + jobColumns + `
`

// ClaimNextJob returns pgx.ErrNoRows when no job is ready.
func (q *Queries) ClaimNextJob(ctx context.Context, arg ClaimNextJobParams) (Job, error) {
	return scanJob(q.db.QueryRow(ctx, claimNextJob, arg.WorkerID, arg.Queue))
}

const completeJob = `-- name: CompleteJob :exec
UPDATE jobs SET status = 'completed', completed_at = now(), locked_by = NULL, locked_at = NULL
WHERE id = $1
`

func (q *Queries) CompleteJob(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, completeJob, id)
	return err
}

type FailJobParams struct {
	ID           pgtype.UUID `json:"id"`
	ErrorMessage pgtype.Text `json:"error_message"`
}

// Failed jobs go back to pending with exponential backoff until retries run out.
const failJob = `-- name: FailJob :one
UPDATE jobs
SET retry_count = retry_count + 1,
    error_message = $2,
    locked_by = NULL,
    locked_at = NULL,
    status = CASE WHEN retry_count + 1 >= max_retries THEN 'failed' ELSE 'pending' END,
    scheduled_at = CASE WHEN retry_count + 1 >= max_retries THEN scheduled_at
        ELSE now() + (power(2, retry_count + 1) * interval '1 second') END
WHERE id = $1
RETURNING ` + jobColumns + `
`

func (q *Queries) FailJob(ctx context.Context, arg FailJobParams) (Job, error) {
	return scanJob(q.db.QueryRow(ctx, failJob, arg.ID, arg.ErrorMessage))
}
