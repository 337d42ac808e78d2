package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kstorelabs/kstore-cart/internal/notify"
)

var _ notify.JobStore = (*JobRepository)(nil)

// JobRepository implements the notification job queue on PostgreSQL.
type JobRepository struct {
	pool *pgxpool.Pool
}

// NewJobRepository returns a JobRepository that uses the given pool.
func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

// Enqueue inserts a pending job.
func (r *JobRepository) Enqueue(ctx context.Context, jobType string, payload []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notification_jobs (job_type, payload) VALUES ($1, $2)`,
		jobType, payload)
	if err != nil {
		return errors.Wrapf(err, "enqueue %s job", jobType)
	}
	return nil
}

// ClaimPending atomically claims up to limit pending jobs, marking them
// processing and bumping their attempt counters. SKIP LOCKED keeps
// concurrent workers from claiming the same rows.
func (r *JobRepository) ClaimPending(ctx context.Context, limit int) ([]notify.Job, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE notification_jobs
		 SET status = 'processing', attempts = attempts + 1, updated_at = now()
		 WHERE id IN (
		     SELECT id FROM notification_jobs
		     WHERE status = 'pending'
		     ORDER BY created_at
		     LIMIT $1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, job_type, payload, attempts`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "claim pending jobs")
	}
	defer rows.Close()

	var jobs []notify.Job
	for rows.Next() {
		var j notify.Job
		if err := rows.Scan(&j.ID, &j.Type, &j.Payload, &j.Attempts); err != nil {
			return nil, errors.Wrap(err, "scan job")
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// MarkDone marks a claimed job as completed.
func (r *JobRepository) MarkDone(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_jobs SET status = 'done', updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "mark job %d done", id)
	}
	return nil
}

// MarkFailed records the failure. When retry is true the job returns to the
// pending queue; otherwise it is parked as failed.
func (r *JobRepository) MarkFailed(ctx context.Context, id int64, cause string, retry bool) error {
	status := "failed"
	if retry {
		status = "pending"
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_jobs SET status = $2, last_error = $3, updated_at = now() WHERE id = $1`,
		id, status, cause)
	if err != nil {
		return errors.Wrapf(err, "mark job %d failed", id)
	}
	return nil
}
