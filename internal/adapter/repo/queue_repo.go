package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"sakuga/internal/domain"
)

// QueueRepositoryPG implements domain.QueueRepository.
type QueueRepositoryPG struct {
	db DB
}

// NewQueueRepository creates a queue repository backed by PostgreSQL.
func NewQueueRepository(db DB) *QueueRepositoryPG {
	return &QueueRepositoryPG{db: db}
}

const queueColumns = `id, prompt, provider, model, aspect_ratio, count, status, error, retry_count, created_at, updated_at`

// Enqueue inserts a new job. Status is forced to pending and the retry
// counter starts at zero regardless of what the caller set.
func (r *QueueRepositoryPG) Enqueue(ctx context.Context, job *domain.Job) error {
	job.Status = domain.JobStatusPending
	job.RetryCount = 0
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	query := `
INSERT INTO queue (id, prompt, provider, model, aspect_ratio, count, status, error, retry_count, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, '', 0, $8, $8);
`
	_, err := r.db.Exec(ctx, query,
		job.ID,
		job.Prompt,
		job.Provider,
		job.Model,
		job.AspectRatio,
		job.Count,
		job.Status,
		now,
	)
	return err
}

// List returns every queued job, oldest first.
func (r *QueueRepositoryPG) List(ctx context.Context) ([]domain.Job, error) {
	query := `SELECT ` + queueColumns + ` FROM queue ORDER BY created_at ASC;`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Get fetches a job by its identifier.
func (r *QueueRepositoryPG) Get(ctx context.Context, id string) (*domain.Job, error) {
	query := `SELECT ` + queueColumns + ` FROM queue WHERE id = $1;`
	job, err := scanJob(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// NextPending returns the oldest pending job or ErrNotFound.
func (r *QueueRepositoryPG) NextPending(ctx context.Context) (*domain.Job, error) {
	query := `SELECT ` + queueColumns + ` FROM queue WHERE status = 'pending' ORDER BY created_at ASC LIMIT 1;`
	job, err := scanJob(r.db.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// SetStatus updates a job's status and error message.
func (r *QueueRepositoryPG) SetStatus(ctx context.Context, id string, status domain.JobStatus, errMsg string) error {
	query := `UPDATE queue SET status = $2, error = $3, updated_at = NOW() WHERE id = $1;`
	tag, err := r.db.Exec(ctx, query, id, status, errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Remove deletes a job.
func (r *QueueRepositoryPG) Remove(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM queue WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Retry transitions a failed job back to pending. The status check lives
// in the UPDATE itself so a concurrent state change cannot slip through.
func (r *QueueRepositoryPG) Retry(ctx context.Context, id string) (*domain.Job, error) {
	query := `
UPDATE queue
SET status = 'pending', error = '', retry_count = retry_count + 1, updated_at = NOW()
WHERE id = $1 AND status = 'failed'
RETURNING ` + queueColumns + `;`
	job, err := scanJob(r.db.QueryRow(ctx, query, id))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// Nothing matched: distinguish a missing job from a wrong-state one.
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrInvalidJobState
}

// ResetProcessing requeues jobs left in processing by a crash. Returns
// the number of jobs reset.
func (r *QueueRepositoryPG) ResetProcessing(ctx context.Context) (int, error) {
	query := `UPDATE queue SET status = 'pending', updated_at = NOW() WHERE status = 'processing';`
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.Prompt,
		&job.Provider,
		&job.Model,
		&job.AspectRatio,
		&job.Count,
		&job.Status,
		&job.Error,
		&job.RetryCount,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}

var _ domain.QueueRepository = (*QueueRepositoryPG)(nil)
