package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"image-batch/internal/domain"
	"image-batch/internal/repository/image"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
)

type JobsRepository struct {
	db      *dbpg.DB
	retries retry.Strategy
}

func NewJobsRepository(db *dbpg.DB, retries retry.Strategy) *JobsRepository {
	return &JobsRepository{
		db:      db,
		retries: retries,
	}
}

func (r *JobsRepository) Create(ctx context.Context, job *domain.BatchJob) error {
	query := `
		INSERT INTO batch_jobs (id, user_id, status, request, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	request, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("failed to marshal job request: %w", err)
	}

	_, err = r.db.ExecWithRetry(ctx, r.retries, query,
		job.ID,
		job.UserID,
		job.Status,
		string(request),
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create batch job: %w", err)
	}

	return nil
}

func (r *JobsRepository) GetByID(ctx context.Context, id string) (*domain.BatchJob, error) {
	query := `
		SELECT id, user_id, status, request, result, error, created_at, updated_at
		FROM batch_jobs
		WHERE id = $1
	`

	row, err := r.db.QueryRowWithRetry(ctx, r.retries, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch job: %w", err)
	}

	var (
		job     domain.BatchJob
		request []byte
		result  []byte
		jobErr  sql.NullString
	)
	err = row.Scan(
		&job.ID,
		&job.UserID,
		&job.Status,
		&request,
		&result,
		&jobErr,
		&job.CreatedAt,
		&job.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, image.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch job: %w", err)
	}

	if err := json.Unmarshal(request, &job.Request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job request: %w", err)
	}
	if len(result) > 0 {
		job.Result = &domain.BatchResult{}
		if err := json.Unmarshal(result, job.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job result: %w", err)
		}
	}
	job.Error = jobErr.String

	return &job, nil
}

func (r *JobsRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus) error {
	query := `UPDATE batch_jobs SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.ExecWithRetry(ctx, r.retries, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return image.ErrJobNotFound
	}

	return nil
}

// Finish stores the terminal state of a job. result may be nil for jobs that
// failed before producing one.
func (r *JobsRepository) Finish(ctx context.Context, id string, status domain.JobStatus, res *domain.BatchResult, errMsg string) error {
	query := `
		UPDATE batch_jobs
		SET status = $1, result = $2, error = NULLIF($3, ''), updated_at = $4
		WHERE id = $5
	`

	// jsonb columns take text parameters; nil stores NULL.
	var payload any
	if res != nil {
		data, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to marshal job result: %w", err)
		}
		payload = string(data)
	}

	result, err := r.db.ExecWithRetry(ctx, r.retries, query, status, payload, errMsg, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to finish batch job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return image.ErrJobNotFound
	}

	return nil
}
