package batch

import (
	"context"
	"fmt"
	"time"

	"image-batch/internal/domain"

	"github.com/google/uuid"
)

// Submit validates req, stores it as a queued job and announces it on the
// broker. The job is marked failed when it cannot be queued.
func (u *Usecase) Submit(ctx context.Context, req *domain.BatchRequest, userID string) (*domain.BatchJob, error) {
	if u.jobs == nil || u.producer == nil {
		return nil, ErrJobsDisabled
	}
	if err := u.Validate(req); err != nil {
		return nil, err
	}

	now := time.Now()
	job := &domain.BatchJob{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    domain.JobQueued,
		Request:   *req,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := u.jobs.Create(ctx, job); err != nil {
		u.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to store batch job")
		return nil, fmt.Errorf("failed to create batch job: %w", err)
	}

	if err := u.producer.SendJob(ctx, &domain.JobMessage{JobID: job.ID, UserID: userID}); err != nil {
		u.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to send job to Kafka")
		u.finish(ctx, job.ID, domain.JobFailed, nil, ErrQueueFailed.Error())
		return nil, fmt.Errorf("%w: %v", ErrQueueFailed, err)
	}

	u.logger.Info().
		Str("job_id", job.ID).
		Str("user_id", userID).
		Int("items", len(req.ImageIDs)).
		Msg("Batch job queued")
	return job, nil
}

// GetJob returns the job id owned by userID. Jobs of other users are
// reported as not found.
func (u *Usecase) GetJob(ctx context.Context, id, userID string) (*domain.BatchJob, error) {
	if u.jobs == nil {
		return nil, ErrJobsDisabled
	}

	job, err := u.loadJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch job: %w", err)
	}
	if job.UserID != userID {
		u.logger.Warn().Str("job_id", id).Str("user_id", userID).Msg("Batch job requested by another user")
		return nil, fmt.Errorf("failed to get batch job: %w", domain.ErrJobNotFound)
	}
	return job, nil
}

// loadJob rejects ids that cannot name a stored job before querying.
func (u *Usecase) loadJob(ctx context.Context, id string) (*domain.BatchJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrJobNotFound
	}
	return u.jobs.GetByID(ctx, id)
}

// RunJob executes a queued job. Jobs already in a terminal state are
// skipped so redelivered messages are harmless. Once started, a job runs to
// its terminal state even if ctx is cancelled.
func (u *Usecase) RunJob(ctx context.Context, msg *domain.JobMessage) error {
	if u.jobs == nil {
		return ErrJobsDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	job, err := u.loadJob(ctx, msg.JobID)
	if err != nil {
		return fmt.Errorf("failed to load batch job %s: %w", msg.JobID, err)
	}

	if job.Status == domain.JobCompleted || job.Status == domain.JobFailed {
		u.logger.Info().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("Skipping finished batch job")
		return nil
	}

	if err := u.jobs.UpdateStatus(ctx, job.ID, domain.JobProcessing); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	res, err := u.Process(ctx, &job.Request, job.UserID)
	if err != nil {
		u.finish(ctx, job.ID, domain.JobFailed, nil, err.Error())
		return nil
	}

	u.finish(ctx, job.ID, domain.JobCompleted, res, "")
	return nil
}

// FailJob records a job that could not be run as failed. Jobs already in a
// terminal state are left untouched.
func (u *Usecase) FailJob(ctx context.Context, id, reason string) error {
	if u.jobs == nil {
		return ErrJobsDisabled
	}
	ctx = context.WithoutCancel(ctx)

	job, err := u.loadJob(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load batch job %s: %w", id, err)
	}
	if job.Status == domain.JobCompleted || job.Status == domain.JobFailed {
		return nil
	}

	if err := u.jobs.Finish(ctx, id, domain.JobFailed, nil, reason); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	u.logger.Warn().Str("job_id", id).Str("reason", reason).Msg("Batch job marked failed")
	return nil
}

func (u *Usecase) finish(ctx context.Context, id string, status domain.JobStatus, res *domain.BatchResult, errMsg string) {
	if err := u.jobs.Finish(ctx, id, status, res, errMsg); err != nil {
		u.logger.Error().Err(err).Str("job_id", id).Str("status", string(status)).Msg("Failed to store job result")
		return
	}
	u.logger.Info().Str("job_id", id).Str("status", string(status)).Msg("Batch job finished")
}
