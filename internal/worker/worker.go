package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"image-batch/internal/broker"
	"image-batch/internal/domain"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

type jobRunner interface {
	RunJob(ctx context.Context, msg *domain.JobMessage) error
	FailJob(ctx context.Context, id, reason string) error
}

// Pool consumes batch job messages with a fixed number of goroutines.
type Pool struct {
	consumer    broker.Consumer
	runner      jobRunner
	retries     retry.Strategy
	concurrency int
	logger      *zlog.Zerolog
	wg          sync.WaitGroup
}

func NewPool(consumer broker.Consumer, runner jobRunner, concurrency int, retries retry.Strategy, logger *zlog.Zerolog) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{
		consumer:    consumer,
		runner:      runner,
		retries:     retries,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run blocks until ctx is done and every in-flight job has finished.
func (p *Pool) Run(ctx context.Context) {
	messages := make(chan *broker.Message, p.concurrency*2)
	p.consumer.Start(ctx, messages, p.retries)

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.processWorker(ctx, id, messages)
		}(i)
	}

	p.logger.Info().Int("concurrency", p.concurrency).Msg("Worker pool started")
	<-ctx.Done()
	p.wg.Wait()
	p.logger.Info().Msg("Worker pool stopped")
}

func (p *Pool) processWorker(ctx context.Context, id int, messages <-chan *broker.Message) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug().Int("worker_id", id).Msg("Worker stopping")
			return
		case msg := <-messages:
			// Buffered messages stay uncommitted and are redelivered.
			if ctx.Err() != nil {
				return
			}
			p.handleMessage(ctx, id, msg)
		}
	}
}

// handleMessage commits msg only once its job is in a terminal state, so a
// later commit on the partition never skips a job that is still queued.
func (p *Pool) handleMessage(ctx context.Context, workerID int, msg *broker.Message) {
	startTime := time.Now()

	var job domain.JobMessage
	if err := json.Unmarshal(msg.Value, &job); err != nil || job.JobID == "" {
		p.logger.Error().Err(err).Str("message", string(msg.Value)).Int64("offset", msg.Offset).Msg("Dropping malformed job message")
		p.commit(ctx, workerID, msg, startTime)
		return
	}

	err := p.runWithRetry(ctx, workerID, &job)
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		p.logger.Info().Str("job_id", job.JobID).Int64("offset", msg.Offset).Msg("Job not started before shutdown")
		return
	}
	if err != nil {
		p.logger.Error().
			Err(err).
			Int("worker_id", workerID).
			Str("job_id", job.JobID).
			Int64("offset", msg.Offset).
			Msg("Batch job failed, marking it failed")

		if !p.failJob(ctx, job.JobID, err.Error()) {
			return
		}
	}

	p.commit(ctx, workerID, msg, startTime)
}

// failJob blocks until the job is recorded as failed. It gives up only on
// shutdown, leaving the message uncommitted.
func (p *Pool) failJob(ctx context.Context, jobID, reason string) bool {
	delay := max(p.retries.Delay, 10*time.Millisecond)
	for {
		err := p.runner.FailJob(ctx, jobID, reason)
		if err == nil || errors.Is(err, domain.ErrJobNotFound) {
			return true
		}

		p.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to mark job failed, retrying")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false
		}
	}
}

// runWithRetry runs the job up to the strategy's attempt count. Unknown jobs
// count as handled.
func (p *Pool) runWithRetry(ctx context.Context, workerID int, job *domain.JobMessage) error {
	attempts := max(p.retries.Attempts, 1)
	delay := p.retries.Delay

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		p.logger.Info().Str("job_id", job.JobID).Int("attempt", attempt).Msg("Batch job started")

		err = p.safeRunJob(ctx, workerID, job)
		if errors.Is(err, domain.ErrJobNotFound) {
			p.logger.Warn().Str("job_id", job.JobID).Msg("Dropping message for unknown job")
			return nil
		}
		if err == nil || attempt == attempts || ctx.Err() != nil {
			break
		}

		p.logger.Warn().Err(err).Str("job_id", job.JobID).Int("attempt", attempt).Msg("Batch job attempt failed, retrying")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return err
		}
		if p.retries.Backoff > 1 {
			delay = time.Duration(float64(delay) * p.retries.Backoff)
		}
	}
	return err
}

func (p *Pool) safeRunJob(ctx context.Context, workerID int, job *domain.JobMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Int("worker_id", workerID).
				Interface("panic", r).
				Str("job_id", job.JobID).
				Msg("Panic recovered while running job")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.runner.RunJob(ctx, job)
}

func (p *Pool) commit(ctx context.Context, workerID int, msg *broker.Message, startTime time.Time) {
	// The offset is committed even when shutdown has begun.
	if err := p.consumer.Commit(context.WithoutCancel(ctx), msg); err != nil {
		p.logger.Error().
			Err(err).
			Int("worker_id", workerID).
			Int64("offset", msg.Offset).
			Msg("Failed to commit message")
		return
	}

	p.logger.Debug().
		Int("worker_id", workerID).
		Int64("offset", msg.Offset).
		Dur("duration", time.Since(startTime)).
		Msg("Message processed and committed")
}
