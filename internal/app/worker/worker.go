package worker

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"image-batch/internal/app"
	kafka_impl "image-batch/internal/broker/kafka"
	"image-batch/internal/config"
	"image-batch/internal/usecase/batch"
	"image-batch/internal/worker"

	"github.com/wb-go/wbf/zlog"
)

type Worker struct {
	cfg      *config.Config
	logger   *zlog.Zerolog
	pipeline *app.Pipeline
	consumer *kafka_impl.ConsumerClient
	pool     *worker.Pool
}

func NewWorker(cfg *config.Config, logger *zlog.Zerolog) (*Worker, error) {
	pipeline, err := app.NewPipeline(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	// The worker only runs jobs, so it never publishes.
	batchUsecase := batch.New(cfg.Batch, pipeline.Resolver, pipeline.Processor, pipeline.Writer, pipeline.Jobs, nil, logger)

	consumer := kafka_impl.NewConsumerClient(cfg.Kafka)
	pool := worker.NewPool(consumer, batchUsecase, cfg.Worker.Concurrency, cfg.DefaultRetryStrategy(), logger)

	logger.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.JobTopic).
		Str("group", cfg.Kafka.GroupID).
		Int("concurrency", cfg.Worker.Concurrency).
		Msg("Worker configuration")

	return &Worker{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline,
		consumer: consumer,
		pool:     pool,
	}, nil
}

func (w *Worker) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w.pool.Run(ctx)

	w.logger.Info().Msg("Shutting down worker gracefully...")
	if err := w.consumer.Close(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to close Kafka consumer")
	}
	w.pipeline.Close()
	w.logger.Info().Msg("Worker stopped gracefully")
	return nil
}
