package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"image-batch/internal/broker"
	kafka_impl "image-batch/internal/broker/kafka"
	"image-batch/internal/config"
	image_h "image-batch/internal/http-server/handler/image"
	"image-batch/internal/http-server/router"
	"image-batch/internal/usecase/batch"

	"github.com/wb-go/wbf/zlog"
)

type App struct {
	cfg      *config.Config
	server   *http.Server
	logger   *zlog.Zerolog
	pipeline *Pipeline
	producer broker.JobProducer
}

func NewApp(cfg *config.Config, logger *zlog.Zerolog) (*App, error) {
	pipeline, err := NewPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := kafka_impl.EnsureTopic(ctx, cfg.Kafka); err != nil {
		logger.Warn().Err(err).Str("topic", cfg.Kafka.JobTopic).Msg("Could not ensure job topic")
	}

	producer := kafka_impl.NewProducerClient(cfg.Kafka, cfg.DefaultRetryStrategy())

	batchUsecase := batch.New(cfg.Batch, pipeline.Resolver, pipeline.Processor, pipeline.Writer, pipeline.Jobs, producer, logger)

	imageHandler := image_h.NewImageHandler(batchUsecase, logger, cfg.Server.MaxBodyBytes, cfg.IsDevelopment())

	h := &router.Handler{
		ImageHandler: imageHandler,
		AuthSecret:   cfg.Auth.Secret,
		Development:  cfg.IsDevelopment(),
	}
	if h.AuthSecret == "" {
		logger.Warn().Msg("AUTH_SECRET is empty, requests run as anonymous")
	}

	mux := router.SetupRouter(h)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		cfg:      cfg,
		server:   server,
		logger:   logger,
		pipeline: pipeline,
		producer: producer,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info().Str("addr", a.cfg.Server.Addr).Int("batch_concurrency", a.cfg.Batch.Concurrency).Msg("Starting server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.handleSignals(cancel)

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		a.logger.Error().Err(err).Msg("Server error")
		a.close()
		return err
	case <-ctx.Done():
		a.logger.Info().Msg("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("Server shutdown failed")
		}

		a.close()
		a.logger.Info().Msg("Server stopped gracefully")
		return nil
	}
}

func (a *App) close() {
	a.pipeline.Close()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close Kafka producer")
		}
	}
}

func (a *App) handleSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	a.logger.Info().Str("signal", sig.String()).Msg("Received signal")
	cancel()
}
