package app

import (
	"context"
	"fmt"
	"time"

	"image-batch/internal/client/wordpress"
	"image-batch/internal/config"
	minio_repo "image-batch/internal/repository/image/cloud/minio"
	postgres_repo "image-batch/internal/repository/image/db/postgres"
	"image-batch/internal/usecase/processor"
	"image-batch/internal/usecase/resolver"
	"image-batch/internal/usecase/sink"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

// Pipeline holds the components shared by the API server and the job worker.
type Pipeline struct {
	DB        *dbpg.DB
	Jobs      *postgres_repo.JobsRepository
	Resolver  *resolver.Resolver
	Processor *processor.ImageProcessor
	Writer    *sink.Writer
}

func NewPipeline(cfg *config.Config, logger *zlog.Zerolog) (*Pipeline, error) {
	retries := cfg.DefaultRetryStrategy()

	dbOpts := &dbpg.Options{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}

	db, err := dbpg.New(cfg.DBDSN(), []string{}, dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	websites := postgres_repo.NewWebsitesRepository(db, retries)
	contents := postgres_repo.NewContentsRepository(db, retries)
	audits := postgres_repo.NewAuditsRepository(db, retries)
	jobs := postgres_repo.NewJobsRepository(db, retries)

	wp := wordpress.NewClient(cfg.WordPress)

	writer, err := newWriter(cfg, wp, contents, audits, logger)
	if err != nil {
		db.Master.Close()
		return nil, err
	}

	return &Pipeline{
		DB:        db,
		Jobs:      jobs,
		Resolver:  resolver.New(websites, contents, wp, logger),
		Processor: processor.NewImageProcessor(logger),
		Writer:    writer,
	}, nil
}

// newWriter attaches the MinIO archive only when an endpoint is configured.
func newWriter(cfg *config.Config, wp *wordpress.Client, contents *postgres_repo.ContentsRepository, audits *postgres_repo.AuditsRepository, logger *zlog.Zerolog) (*sink.Writer, error) {
	if !cfg.MinIO.Enabled() {
		logger.Info().Msg("MinIO archive disabled")
		return sink.NewWriter(wp, contents, audits, nil, logger), nil
	}

	fileRepo, err := minio_repo.NewMinIORepository(cfg.MinIO, cfg.DefaultRetryStrategy(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file repository: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := fileRepo.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare archive bucket: %w", err)
	}

	return sink.NewWriter(wp, contents, audits, fileRepo, logger), nil
}

func (p *Pipeline) Close() {
	if p.DB != nil && p.DB.Master != nil {
		p.DB.Master.Close()
	}
}
