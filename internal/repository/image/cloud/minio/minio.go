package minio

import (
	"bytes"
	"context"
	"fmt"

	"image-batch/internal/config"
	"image-batch/internal/repository/image"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// FileRepository archives processed output that could not be published to
// its origin.
type FileRepository struct {
	client  *minio.Client
	bucket  string
	region  string
	retries retry.Strategy
	logger  *zlog.Zerolog
}

func NewMinIORepository(cfg config.MinIOConfig, retries retry.Strategy, logger *zlog.Zerolog) (*FileRepository, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &FileRepository{
		client:  client,
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		retries: retries,
		logger:  logger,
	}, nil
}

// EnsureBucket creates the archive bucket when it does not exist yet.
func (r *FileRepository) EnsureBucket(ctx context.Context) error {
	return retry.Do(func() error {
		exists, err := r.client.BucketExists(ctx, r.bucket)
		if err != nil {
			return fmt.Errorf("failed to check bucket %s: %w", r.bucket, err)
		}
		if exists {
			return nil
		}

		if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{Region: r.region}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", r.bucket, err)
		}
		r.logger.Info().Str("bucket", r.bucket).Msg("Created archive bucket")
		return nil
	}, r.retries)
}

// SaveProcessed stores data under key and returns the object key.
func (r *FileRepository) SaveProcessed(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" || len(data) == 0 {
		return "", fmt.Errorf("%w: empty key or payload", image.ErrStorageValidation)
	}

	err := retry.Do(func() error {
		_, err := r.client.PutObject(ctx, r.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: contentType,
		})
		return err
	}, r.retries)
	if err != nil {
		r.logger.Error().Err(err).Str("bucket", r.bucket).Str("key", key).Msg("Failed to archive processed image")
		return "", fmt.Errorf("%w: failed to put %s: %v", image.ErrStorageError, key, err)
	}

	r.logger.Debug().Str("bucket", r.bucket).Str("key", key).Int("size", len(data)).Msg("Archived processed image")
	return key, nil
}
