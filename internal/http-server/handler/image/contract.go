package image

import (
	"context"

	"image-batch/internal/domain"
)

type batchUsecase interface {
	Process(ctx context.Context, req *domain.BatchRequest, userID string) (*domain.BatchResult, error)
	Submit(ctx context.Context, req *domain.BatchRequest, userID string) (*domain.BatchJob, error)
	GetJob(ctx context.Context, id, userID string) (*domain.BatchJob, error)
}
