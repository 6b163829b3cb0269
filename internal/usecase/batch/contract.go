package batch

import (
	"context"

	"image-batch/internal/domain"
	"image-batch/internal/usecase/resolver"
	"image-batch/internal/usecase/sink"
)

type imageResolver interface {
	Resolve(ctx context.Context, ref domain.ImageRef) (*resolver.Source, error)
}

type imageProcessor interface {
	Process(ctx context.Context, data []byte, opts domain.ProcessOptions) (*domain.ProcessedImage, error)
}

type imageWriter interface {
	Write(ctx context.Context, src *resolver.Source, out *domain.ProcessedImage, opts domain.ProcessOptions) (*domain.ItemResult, error)
	Audit(ctx context.Context, entry sink.AuditEntry)
}

type jobRepository interface {
	Create(ctx context.Context, job *domain.BatchJob) error
	GetByID(ctx context.Context, id string) (*domain.BatchJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus) error
	Finish(ctx context.Context, id string, status domain.JobStatus, res *domain.BatchResult, errMsg string) error
}

type jobProducer interface {
	SendJob(ctx context.Context, msg *domain.JobMessage) error
}
