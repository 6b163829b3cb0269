package sink

import (
	"context"

	"image-batch/internal/client/wordpress"
	"image-batch/internal/domain"
)

type mediaUploader interface {
	Upload(ctx context.Context, site *domain.Website, filename, contentType string, data []byte) (*wordpress.Media, error)
}

type contentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Content, error)
	UpdateBody(ctx context.Context, id, body string, expectedVersion int) (int, error)
}

type auditRepository interface {
	Save(ctx context.Context, audit *domain.MetadataAudit) error
}

type fileRepository interface {
	SaveProcessed(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
