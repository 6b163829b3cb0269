package resolver

import (
	"context"

	"image-batch/internal/client/wordpress"
	"image-batch/internal/domain"
)

type websiteRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Website, error)
}

type contentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Content, error)
}

type wordpressClient interface {
	GetMedia(ctx context.Context, site *domain.Website, id int) (*wordpress.Media, error)
	GetPost(ctx context.Context, site *domain.Website, id int) (*wordpress.Post, error)
	Download(ctx context.Context, url string) (*wordpress.Download, error)
}
