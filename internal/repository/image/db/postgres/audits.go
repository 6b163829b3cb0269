package postgres

import (
	"context"
	"fmt"
	"time"

	"image-batch/internal/domain"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
)

type AuditsRepository struct {
	db      *dbpg.DB
	retries retry.Strategy
}

func NewAuditsRepository(db *dbpg.DB, retries retry.Strategy) *AuditsRepository {
	return &AuditsRepository{
		db:      db,
		retries: retries,
	}
}

func (r *AuditsRepository) Save(ctx context.Context, audit *domain.MetadataAudit) error {
	query := `
		INSERT INTO metadata_audits (
			id, image_id, website_id, content_id, user_id,
			action, options, success, message, created_at
		) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10)
	`

	if audit.ID == "" {
		audit.ID = uuid.New().String()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}
	options := audit.Options
	if len(options) == 0 {
		options = []byte("{}")
	}

	_, err := r.db.ExecWithRetry(ctx, r.retries, query,
		audit.ID,
		audit.ImageID,
		audit.WebsiteID,
		audit.ContentID,
		audit.UserID,
		audit.Action,
		string(options),
		audit.Success,
		audit.Message,
		audit.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save metadata audit: %w", err)
	}

	return nil
}
