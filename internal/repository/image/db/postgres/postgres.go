package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"image-batch/internal/domain"
	"image-batch/internal/repository/image"

	"github.com/lib/pq"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
)

type WebsitesRepository struct {
	db      *dbpg.DB
	retries retry.Strategy
}

func NewWebsitesRepository(db *dbpg.DB, retries retry.Strategy) *WebsitesRepository {
	return &WebsitesRepository{
		db:      db,
		retries: retries,
	}
}

func (r *WebsitesRepository) GetByID(ctx context.Context, id string) (*domain.Website, error) {
	query := `
		SELECT id, name, url, username, app_password, created_at
		FROM websites
		WHERE id = $1
	`

	row, err := r.db.QueryRowWithRetry(ctx, r.retries, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query website: %w", err)
	}

	var (
		site     domain.Website
		username sql.NullString
		password sql.NullString
	)
	err = row.Scan(
		&site.ID,
		&site.Name,
		&site.URL,
		&username,
		&password,
		&site.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, image.ErrWebsiteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan website: %w", err)
	}

	site.Username = username.String
	site.AppPassword = password.String
	return &site, nil
}

type ContentsRepository struct {
	db      *dbpg.DB
	retries retry.Strategy
}

func NewContentsRepository(db *dbpg.DB, retries retry.Strategy) *ContentsRepository {
	return &ContentsRepository{
		db:      db,
		retries: retries,
	}
}

func (r *ContentsRepository) GetByID(ctx context.Context, id string) (*domain.Content, error) {
	query := `
		SELECT id, title, body, images, version, updated_at
		FROM contents
		WHERE id = $1
	`

	row, err := r.db.QueryRowWithRetry(ctx, r.retries, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query content: %w", err)
	}

	var c domain.Content
	err = row.Scan(
		&c.ID,
		&c.Title,
		&c.Body,
		pq.Array(&c.Images),
		&c.Version,
		&c.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, image.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan content: %w", err)
	}

	return &c, nil
}

// UpdateBody stores body only if the row is still at expectedVersion and
// returns the new version.
func (r *ContentsRepository) UpdateBody(ctx context.Context, id, body string, expectedVersion int) (int, error) {
	query := `
		UPDATE contents
		SET body = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
		RETURNING version
	`

	row, err := r.db.QueryRowWithRetry(ctx, r.retries, query, body, time.Now(), id, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to update content body: %w", err)
	}

	var version int
	err = row.Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, image.ErrContentNotFound) {
			return 0, image.ErrContentNotFound
		}
		return 0, image.ErrVersionConflict
	}
	if err != nil {
		return 0, fmt.Errorf("failed to scan content version: %w", err)
	}

	return version, nil
}
