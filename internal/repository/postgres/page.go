package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skartik/commerce-api/internal/model"
	"github.com/skartik/commerce-api/internal/repository"
)

type pageRepository struct {
	BaseRepository
}

func NewPageRepository(base BaseRepository) repository.PageRepository {
	return &pageRepository{base}
}

func (r *pageRepository) Create(ctx context.Context, page *model.Page) error {
	query := `
		INSERT INTO pages (id, slug, title, body, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	page.ID = uuid.New()
	page.CreatedAt = time.Now()
	page.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		page.ID, page.Slug, page.Title, page.Body, page.Published,
		page.CreatedAt, page.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	return nil
}

func (r *pageRepository) GetBySlug(ctx context.Context, slug string) (*model.Page, error) {
	var page model.Page
	if err := r.db.GetContext(ctx, &page, `SELECT * FROM pages WHERE slug = $1`, slug); err != nil {
		return nil, notFoundOr(err, "page")
	}
	return &page, nil
}

func (r *pageRepository) Update(ctx context.Context, page *model.Page) error {
	query := `
		UPDATE pages SET slug = $2, title = $3, body = $4, published = $5, updated_at = $6
		WHERE id = $1
	`

	page.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		page.ID, page.Slug, page.Title, page.Body, page.Published, page.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}
	return nil
}

func (r *pageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pages WHERE id = $1`, id)
	return err
}

func (r *pageRepository) List(ctx context.Context) ([]*model.Page, error) {
	var pages []*model.Page
	if err := r.db.SelectContext(ctx, &pages, `SELECT * FROM pages ORDER BY title`); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}
