package page

import (
	"context"

	"github.com/google/uuid"

	"github.com/skartik/commerce-api/internal/model"
	"github.com/skartik/commerce-api/internal/repository"
	apperrors "github.com/skartik/commerce-api/pkg/errors"
)

type PageServicer interface {
	CreatePage(ctx context.Context, page *model.Page) error
	GetPage(ctx context.Context, slug string) (*model.Page, error)
	UpdatePage(ctx context.Context, page *model.Page) error
	DeletePage(ctx context.Context, id uuid.UUID) error
	ListPages(ctx context.Context) ([]*model.Page, error)
}

type Service struct {
	pages repository.PageRepository
}

func NewService(pages repository.PageRepository) *Service {
	return &Service{pages: pages}
}

func (s *Service) CreatePage(ctx context.Context, page *model.Page) error {
	return s.pages.Create(ctx, page)
}

// GetPage returns a published page by slug. Unpublished pages are hidden
// from the storefront and read as not found.
func (s *Service) GetPage(ctx context.Context, slug string) (*model.Page, error) {
	page, err := s.pages.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !page.Published {
		return nil, apperrors.NotFound("page", nil)
	}
	return page, nil
}

func (s *Service) UpdatePage(ctx context.Context, page *model.Page) error {
	return s.pages.Update(ctx, page)
}

func (s *Service) DeletePage(ctx context.Context, id uuid.UUID) error {
	return s.pages.Delete(ctx, id)
}

func (s *Service) ListPages(ctx context.Context) ([]*model.Page, error) {
	return s.pages.List(ctx)
}
