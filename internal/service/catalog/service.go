package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/skartik/commerce-api/internal/model"
	"github.com/skartik/commerce-api/internal/repository"
)

type CatalogServicer interface {
	CreateProduct(ctx context.Context, product *model.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*model.Product, error)
	UpdateProduct(ctx context.Context, product *model.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context, categoryID *uuid.UUID, p *model.Pagination) ([]*model.Product, error)
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error)
	UpdateCategory(ctx context.Context, category *model.Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]*model.Category, error)
}

type Service struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
}

func NewService(products repository.ProductRepository, categories repository.CategoryRepository) *Service {
	return &Service{products: products, categories: categories}
}

func (s *Service) CreateProduct(ctx context.Context, product *model.Product) error {
	if err := s.products.Create(ctx, product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return s.products.Get(ctx, id)
}

func (s *Service) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	return s.products.GetBySlug(ctx, slug)
}

func (s *Service) UpdateProduct(ctx context.Context, product *model.Product) error {
	return s.products.Update(ctx, product)
}

func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.products.Delete(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, categoryID *uuid.UUID, p *model.Pagination) ([]*model.Product, error) {
	return s.products.List(ctx, categoryID, p)
}

func (s *Service) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := s.categories.Create(ctx, category); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	return s.categories.Get(ctx, id)
}

func (s *Service) UpdateCategory(ctx context.Context, category *model.Category) error {
	return s.categories.Update(ctx, category)
}

func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categories.Delete(ctx, id)
}

func (s *Service) ListCategories(ctx context.Context) ([]*model.Category, error) {
	return s.categories.List(ctx)
}
