package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skartik/commerce-api/internal/model"
	"github.com/skartik/commerce-api/internal/repository"
)

type productRepository struct {
	BaseRepository
}

func NewProductRepository(base BaseRepository) repository.ProductRepository {
	return &productRepository{base}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	query := `
		INSERT INTO products (
			id, category_id, name, slug, description, price_cents,
			currency, stock, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	product.ID = uuid.New()
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		product.ID, product.CategoryID, product.Name, product.Slug,
		product.Description, product.PriceCents, product.Currency,
		product.Stock, product.Active, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *productRepository) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.GetContext(ctx, &product, `SELECT * FROM products WHERE id = $1`, id); err != nil {
		return nil, notFoundOr(err, "product")
	}
	return &product, nil
}

func (r *productRepository) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	var product model.Product
	if err := r.db.GetContext(ctx, &product, `SELECT * FROM products WHERE slug = $1`, slug); err != nil {
		return nil, notFoundOr(err, "product")
	}
	return &product, nil
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	query := `
		UPDATE products SET
			category_id = $2, name = $3, slug = $4, description = $5,
			price_cents = $6, currency = $7, stock = $8, active = $9,
			updated_at = $10
		WHERE id = $1
	`

	product.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		product.ID, product.CategoryID, product.Name, product.Slug,
		product.Description, product.PriceCents, product.Currency,
		product.Stock, product.Active, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

func (r *productRepository) List(ctx context.Context, categoryID *uuid.UUID, p *model.Pagination) ([]*model.Product, error) {
	p.Normalize()
	var products []*model.Product

	if categoryID != nil {
		query := `
			SELECT * FROM products WHERE category_id = $1 AND active = true
			ORDER BY created_at DESC LIMIT $2 OFFSET $3
		`
		if err := r.db.SelectContext(ctx, &products, query, categoryID, p.PageSize, p.Offset()); err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		return products, nil
	}

	query := `SELECT * FROM products WHERE active = true ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &products, query, p.PageSize, p.Offset()); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (r *productRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = $3 WHERE id = $1 AND stock + $2 >= 0`,
		id, delta, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("insufficient stock for product %s", id)
	}
	return nil
}

type categoryRepository struct {
	BaseRepository
}

func NewCategoryRepository(base BaseRepository) repository.CategoryRepository {
	return &categoryRepository{base}
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	query := `
		INSERT INTO categories (id, parent_id, name, slug, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	category.ID = uuid.New()
	category.CreatedAt = time.Now()
	category.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		category.ID, category.ParentID, category.Name, category.Slug,
		category.Position, category.CreatedAt, category.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *categoryRepository) Get(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var category model.Category
	if err := r.db.GetContext(ctx, &category, `SELECT * FROM categories WHERE id = $1`, id); err != nil {
		return nil, notFoundOr(err, "category")
	}
	return &category, nil
}

func (r *categoryRepository) Update(ctx context.Context, category *model.Category) error {
	query := `
		UPDATE categories SET parent_id = $2, name = $3, slug = $4, position = $5, updated_at = $6
		WHERE id = $1
	`

	category.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		category.ID, category.ParentID, category.Name, category.Slug,
		category.Position, category.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	return err
}

func (r *categoryRepository) List(ctx context.Context) ([]*model.Category, error) {
	var categories []*model.Category
	if err := r.db.SelectContext(ctx, &categories, `SELECT * FROM categories ORDER BY position, name`); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}
