package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/skartik/commerce-api/internal/model"
)

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		List(ctx context.Context, p *model.Pagination) ([]*model.User, error)
	}

	TokenRepository interface {
		CreateResetToken(ctx context.Context, token *model.PasswordResetToken) error
		GetResetToken(ctx context.Context, token string) (*model.PasswordResetToken, error)
		MarkResetTokenUsed(ctx context.Context, id uuid.UUID) error
	}

	ProductRepository interface {
		Create(ctx context.Context, product *model.Product) error
		Get(ctx context.Context, id uuid.UUID) (*model.Product, error)
		GetBySlug(ctx context.Context, slug string) (*model.Product, error)
		Update(ctx context.Context, product *model.Product) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, categoryID *uuid.UUID, p *model.Pagination) ([]*model.Product, error)
		AdjustStock(ctx context.Context, id uuid.UUID, delta int) error
	}

	CategoryRepository interface {
		Create(ctx context.Context, category *model.Category) error
		Get(ctx context.Context, id uuid.UUID) (*model.Category, error)
		Update(ctx context.Context, category *model.Category) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Category, error)
	}

	OrderRepository interface {
		Create(ctx context.Context, order *model.Order) error
		Get(ctx context.Context, id uuid.UUID) (*model.Order, error)
		GetByNumber(ctx context.Context, number string) (*model.Order, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error
		UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error
		UpdateTracking(ctx context.Context, id uuid.UUID, carrier, trackingNumber string) error
		List(ctx context.Context, status model.OrderStatus, p *model.Pagination) ([]*model.Order, error)
	}

	PageRepository interface {
		Create(ctx context.Context, page *model.Page) error
		GetBySlug(ctx context.Context, slug string) (*model.Page, error)
		Update(ctx context.Context, page *model.Page) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Page, error)
	}

	SettingsRepository interface {
		Get(ctx context.Context) (*model.StoreSettings, error)
		Update(ctx context.Context, settings *model.StoreSettings) error
	}
)
