package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skartik/commerce-api/internal/model"
	"github.com/skartik/commerce-api/internal/repository"
)

type orderRepository struct {
	BaseRepository
}

func NewOrderRepository(base BaseRepository) repository.OrderRepository {
	return &orderRepository{base}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	orderQuery := `
		INSERT INTO orders (
			id, number, user_id, email, name, status, payment_status,
			total_cents, currency, locale, shipping_name, shipping_street,
			shipping_city, shipping_zip, shipping_country, tracking_number,
			carrier, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, quantity, unit_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, orderQuery,
			order.ID, order.Number, order.UserID, order.Email, order.Name,
			order.Status, order.PaymentStatus, order.TotalCents, order.Currency,
			order.Locale, order.ShippingName, order.ShippingStreet,
			order.ShippingCity, order.ShippingZip, order.ShippingCountry,
			order.TrackingNumber, order.Carrier, order.CreatedAt, order.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.ID = uuid.New()
			item.OrderID = order.ID
			if _, err := tx.ExecContext(ctx, itemQuery,
				item.ID, item.OrderID, item.ProductID, item.Name,
				item.Quantity, item.UnitCents,
			); err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}
		return nil
	})
}

func (r *orderRepository) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := r.db.GetContext(ctx, &order, `SELECT * FROM orders WHERE id = $1`, id); err != nil {
		return nil, notFoundOr(err, "order")
	}
	if err := r.loadItems(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	var order model.Order
	if err := r.db.GetContext(ctx, &order, `SELECT * FROM orders WHERE number = $1`, number); err != nil {
		return nil, notFoundOr(err, "order")
	}
	if err := r.loadItems(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, order *model.Order) error {
	var items []model.OrderItem
	query := `SELECT * FROM order_items WHERE order_id = $1 ORDER BY name`
	if err := r.db.SelectContext(ctx, &items, query, order.ID); err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	order.Items = items
	return nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`
	if status == model.OrderStatusCancelled {
		query = `UPDATE orders SET status = $2, cancelled_at = $3, updated_at = $3 WHERE id = $1`
	}
	_, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}

func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return nil
}

func (r *orderRepository) UpdateTracking(ctx context.Context, id uuid.UUID, carrier, trackingNumber string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET carrier = $2, tracking_number = $3, updated_at = $4 WHERE id = $1`,
		id, carrier, trackingNumber, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update tracking: %w", err)
	}
	return nil
}

func (r *orderRepository) List(ctx context.Context, status model.OrderStatus, p *model.Pagination) ([]*model.Order, error) {
	p.Normalize()
	var orders []*model.Order

	if status != "" {
		query := `SELECT * FROM orders WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		if err := r.db.SelectContext(ctx, &orders, query, status, p.PageSize, p.Offset()); err != nil {
			return nil, fmt.Errorf("failed to list orders: %w", err)
		}
		return orders, nil
	}

	query := `SELECT * FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &orders, query, p.PageSize, p.Offset()); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}
