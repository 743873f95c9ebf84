package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skartik/commerce-api/internal/mailer"
	"github.com/skartik/commerce-api/internal/model"
	"github.com/skartik/commerce-api/internal/repository"
	apperrors "github.com/skartik/commerce-api/pkg/errors"
	"github.com/skartik/commerce-api/pkg/logger"
)

// LineInput is one requested order line.
type LineInput struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// PlaceOrderInput carries everything needed to create an order.
type PlaceOrderInput struct {
	UserID          *uuid.UUID  `json:"-"`
	Email           string      `json:"email" binding:"required,email"`
	Name            string      `json:"name" binding:"required"`
	Locale          string      `json:"locale"`
	ShippingName    string      `json:"shipping_name" binding:"required"`
	ShippingStreet  string      `json:"shipping_street" binding:"required"`
	ShippingCity    string      `json:"shipping_city" binding:"required"`
	ShippingZip     string      `json:"shipping_zip" binding:"required"`
	ShippingCountry string      `json:"shipping_country" binding:"required"`
	Items           []LineInput `json:"items" binding:"required,min=1"`
}

type OrderServicer interface {
	PlaceOrder(ctx context.Context, input *PlaceOrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*model.Order, error)
	ListOrders(ctx context.Context, status model.OrderStatus, p *model.Pagination) ([]*model.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (*model.Order, error)
	UpdateTracking(ctx context.Context, id uuid.UUID, carrier, trackingNumber string) (*model.Order, error)
	ResendConfirmation(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	publisher *mailer.Publisher
	logger    *logger.Logger
}

func NewService(orders repository.OrderRepository, products repository.ProductRepository, publisher *mailer.Publisher, log *logger.Logger) *Service {
	return &Service{
		orders:    orders,
		products:  products,
		publisher: publisher,
		logger:    log,
	}
}

func (s *Service) PlaceOrder(ctx context.Context, input *PlaceOrderInput) (*model.Order, error) {
	if !mailer.Locale(input.Locale).Supported() {
		input.Locale = string(mailer.LocaleEN)
	}

	order := &model.Order{
		Number:          newOrderNumber(),
		UserID:          input.UserID,
		Email:           input.Email,
		Name:            input.Name,
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusUnpaid,
		Currency:        "EUR",
		Locale:          input.Locale,
		ShippingName:    input.ShippingName,
		ShippingStreet:  input.ShippingStreet,
		ShippingCity:    input.ShippingCity,
		ShippingZip:     input.ShippingZip,
		ShippingCountry: input.ShippingCountry,
	}

	for _, line := range input.Items {
		product, err := s.products.Get(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.Active {
			return nil, apperrors.BadRequest(fmt.Sprintf("product %s is not available", product.Slug), nil)
		}
		if product.Stock < line.Quantity {
			return nil, apperrors.Conflict(fmt.Sprintf("insufficient stock for %s", product.Slug), nil)
		}

		order.Items = append(order.Items, model.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			UnitCents: product.PriceCents,
		})
		order.TotalCents += product.PriceCents * int64(line.Quantity)
		order.Currency = product.Currency
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range order.Items {
		if err := s.products.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
			s.logger.Error(err, "failed to adjust stock",
				"order_id", order.ID.String(),
				"product_id", item.ProductID.String())
		}
	}

	s.publishOrderEvent(ctx, order, mailer.EventOrderConfirmation, nil)
	s.publishOrderEvent(ctx, order, mailer.EventAdminOrderNotice, nil)

	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return s.orders.Get(ctx, id)
}

func (s *Service) GetOrderByNumber(ctx context.Context, number string) (*model.Order, error) {
	return s.orders.GetByNumber(ctx, number)
}

func (s *Service) ListOrders(ctx context.Context, status model.OrderStatus, p *model.Pagination) ([]*model.Order, error) {
	return s.orders.List(ctx, status, p)
}

// UpdateStatus transitions the order and enqueues the matching customer
// notifications. Shipped orders get a shipping notice, cancelled orders a
// cancellation pair, everything else a generic status update.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown order status %q", status), nil)
	}

	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		return order, nil
	}
	if order.Status == model.OrderStatusCancelled {
		return nil, apperrors.Conflict("order is cancelled", nil)
	}

	oldStatus := order.Status
	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	order.Status = status

	mutate := func(e *mailer.EmailEvent) {
		e.OldStatus = string(oldStatus)
		e.NewStatus = string(status)
	}

	switch status {
	case model.OrderStatusShipped:
		s.publishOrderEvent(ctx, order, mailer.EventShippingNotice, func(e *mailer.EmailEvent) {
			mutate(e)
			e.TrackingNumber = order.TrackingNumber
			e.Carrier = order.Carrier
		})
	case model.OrderStatusCancelled:
		s.publishOrderEvent(ctx, order, mailer.EventOrderCancellation, mutate)
		s.publishOrderEvent(ctx, order, mailer.EventAdminCancellationNotice, mutate)
	default:
		s.publishOrderEvent(ctx, order, mailer.EventOrderStatusUpdate, mutate)
	}

	return order, nil
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (*model.Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == status {
		return order, nil
	}

	if err := s.orders.UpdatePaymentStatus(ctx, id, status); err != nil {
		return nil, err
	}
	order.PaymentStatus = status

	s.publishOrderEvent(ctx, order, mailer.EventPaymentStatusUpdate, func(e *mailer.EmailEvent) {
		e.PaymentStatus = string(status)
	})

	return order, nil
}

func (s *Service) UpdateTracking(ctx context.Context, id uuid.UUID, carrier, trackingNumber string) (*model.Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.orders.UpdateTracking(ctx, id, carrier, trackingNumber); err != nil {
		return nil, err
	}
	order.Carrier = carrier
	order.TrackingNumber = trackingNumber
	return order, nil
}

// ResendConfirmation enqueues a fresh confirmation email for an existing
// order. The resend event type carries its own delivery key space, so the
// original confirmation's dedup record does not suppress it.
func (s *Service) ResendConfirmation(ctx context.Context, id uuid.UUID) error {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return err
	}
	s.publishOrderEvent(ctx, order, mailer.EventOrderConfirmationResend, nil)
	return nil
}

func (s *Service) publishOrderEvent(ctx context.Context, order *model.Order, typ mailer.EventType, mutate func(*mailer.EmailEvent)) {
	event := &mailer.EmailEvent{
		Type:    typ,
		Locale:  mailer.Locale(order.Locale),
		OrderID: order.ID.String(),
		Email:   order.Email,
		Name:    order.Name,
	}
	if mutate != nil {
		mutate(event)
	}
	s.publisher.Publish(ctx, event)
}

func newOrderNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), id[:8])
}
