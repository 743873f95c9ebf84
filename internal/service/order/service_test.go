package order

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skartik/commerce-api/internal/mailer"
	"github.com/skartik/commerce-api/internal/model"
	apperrors "github.com/skartik/commerce-api/pkg/errors"
	"github.com/skartik/commerce-api/pkg/logger"
)

type capturingEnqueuer struct {
	events []*mailer.EmailEvent
}

func (c *capturingEnqueuer) Enqueue(_ context.Context, payload interface{}) (string, error) {
	c.events = append(c.events, payload.(*mailer.EmailEvent))
	return uuid.New().String(), nil
}

func (c *capturingEnqueuer) types() []mailer.EventType {
	out := make([]mailer.EventType, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeOrderRepo struct {
	orders map[uuid.UUID]*model.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*model.Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *model.Order) error {
	order.ID = uuid.New()
	copied := *order
	r.orders[order.ID] = &copied
	return nil
}

func (r *fakeOrderRepo) Get(_ context.Context, id uuid.UUID) (*model.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order", nil)
	}
	copied := *order
	return &copied, nil
}

func (r *fakeOrderRepo) GetByNumber(_ context.Context, number string) (*model.Order, error) {
	for _, order := range r.orders {
		if order.Number == number {
			copied := *order
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("order", nil)
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OrderStatus) error {
	order, ok := r.orders[id]
	if !ok {
		return apperrors.NotFound("order", nil)
	}
	order.Status = status
	return nil
}

func (r *fakeOrderRepo) UpdatePaymentStatus(_ context.Context, id uuid.UUID, status model.PaymentStatus) error {
	order, ok := r.orders[id]
	if !ok {
		return apperrors.NotFound("order", nil)
	}
	order.PaymentStatus = status
	return nil
}

func (r *fakeOrderRepo) UpdateTracking(_ context.Context, id uuid.UUID, carrier, trackingNumber string) error {
	order, ok := r.orders[id]
	if !ok {
		return apperrors.NotFound("order", nil)
	}
	order.Carrier = carrier
	order.TrackingNumber = trackingNumber
	return nil
}

func (r *fakeOrderRepo) List(_ context.Context, _ model.OrderStatus, _ *model.Pagination) ([]*model.Order, error) {
	out := make([]*model.Order, 0, len(r.orders))
	for _, order := range r.orders {
		out = append(out, order)
	}
	return out, nil
}

type fakeProductRepo struct {
	products map[uuid.UUID]*model.Product
	stockOps []int
}

func newFakeProductRepo(products ...*model.Product) *fakeProductRepo {
	repo := &fakeProductRepo{products: make(map[uuid.UUID]*model.Product)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *fakeProductRepo) Create(context.Context, *model.Product) error { return nil }

func (r *fakeProductRepo) Get(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", nil)
	}
	return p, nil
}

func (r *fakeProductRepo) GetBySlug(context.Context, string) (*model.Product, error) {
	return nil, apperrors.NotFound("product", nil)
}

func (r *fakeProductRepo) Update(context.Context, *model.Product) error   { return nil }
func (r *fakeProductRepo) Delete(context.Context, uuid.UUID) error        { return nil }
func (r *fakeProductRepo) List(context.Context, *uuid.UUID, *model.Pagination) ([]*model.Product, error) {
	return nil, nil
}

func (r *fakeProductRepo) AdjustStock(_ context.Context, id uuid.UUID, delta int) error {
	r.stockOps = append(r.stockOps, delta)
	r.products[id].Stock += delta
	return nil
}

func testService() (*Service, *fakeOrderRepo, *fakeProductRepo, *capturingEnqueuer, *model.Product) {
	product := &model.Product{
		Base:       model.Base{ID: uuid.New()},
		Name:       "Widget",
		Slug:       "widget",
		PriceCents: 1500,
		Currency:   "EUR",
		Stock:      10,
		Active:     true,
	}

	orders := newFakeOrderRepo()
	products := newFakeProductRepo(product)
	enq := &capturingEnqueuer{}
	log := logger.NewLogger(&logger.Config{Level: logger.FatalLevel, Output: io.Discard})
	svc := NewService(orders, products, mailer.NewPublisher(enq, log), log)
	return svc, orders, products, enq, product
}

func placeInput(product *model.Product, qty int) *PlaceOrderInput {
	return &PlaceOrderInput{
		Email:           "buyer@example.com",
		Name:            "Ada",
		Locale:          "de",
		ShippingName:    "Ada",
		ShippingStreet:  "Main St 1",
		ShippingCity:    "Berlin",
		ShippingZip:     "10115",
		ShippingCountry: "DE",
		Items:           []LineInput{{ProductID: product.ID, Quantity: qty}},
	}
}

func TestPlaceOrderPublishesConfirmationPair(t *testing.T) {
	svc, _, products, enq, product := testService()

	placed, err := svc.PlaceOrder(context.Background(), placeInput(product, 2))
	require.NoError(t, err)

	assert.Equal(t, int64(3000), placed.TotalCents)
	assert.Equal(t, model.OrderStatusPending, placed.Status)
	assert.Equal(t, 8, products.products[product.ID].Stock)

	require.Len(t, enq.events, 2)
	assert.Equal(t, []mailer.EventType{
		mailer.EventOrderConfirmation,
		mailer.EventAdminOrderNotice,
	}, enq.types())
	assert.Equal(t, mailer.LocaleDE, enq.events[0].Locale)
	assert.Equal(t, placed.ID.String(), enq.events[0].OrderID)
}

func TestPlaceOrderRejectsInsufficientStock(t *testing.T) {
	svc, _, _, enq, product := testService()

	_, err := svc.PlaceOrder(context.Background(), placeInput(product, 50))
	require.Error(t, err)
	assert.Empty(t, enq.events)
}

func TestPlaceOrderRejectsInactiveProduct(t *testing.T) {
	svc, _, _, _, product := testService()
	product.Active = false

	_, err := svc.PlaceOrder(context.Background(), placeInput(product, 1))
	assert.Error(t, err)
}

func TestPlaceOrderUnsupportedLocaleFallsBack(t *testing.T) {
	svc, _, _, enq, product := testService()

	input := placeInput(product, 1)
	input.Locale = "xx"
	_, err := svc.PlaceOrder(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, mailer.LocaleEN, enq.events[0].Locale)
}

func TestUpdateStatusShippedPublishesShippingNotice(t *testing.T) {
	svc, _, _, enq, product := testService()
	placed, err := svc.PlaceOrder(context.Background(), placeInput(product, 1))
	require.NoError(t, err)
	enq.events = nil

	_, err = svc.UpdateTracking(context.Background(), placed.ID, "DHL", "TRACK-1")
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), placed.ID, model.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, updated.Status)

	require.Len(t, enq.events, 1)
	event := enq.events[0]
	assert.Equal(t, mailer.EventShippingNotice, event.Type)
	assert.Equal(t, "TRACK-1", event.TrackingNumber)
	assert.Equal(t, string(model.OrderStatusPending), event.OldStatus)
	assert.Equal(t, string(model.OrderStatusShipped), event.NewStatus)
}

func TestUpdateStatusCancelledPublishesPair(t *testing.T) {
	svc, _, _, enq, product := testService()
	placed, err := svc.PlaceOrder(context.Background(), placeInput(product, 1))
	require.NoError(t, err)
	enq.events = nil

	_, err = svc.UpdateStatus(context.Background(), placed.ID, model.OrderStatusCancelled)
	require.NoError(t, err)

	assert.Equal(t, []mailer.EventType{
		mailer.EventOrderCancellation,
		mailer.EventAdminCancellationNotice,
	}, enq.types())
}

func TestUpdateStatusGenericChangePublishesStatusUpdate(t *testing.T) {
	svc, _, _, enq, product := testService()
	placed, err := svc.PlaceOrder(context.Background(), placeInput(product, 1))
	require.NoError(t, err)
	enq.events = nil

	_, err = svc.UpdateStatus(context.Background(), placed.ID, model.OrderStatusProcessing)
	require.NoError(t, err)

	require.Len(t, enq.events, 1)
	assert.Equal(t, mailer.EventOrderStatusUpdate, enq.events[0].Type)
}

func TestUpdateStatusNoopWhenUnchanged(t *testing.T) {
	svc, _, _, enq, product := testService()
	placed, err := svc.PlaceOrder(context.Background(), placeInput(product, 1))
	require.NoError(t, err)
	enq.events = nil

	_, err = svc.UpdateStatus(context.Background(), placed.ID, model.OrderStatusPending)
	require.NoError(t, err)
	assert.Empty(t, enq.events)
}

func TestUpdateStatusRejectsCancelledOrders(t *testing.T) {
	svc, _, _, _, product := testService()
	placed, err := svc.PlaceOrder(context.Background(), placeInput(product, 1))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), placed.ID, model.OrderStatusCancelled)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), placed.ID, model.OrderStatusProcessing)
	assert.Error(t, err)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc, _, _, _, _ := testService()
	_, err := svc.UpdateStatus(context.Background(), uuid.New(), model.OrderStatus("lost"))
	assert.Error(t, err)
}

func TestUpdatePaymentStatusPublishesEvent(t *testing.T) {
	svc, _, _, enq, product := testService()
	placed, err := svc.PlaceOrder(context.Background(), placeInput(product, 1))
	require.NoError(t, err)
	enq.events = nil

	_, err = svc.UpdatePaymentStatus(context.Background(), placed.ID, model.PaymentStatusPaid)
	require.NoError(t, err)

	require.Len(t, enq.events, 1)
	assert.Equal(t, mailer.EventPaymentStatusUpdate, enq.events[0].Type)
	assert.Equal(t, string(model.PaymentStatusPaid), enq.events[0].PaymentStatus)
}

func TestResendConfirmationPublishesResendEvent(t *testing.T) {
	svc, _, _, enq, product := testService()
	placed, err := svc.PlaceOrder(context.Background(), placeInput(product, 1))
	require.NoError(t, err)
	enq.events = nil

	require.NoError(t, svc.ResendConfirmation(context.Background(), placed.ID))
	require.Len(t, enq.events, 1)
	assert.Equal(t, mailer.EventOrderConfirmationResend, enq.events[0].Type)
}

func TestOrderNumberFormat(t *testing.T) {
	svc, _, _, _, product := testService()
	placed, err := svc.PlaceOrder(context.Background(), placeInput(product, 1))
	require.NoError(t, err)
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{8}$`, placed.Number)
}
