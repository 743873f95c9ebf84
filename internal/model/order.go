package model

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

type Order struct {
	Base
	Number         string        `json:"number" db:"number"`
	UserID         *uuid.UUID    `json:"user_id,omitempty" db:"user_id"`
	Email          string        `json:"email" db:"email"`
	Name           string        `json:"name" db:"name"`
	Status         OrderStatus   `json:"status" db:"status"`
	PaymentStatus  PaymentStatus `json:"payment_status" db:"payment_status"`
	TotalCents     int64         `json:"total_cents" db:"total_cents"`
	Currency       string        `json:"currency" db:"currency"`
	Locale         string        `json:"locale" db:"locale"`
	ShippingName   string        `json:"shipping_name" db:"shipping_name"`
	ShippingStreet string        `json:"shipping_street" db:"shipping_street"`
	ShippingCity   string        `json:"shipping_city" db:"shipping_city"`
	ShippingZip    string        `json:"shipping_zip" db:"shipping_zip"`
	ShippingCountry string       `json:"shipping_country" db:"shipping_country"`
	TrackingNumber string        `json:"tracking_number" db:"tracking_number"`
	Carrier        string        `json:"carrier" db:"carrier"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`

	Items []OrderItem `json:"items" db:"-"`
}

type OrderItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"order_id" db:"order_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UnitCents int64     `json:"unit_cents" db:"unit_cents"`
}
