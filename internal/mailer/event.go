package mailer

import (
	"fmt"
	"strings"
	"time"

	"github.com/skartik/commerce-api/pkg/errors"
)

// EventType enumerates every transactional email the platform sends.
type EventType string

const (
	EventOrderConfirmation       EventType = "order_confirmation"
	EventOrderConfirmationResend EventType = "order_confirmation_resend"
	EventAdminOrderNotice        EventType = "admin_order_notice"
	EventShippingNotice          EventType = "shipping_notice"
	EventOrderStatusUpdate       EventType = "order_status_update"
	EventOrderCancellation       EventType = "order_cancellation"
	EventAdminCancellationNotice EventType = "admin_cancellation_notice"
	EventPaymentStatusUpdate     EventType = "payment_status_update"
	EventWelcome                 EventType = "welcome"
	EventPasswordReset           EventType = "password_reset"
	EventContactForm             EventType = "contact_form"
)

// EventTypes lists the closed set of known event types.
var EventTypes = []EventType{
	EventOrderConfirmation,
	EventOrderConfirmationResend,
	EventAdminOrderNotice,
	EventShippingNotice,
	EventOrderStatusUpdate,
	EventOrderCancellation,
	EventAdminCancellationNotice,
	EventPaymentStatusUpdate,
	EventWelcome,
	EventPasswordReset,
	EventContactForm,
}

func (t EventType) Known() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Locale is one of the storefront's supported languages.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleDE Locale = "de"
	LocaleFR Locale = "fr"
	LocaleES Locale = "es"
)

var supportedLocales = map[Locale]bool{
	LocaleEN: true,
	LocaleDE: true,
	LocaleFR: true,
	LocaleES: true,
}

func (l Locale) Supported() bool {
	return supportedLocales[l]
}

// EmailEvent is the immutable description of one notification to send.
// Created by business logic at enqueue time and consumed once per delivery
// attempt by the worker; never mutated.
//
// Payload fields are type-specific; Validate enforces which ones a given
// type requires.
type EmailEvent struct {
	Type      EventType `json:"type"`
	Locale    Locale    `json:"locale"`
	Timestamp time.Time `json:"timestamp"`

	OrderID string `json:"order_id,omitempty"`
	UserID  string `json:"user_id,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`

	// Password reset only. Redacted from all diagnostic output.
	Token string `json:"token,omitempty"`

	OldStatus string `json:"old_status,omitempty"`
	NewStatus string `json:"new_status,omitempty"`

	PaymentStatus string `json:"payment_status,omitempty"`

	TrackingNumber string `json:"tracking_number,omitempty"`
	Carrier        string `json:"carrier,omitempty"`

	// Contact form only.
	Subject string `json:"subject,omitempty"`
	Message string `json:"message,omitempty"`
}

// Validate is the gate before dispatch. Any violation is a permanent error;
// retrying malformed input cannot succeed.
func (e *EmailEvent) Validate() error {
	if !e.Type.Known() {
		return errors.Permanent("unknown event type", fmt.Errorf("type %q", e.Type))
	}
	if !e.Locale.Supported() {
		return errors.Permanent("unsupported locale", fmt.Errorf("locale %q", e.Locale))
	}
	if e.Timestamp.IsZero() {
		return errors.Permanent("missing timestamp", nil)
	}

	switch e.Type {
	case EventOrderConfirmation, EventOrderConfirmationResend, EventAdminOrderNotice,
		EventShippingNotice, EventOrderStatusUpdate, EventOrderCancellation,
		EventAdminCancellationNotice, EventPaymentStatusUpdate:
		if e.OrderID == "" {
			return errors.Permanent("missing order id", fmt.Errorf("type %q", e.Type))
		}
	case EventWelcome:
		if e.UserID == "" {
			return errors.Permanent("missing user id", fmt.Errorf("type %q", e.Type))
		}
	case EventPasswordReset:
		if e.UserID == "" || e.Token == "" {
			return errors.Permanent("missing user id or reset token", fmt.Errorf("type %q", e.Type))
		}
	case EventContactForm:
		if e.Email == "" || e.Message == "" {
			return errors.Permanent("missing contact sender or message", fmt.Errorf("type %q", e.Type))
		}
	}
	return nil
}

// DeliveryKey is the deterministic composite identifying "this specific
// notification to this specific recipient". Two events producing the same
// key within the tracking TTL result in at most one send.
//
// Per type the stable identifiers are:
//   - order mails:            order id + recipient email
//   - status/shipping mails:  order id + recipient email + new status
//   - payment updates:        order id + payment status
//   - welcome:                user id
//   - password reset:         user id + reset token
//   - contact form:           sender email + submission timestamp
func (e *EmailEvent) DeliveryKey() string {
	parts := []string{string(e.Type), string(e.Locale)}
	switch e.Type {
	case EventOrderConfirmation, EventOrderConfirmationResend, EventAdminOrderNotice,
		EventOrderCancellation, EventAdminCancellationNotice:
		parts = append(parts, e.OrderID, e.Email)
	case EventShippingNotice, EventOrderStatusUpdate:
		parts = append(parts, e.OrderID, e.Email, e.NewStatus)
	case EventPaymentStatusUpdate:
		parts = append(parts, e.OrderID, e.PaymentStatus)
	case EventWelcome:
		parts = append(parts, e.UserID)
	case EventPasswordReset:
		parts = append(parts, e.UserID, e.Token)
	case EventContactForm:
		parts = append(parts, e.Email, fmt.Sprintf("%d", e.Timestamp.Unix()))
	}
	return strings.Join(parts, ":")
}

// Sanitized returns a copy safe for diagnostic logging. Reset tokens are
// the only secret an EmailEvent can carry.
func (e *EmailEvent) Sanitized() EmailEvent {
	out := *e
	if out.Token != "" {
		out.Token = "[REDACTED]"
	}
	return out
}
