package mailer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/skartik/commerce-api/internal/model"
	"github.com/skartik/commerce-api/internal/repository"
	apperrors "github.com/skartik/commerce-api/pkg/errors"
	"github.com/skartik/commerce-api/pkg/logger"
)

// Mailer implements the per-event-type send routines. Each routine fetches
// the data its template needs, renders and hands the result to the
// transport. Failures always propagate to the caller, which owns the
// retry-vs-permanent decision.
type Mailer struct {
	orders   repository.OrderRepository
	users    repository.UserRepository
	settings *SettingsSource
	renderer Renderer
	invoices AttachmentGenerator
	trans    Transport
	logger   *logger.Logger
}

func New(
	orders repository.OrderRepository,
	users repository.UserRepository,
	settings *SettingsSource,
	renderer Renderer,
	invoices AttachmentGenerator,
	trans Transport,
	log *logger.Logger,
) *Mailer {
	return &Mailer{
		orders:   orders,
		users:    users,
		settings: settings,
		renderer: renderer,
		invoices: invoices,
		trans:    trans,
		logger:   log,
	}
}

func (m *Mailer) orderData(ctx context.Context, event *EmailEvent) (*model.Order, *TemplateData, error) {
	id, err := uuid.Parse(event.OrderID)
	if err != nil {
		return nil, nil, apperrors.Permanent("invalid order id", err)
	}

	order, err := m.orders.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	settings, err := m.settings.Get(ctx)
	if err != nil {
		return nil, nil, err
	}

	return order, &TemplateData{
		StoreName:  settings.StoreName,
		FooterText: settings.FooterText,
		BaseURL:    settings.BaseURL,
		Order:      order,
		Event:      event,
		Total:      FormatCents(order.TotalCents, order.Currency),
		OrderLink:  fmt.Sprintf("%s/orders/%s", settings.BaseURL, order.Number),
	}, nil
}

func (m *Mailer) send(ctx context.Context, event *EmailEvent, to, replyTo string, data *TemplateData, attachments ...Attachment) (string, error) {
	rendered, err := m.renderer.Render(event.Type, event.Locale, data)
	if err != nil {
		return "", err
	}

	result, err := m.trans.Send(ctx, SendRequest{
		To:          to,
		ReplyTo:     replyTo,
		Subject:     rendered.Subject,
		HTML:        rendered.HTML,
		Attachments: attachments,
	})
	if err != nil {
		return "", err
	}

	m.logger.Debug("email handed to transport",
		"event_type", string(event.Type),
		"to", to,
		"transport_message_id", result.MessageID)
	return result.MessageID, nil
}

func (m *Mailer) recipient(event *EmailEvent, order *model.Order) string {
	if event.Email != "" {
		return event.Email
	}
	return order.Email
}

func (m *Mailer) SendOrderConfirmation(ctx context.Context, event *EmailEvent) (string, error) {
	order, data, err := m.orderData(ctx, event)
	if err != nil {
		return "", err
	}

	settings, err := m.settings.Get(ctx)
	if err != nil {
		return "", err
	}

	invoice, err := m.invoices.InvoicePDF(ctx, order, settings)
	if err != nil {
		return "", fmt.Errorf("failed to generate invoice: %w", err)
	}

	return m.send(ctx, event, m.recipient(event, order), "", data, invoice)
}

func (m *Mailer) SendAdminOrderNotice(ctx context.Context, event *EmailEvent) (string, error) {
	_, data, err := m.orderData(ctx, event)
	if err != nil {
		return "", err
	}

	settings, err := m.settings.Get(ctx)
	if err != nil {
		return "", err
	}

	return m.send(ctx, event, settings.AdminEmail, "", data)
}

func (m *Mailer) SendShippingNotice(ctx context.Context, event *EmailEvent) (string, error) {
	order, data, err := m.orderData(ctx, event)
	if err != nil {
		return "", err
	}
	return m.send(ctx, event, m.recipient(event, order), "", data)
}

func (m *Mailer) SendOrderStatusUpdate(ctx context.Context, event *EmailEvent) (string, error) {
	order, data, err := m.orderData(ctx, event)
	if err != nil {
		return "", err
	}
	return m.send(ctx, event, m.recipient(event, order), "", data)
}

func (m *Mailer) SendOrderCancellation(ctx context.Context, event *EmailEvent) (string, error) {
	order, data, err := m.orderData(ctx, event)
	if err != nil {
		return "", err
	}
	return m.send(ctx, event, m.recipient(event, order), "", data)
}

func (m *Mailer) SendAdminCancellationNotice(ctx context.Context, event *EmailEvent) (string, error) {
	_, data, err := m.orderData(ctx, event)
	if err != nil {
		return "", err
	}

	settings, err := m.settings.Get(ctx)
	if err != nil {
		return "", err
	}

	return m.send(ctx, event, settings.AdminEmail, "", data)
}

func (m *Mailer) SendPaymentStatusUpdate(ctx context.Context, event *EmailEvent) (string, error) {
	order, data, err := m.orderData(ctx, event)
	if err != nil {
		return "", err
	}
	return m.send(ctx, event, m.recipient(event, order), "", data)
}

func (m *Mailer) userData(ctx context.Context, event *EmailEvent) (*model.User, *TemplateData, error) {
	id, err := uuid.Parse(event.UserID)
	if err != nil {
		return nil, nil, apperrors.Permanent("invalid user id", err)
	}

	user, err := m.users.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	settings, err := m.settings.Get(ctx)
	if err != nil {
		return nil, nil, err
	}

	return user, &TemplateData{
		StoreName:  settings.StoreName,
		FooterText: settings.FooterText,
		BaseURL:    settings.BaseURL,
		User:       user,
		Event:      event,
	}, nil
}

func (m *Mailer) SendWelcome(ctx context.Context, event *EmailEvent) (string, error) {
	user, data, err := m.userData(ctx, event)
	if err != nil {
		return "", err
	}
	return m.send(ctx, event, user.Email, "", data)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, event *EmailEvent) (string, error) {
	user, data, err := m.userData(ctx, event)
	if err != nil {
		return "", err
	}
	data.ResetLink = fmt.Sprintf("%s/password-reset?token=%s", data.BaseURL, event.Token)
	return m.send(ctx, event, user.Email, "", data)
}

func (m *Mailer) SendContactForm(ctx context.Context, event *EmailEvent) (string, error) {
	settings, err := m.settings.Get(ctx)
	if err != nil {
		return "", err
	}

	data := &TemplateData{
		StoreName:  settings.StoreName,
		FooterText: settings.FooterText,
		BaseURL:    settings.BaseURL,
		Event:      event,
	}
	return m.send(ctx, event, settings.SupportEmail, event.Email, data)
}
