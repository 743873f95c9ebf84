package mailer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skartik/commerce-api/internal/model"
	apperrors "github.com/skartik/commerce-api/pkg/errors"
)

func confirmationData() *TemplateData {
	return &TemplateData{
		StoreName:  "Acme Shop",
		FooterText: "Acme Shop GmbH",
		BaseURL:    "https://shop.example.com",
		Order: &model.Order{
			Number:     "ORD-20260825-ABCD1234",
			Name:       "Ada",
			Email:      "ada@example.com",
			TotalCents: 4250,
			Currency:   "EUR",
		},
		Event:     &EmailEvent{Type: EventOrderConfirmation},
		Total:     FormatCents(4250, "EUR"),
		OrderLink: "https://shop.example.com/orders/ORD-20260825-ABCD1234",
	}
}

func TestRenderOrderConfirmationEnglish(t *testing.T) {
	r := NewTemplateRenderer()
	out, err := r.Render(EventOrderConfirmation, LocaleEN, confirmationData())
	require.NoError(t, err)

	assert.Contains(t, out.Subject, "ORD-20260825-ABCD1234")
	assert.Contains(t, out.HTML, "42.50 EUR")
	assert.Contains(t, out.HTML, "Acme Shop GmbH")
}

func TestRenderOrderConfirmationGerman(t *testing.T) {
	r := NewTemplateRenderer()
	out, err := r.Render(EventOrderConfirmation, LocaleDE, confirmationData())
	require.NoError(t, err)
	assert.Contains(t, out.Subject, "Bestellung")
}

func TestRenderFallsBackToEnglish(t *testing.T) {
	r := NewTemplateRenderer()
	// No French admin notice translation exists.
	out, err := r.Render(EventAdminOrderNotice, LocaleFR, confirmationData())
	require.NoError(t, err)
	assert.Contains(t, out.Subject, "New order")
}

func TestRenderEveryTypeHasEnglishTemplate(t *testing.T) {
	r := NewTemplateRenderer()
	data := &TemplateData{
		StoreName:  "Acme Shop",
		FooterText: "footer",
		BaseURL:    "https://shop.example.com",
		Order:      &model.Order{Number: "ORD-1", Name: "Ada", Email: "ada@example.com"},
		User:       &model.User{Name: "Ada", Email: "ada@example.com"},
		Event: &EmailEvent{
			Timestamp: time.Now(),
			Subject:   "question",
			Message:   "hello",
			NewStatus: "shipped",
		},
		Total:     "10.00 EUR",
		ResetLink: "https://shop.example.com/password-reset?token=x",
		OrderLink: "https://shop.example.com/orders/ORD-1",
	}

	for _, typ := range EventTypes {
		out, err := r.Render(typ, LocaleEN, data)
		require.NoError(t, err, string(typ))
		assert.NotEmpty(t, out.Subject, string(typ))
		assert.NotEmpty(t, out.HTML, string(typ))
	}
}

func TestRenderUnknownTypeIsPermanent(t *testing.T) {
	r := NewTemplateRenderer()
	_, err := r.Render("newsletter", LocaleEN, confirmationData())
	require.Error(t, err)
	assert.True(t, apperrors.IsPermanent(err))
}

func TestRenderEscapesHTMLInput(t *testing.T) {
	r := NewTemplateRenderer()
	data := confirmationData()
	data.Order.Name = `<script>alert("x")</script>`

	out, err := r.Render(EventOrderConfirmation, LocaleEN, data)
	require.NoError(t, err)
	assert.NotContains(t, out.HTML, "<script>")
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "42.50 EUR", FormatCents(4250, "EUR"))
	assert.Equal(t, "0.05 USD", FormatCents(5, "USD"))
	assert.Equal(t, "100.00 EUR", FormatCents(10000, "EUR"))
}

func TestRenderedSubjectIsSingleLine(t *testing.T) {
	r := NewTemplateRenderer()
	for _, typ := range EventTypes {
		out, err := r.Render(typ, LocaleEN, confirmationDataForType(typ))
		require.NoError(t, err, string(typ))
		assert.False(t, strings.Contains(out.Subject, "\n"), string(typ))
	}
}

func confirmationDataForType(typ EventType) *TemplateData {
	data := confirmationData()
	data.User = &model.User{Name: "Ada", Email: "ada@example.com"}
	data.Event = &EmailEvent{
		Type:      typ,
		Timestamp: time.Now(),
		Subject:   "question",
		Message:   "hello",
		NewStatus: "shipped",
	}
	data.ResetLink = "https://shop.example.com/password-reset?token=x"
	return data
}
