package mailer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skartik/commerce-api/internal/model"
)

func TestInvoicePDFStructure(t *testing.T) {
	order := &model.Order{
		Number:     "ORD-20260825-ABCD1234",
		Name:       "Ada",
		Email:      "ada@example.com",
		TotalCents: 4250,
		Currency:   "EUR",
		Items: []model.OrderItem{
			{Name: "Widget", Quantity: 2, UnitCents: 1500},
			{Name: "Gadget", Quantity: 1, UnitCents: 1250},
		},
	}
	settings := &model.StoreSettings{StoreName: "Acme Shop"}

	att, err := NewInvoiceGenerator().InvoicePDF(context.Background(), order, settings)
	require.NoError(t, err)

	assert.Equal(t, "invoice-ORD-20260825-ABCD1234.pdf", att.Filename)
	assert.Equal(t, "application/pdf", att.ContentType)

	doc := string(att.Data)
	assert.True(t, strings.HasPrefix(doc, "%PDF-1.4"))
	assert.Contains(t, doc, "xref")
	assert.True(t, strings.HasSuffix(doc, "%%EOF\n"))
	assert.Contains(t, doc, "ORD-20260825-ABCD1234")
	assert.Contains(t, doc, "42.50 EUR")
}

func TestInvoicePDFHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewInvoiceGenerator().InvoicePDF(ctx, &model.Order{}, &model.StoreSettings{})
	assert.Error(t, err)
}

func TestEscapePDFText(t *testing.T) {
	assert.Equal(t, `\(x\)`, escapePDFText("(x)"))
	assert.Equal(t, `a\\b`, escapePDFText(`a\b`))
	// Non-ASCII runes are dropped rather than corrupting the stream.
	assert.Equal(t, "Mller", escapePDFText("Müller"))
}
