package mailer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/skartik/commerce-api/internal/model"
)

// AttachmentGenerator produces the invoice bundled with order confirmation
// emails.
type AttachmentGenerator interface {
	InvoicePDF(ctx context.Context, order *model.Order, settings *model.StoreSettings) (Attachment, error)
}

// invoiceGenerator writes a minimal single-page PDF with the invoice lines
// as text. Good enough for transactional mail; a proper layout engine can
// replace it behind the same interface.
type invoiceGenerator struct{}

func NewInvoiceGenerator() AttachmentGenerator {
	return &invoiceGenerator{}
}

func (g *invoiceGenerator) InvoicePDF(ctx context.Context, order *model.Order, settings *model.StoreSettings) (Attachment, error) {
	if err := ctx.Err(); err != nil {
		return Attachment{}, err
	}

	lines := []string{
		fmt.Sprintf("%s - Invoice", settings.StoreName),
		fmt.Sprintf("Order %s", order.Number),
		fmt.Sprintf("Billed to: %s <%s>", order.Name, order.Email),
		"",
	}
	for _, item := range order.Items {
		lines = append(lines, fmt.Sprintf("%dx %s  %s",
			item.Quantity, item.Name, FormatCents(item.UnitCents*int64(item.Quantity), order.Currency)))
	}
	lines = append(lines, "", fmt.Sprintf("Total: %s", FormatCents(order.TotalCents, order.Currency)))

	return Attachment{
		Filename:    fmt.Sprintf("invoice-%s.pdf", order.Number),
		ContentType: "application/pdf",
		Data:        renderPDF(lines),
	}, nil
}

// renderPDF emits a minimal but valid one-page PDF document containing the
// given text lines.
func renderPDF(lines []string) []byte {
	var content bytes.Buffer
	content.WriteString("BT /F1 11 Tf 50 780 Td 14 TL\n")
	for _, line := range lines {
		fmt.Fprintf(&content, "(%s) Tj T*\n", escapePDFText(line))
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefStart)

	return buf.Bytes()
}

func escapePDFText(s string) string {
	var out bytes.Buffer
	for _, r := range s {
		switch r {
		case '(', ')', '\\':
			out.WriteByte('\\')
			out.WriteRune(r)
		default:
			if r < 128 {
				out.WriteRune(r)
			}
		}
	}
	return out.String()
}
