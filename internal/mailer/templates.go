package mailer

import (
	"fmt"

	"github.com/skartik/commerce-api/internal/model"
)

// TemplateData is the rendering context shared by all email templates.
type TemplateData struct {
	StoreName  string
	FooterText string
	BaseURL    string

	Order *model.Order
	User  *model.User
	Event *EmailEvent

	Total     string
	ResetLink string
	OrderLink string
}

// FormatCents renders a money amount like "42.50 EUR".
func FormatCents(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}

const footer = `<p style="color:#888;font-size:12px">{{.FooterText}}</p>`

var defaultTemplates = map[EventType]map[Locale]templateSet{
	EventOrderConfirmation: {
		LocaleEN: {
			subject: `{{.StoreName}}: order {{.Order.Number}} confirmed`,
			body: `<h1>Thank you for your order, {{.Order.Name}}!</h1>
<p>We received your order <b>{{.Order.Number}}</b> over {{.Total}}.</p>
<p>You can follow its progress at <a href="{{.OrderLink}}">{{.OrderLink}}</a>.</p>
<p>Your invoice is attached.</p>` + footer,
		},
		LocaleDE: {
			subject: `{{.StoreName}}: Bestellung {{.Order.Number}} bestätigt`,
			body: `<h1>Vielen Dank für Ihre Bestellung, {{.Order.Name}}!</h1>
<p>Wir haben Ihre Bestellung <b>{{.Order.Number}}</b> über {{.Total}} erhalten.</p>
<p>Den Status finden Sie unter <a href="{{.OrderLink}}">{{.OrderLink}}</a>.</p>
<p>Ihre Rechnung finden Sie im Anhang.</p>` + footer,
		},
	},
	EventOrderConfirmationResend: {
		LocaleEN: {
			subject: `{{.StoreName}}: your order confirmation for {{.Order.Number}}`,
			body: `<h1>Your order confirmation</h1>
<p>As requested, here is the confirmation for order <b>{{.Order.Number}}</b> ({{.Total}}) again.</p>
<p>Your invoice is attached.</p>` + footer,
		},
	},
	EventAdminOrderNotice: {
		LocaleEN: {
			subject: `New order {{.Order.Number}} ({{.Total}})`,
			body: `<h1>New order received</h1>
<p>Order <b>{{.Order.Number}}</b> from {{.Order.Name}} &lt;{{.Order.Email}}&gt; over {{.Total}}.</p>
<p><a href="{{.OrderLink}}">Open in admin</a></p>`,
		},
	},
	EventShippingNotice: {
		LocaleEN: {
			subject: `{{.StoreName}}: order {{.Order.Number}} has shipped`,
			body: `<h1>Your order is on its way</h1>
<p>Order <b>{{.Order.Number}}</b> was handed to {{.Order.Carrier}}.</p>
<p>Tracking number: <b>{{.Order.TrackingNumber}}</b></p>` + footer,
		},
		LocaleDE: {
			subject: `{{.StoreName}}: Bestellung {{.Order.Number}} wurde versandt`,
			body: `<h1>Ihre Bestellung ist unterwegs</h1>
<p>Bestellung <b>{{.Order.Number}}</b> wurde an {{.Order.Carrier}} übergeben.</p>
<p>Sendungsnummer: <b>{{.Order.TrackingNumber}}</b></p>` + footer,
		},
	},
	EventOrderStatusUpdate: {
		LocaleEN: {
			subject: `{{.StoreName}}: order {{.Order.Number}} is now {{.Event.NewStatus}}`,
			body: `<h1>Order status update</h1>
<p>Your order <b>{{.Order.Number}}</b> changed from {{.Event.OldStatus}} to <b>{{.Event.NewStatus}}</b>.</p>` + footer,
		},
	},
	EventOrderCancellation: {
		LocaleEN: {
			subject: `{{.StoreName}}: order {{.Order.Number}} cancelled`,
			body: `<h1>Your order was cancelled</h1>
<p>Order <b>{{.Order.Number}}</b> over {{.Total}} has been cancelled.</p>
<p>Already paid amounts will be refunded.</p>` + footer,
		},
	},
	EventAdminCancellationNotice: {
		LocaleEN: {
			subject: `Order {{.Order.Number}} cancelled`,
			body: `<h1>Order cancelled</h1>
<p>Order <b>{{.Order.Number}}</b> from {{.Order.Name}} was cancelled.</p>
<p><a href="{{.OrderLink}}">Open in admin</a></p>`,
		},
	},
	EventPaymentStatusUpdate: {
		LocaleEN: {
			subject: `{{.StoreName}}: payment update for order {{.Order.Number}}`,
			body: `<h1>Payment status update</h1>
<p>The payment for order <b>{{.Order.Number}}</b> is now <b>{{.Event.PaymentStatus}}</b>.</p>` + footer,
		},
	},
	EventWelcome: {
		LocaleEN: {
			subject: `Welcome to {{.StoreName}}!`,
			body: `<h1>Welcome, {{.User.Name}}!</h1>
<p>Your account at {{.StoreName}} is ready.</p>
<p>Start browsing at <a href="{{.BaseURL}}">{{.BaseURL}}</a>.</p>` + footer,
		},
		LocaleDE: {
			subject: `Willkommen bei {{.StoreName}}!`,
			body: `<h1>Willkommen, {{.User.Name}}!</h1>
<p>Ihr Konto bei {{.StoreName}} ist eingerichtet.</p>
<p>Stöbern Sie los: <a href="{{.BaseURL}}">{{.BaseURL}}</a>.</p>` + footer,
		},
	},
	EventPasswordReset: {
		LocaleEN: {
			subject: `{{.StoreName}}: reset your password`,
			body: `<h1>Password reset requested</h1>
<p>Click the link below to choose a new password. The link expires in one hour.</p>
<p><a href="{{.ResetLink}}">{{.ResetLink}}</a></p>
<p>If you did not request this, you can ignore this email.</p>` + footer,
		},
	},
	EventContactForm: {
		LocaleEN: {
			subject: `Contact form: {{.Event.Subject}}`,
			body: `<h1>New contact form submission</h1>
<p>From: {{.Event.Name}} &lt;{{.Event.Email}}&gt;</p>
<p>{{.Event.Message}}</p>`,
		},
	},
}
