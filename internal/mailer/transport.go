package mailer

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	gomail "gopkg.in/gomail.v2"

	"github.com/skartik/commerce-api/pkg/circuitbreaker"
	"github.com/skartik/commerce-api/pkg/metrics"
)

// Attachment is a file bundled with an outgoing email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SendRequest describes one outgoing email.
type SendRequest struct {
	To          string
	ReplyTo     string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// SendResult carries the transport message id assigned to a delivered email.
type SendResult struct {
	MessageID string
}

// Transport delivers rendered emails. Implementations own their own
// timeouts; callers classify any returned error.
type Transport interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// SMTPConfig holds mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// smtpTransport sends through an SMTP relay via gomail, guarded by a
// circuit breaker so a failing relay is not hammered by concurrent workers.
type smtpTransport struct {
	dialer  *gomail.Dialer
	from    string
	breaker *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
}

func NewSMTPTransport(cfg SMTPConfig, m *metrics.Metrics) Transport {
	return &smtpTransport{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "smtp",
			MaxFailures: 5,
		}),
		metrics: m,
	}
}

func (t *smtpTransport) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if err := ctx.Err(); err != nil {
		return SendResult{}, err
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), t.dialer.Host)

	m := gomail.NewMessage()
	m.SetHeader("From", t.from)
	m.SetHeader("To", req.To)
	m.SetHeader("Subject", req.Subject)
	m.SetHeader("Message-ID", messageID)
	if req.ReplyTo != "" {
		m.SetHeader("Reply-To", req.ReplyTo)
	}
	m.SetBody("text/html", req.HTML)

	for _, att := range req.Attachments {
		data := att.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if att.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {att.ContentType},
			}))
		}
		m.Attach(att.Filename, settings...)
	}

	err := t.breaker.Execute(func() error {
		return t.dialer.DialAndSend(m)
	})
	if err != nil {
		t.metrics.TransportSends.WithLabelValues("error").Inc()
		return SendResult{}, fmt.Errorf("smtp send failed: %w", err)
	}

	t.metrics.TransportSends.WithLabelValues("success").Inc()
	return SendResult{MessageID: messageID}, nil
}
