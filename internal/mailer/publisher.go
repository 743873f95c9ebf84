package mailer

import (
	"context"
	"time"

	"github.com/skartik/commerce-api/pkg/logger"
)

// Enqueuer is the slice of the job queue the publisher needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload interface{}) (string, error)
}

// Publisher hands email events to the delivery queue. Publishing is
// fire-and-forget from the caller's perspective: an enqueue failure is
// logged but never fails the business operation that triggered it.
type Publisher struct {
	queue  Enqueuer
	logger *logger.Logger
}

func NewPublisher(q Enqueuer, log *logger.Logger) *Publisher {
	return &Publisher{queue: q, logger: log}
}

// Publish validates the event and enqueues it for asynchronous delivery.
func (p *Publisher) Publish(ctx context.Context, event *EmailEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Locale == "" {
		event.Locale = LocaleEN
	}

	if err := event.Validate(); err != nil {
		p.logger.Error(err, "refusing to enqueue invalid email event",
			"event_type", string(event.Type))
		return
	}

	jobID, err := p.queue.Enqueue(ctx, event)
	if err != nil {
		p.logger.Error(err, "failed to enqueue email event",
			"event_type", string(event.Type),
			"delivery_key", event.DeliveryKey())
		return
	}

	p.logger.Info("email event enqueued",
		"job_id", jobID,
		"event_type", string(event.Type),
		"delivery_key", event.DeliveryKey())
}
