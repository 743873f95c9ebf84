package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/skartik/commerce-api/internal/mailer"
	apperrors "github.com/skartik/commerce-api/pkg/errors"
	"github.com/skartik/commerce-api/pkg/logger"
	"github.com/skartik/commerce-api/pkg/metrics"
	"github.com/skartik/commerce-api/pkg/queue"
)

// EmailSender is the closed set of send routines, one per event type. Each
// routine fetches its supporting data, renders content and invokes the mail
// transport, returning the transport message id. Routines never decide
// retry-vs-permanent themselves; every failure propagates to the processor.
type EmailSender interface {
	SendOrderConfirmation(ctx context.Context, event *mailer.EmailEvent) (string, error)
	SendAdminOrderNotice(ctx context.Context, event *mailer.EmailEvent) (string, error)
	SendShippingNotice(ctx context.Context, event *mailer.EmailEvent) (string, error)
	SendOrderStatusUpdate(ctx context.Context, event *mailer.EmailEvent) (string, error)
	SendOrderCancellation(ctx context.Context, event *mailer.EmailEvent) (string, error)
	SendAdminCancellationNotice(ctx context.Context, event *mailer.EmailEvent) (string, error)
	SendPaymentStatusUpdate(ctx context.Context, event *mailer.EmailEvent) (string, error)
	SendWelcome(ctx context.Context, event *mailer.EmailEvent) (string, error)
	SendPasswordReset(ctx context.Context, event *mailer.EmailEvent) (string, error)
	SendContactForm(ctx context.Context, event *mailer.EmailEvent) (string, error)
}

// Processor is the per-job state machine:
//
//	received → (duplicate? skip) → (already delivered? skip) → in-flight
//	         → dispatch(type) → {success | classify-error}
//
// It is the sole decision point for retry-vs-permanent branching; the queue
// layer translates the returned error (nil / transient / Permanent-tagged)
// into ack, delayed retry or dead-letter.
type Processor struct {
	sender       EmailSender
	tracker      *DeliveryTracker
	guard        *InFlightGuard
	deadLetter   *DeadLetterLogger
	retryBackoff Backoff
	metrics      *metrics.Metrics
	logger       *logger.Logger

	draining atomic.Bool
}

func NewProcessor(
	sender EmailSender,
	tracker *DeliveryTracker,
	guard *InFlightGuard,
	deadLetter *DeadLetterLogger,
	retryBackoff Backoff,
	m *metrics.Metrics,
	log *logger.Logger,
) *Processor {
	return &Processor{
		sender:       sender,
		tracker:      tracker,
		guard:        guard,
		deadLetter:   deadLetter,
		retryBackoff: retryBackoff,
		metrics:      m,
		logger:       log,
	}
}

// StopIntake makes the processor reject new jobs with a transient error so
// the broker re-delivers them after restart. Called by the shutdown
// coordinator before draining.
func (p *Processor) StopIntake() {
	p.draining.Store(true)
}

// Draining reports whether intake has been stopped.
func (p *Processor) Draining() bool {
	return p.draining.Load()
}

// Handle implements queue.Handler.
func (p *Processor) Handle(ctx context.Context, job *queue.Job) error {
	if p.draining.Load() {
		// Deliberately transient: the job must come back once a worker
		// is accepting again.
		return fmt.Errorf("worker shutting down, job deferred")
	}

	var event mailer.EmailEvent
	if err := json.Unmarshal(job.Payload, &event); err != nil {
		p.logger.Error(err, "undecodable job payload", "job_id", job.ID)
		return apperrors.Permanent("undecodable payload", err)
	}

	if err := event.Validate(); err != nil {
		cls := Classify(err)
		p.deadLetter.Record(job, &event, err, cls, true)
		p.metrics.EmailsDeadLetter.WithLabelValues(string(event.Type)).Inc()
		return err
	}

	if !p.guard.TryEnter(job.ID) {
		// Same job re-delivered while a previous execution is still
		// running. Skip without side effects.
		p.logger.Warn("duplicate dispatch skipped",
			"job_id", job.ID,
			"event_type", string(event.Type))
		return nil
	}
	defer p.guard.Leave(job.ID)

	p.metrics.InFlightJobs.Inc()
	defer p.metrics.InFlightJobs.Dec()

	key := event.DeliveryKey()
	if p.tracker.HasBeenDelivered(key) {
		p.logger.Info("duplicate delivery suppressed",
			"job_id", job.ID,
			"event_type", string(event.Type),
			"delivery_key", key)
		p.metrics.EmailsDeduplicated.WithLabelValues(string(event.Type)).Inc()
		return nil
	}

	p.logger.Info("processing email job",
		"lifecycle", "processing",
		"job_id", job.ID,
		"event_type", string(event.Type),
		"locale", string(event.Locale),
		"attempt", job.AttemptsMade)

	start := time.Now()
	messageID, err := p.dispatch(ctx, &event)
	elapsed := time.Since(start)

	p.metrics.ProcessingLatency.WithLabelValues(string(event.Type)).Observe(elapsed.Seconds())

	if err == nil {
		p.tracker.MarkDelivered(key, messageID)
		p.metrics.EmailsDelivered.WithLabelValues(string(event.Type)).Inc()
		p.logger.Info("email delivered",
			"lifecycle", "completed",
			"job_id", job.ID,
			"event_type", string(event.Type),
			"transport_message_id", messageID,
			"attempt", job.AttemptsMade,
			"processing_ms", elapsed.Milliseconds())
		return nil
	}

	return p.handleFailure(job, &event, err)
}

// dispatch routes the event to its send routine. The default branch can
// only fire if a new event type is added without a handler; Validate has
// already established the type is known.
func (p *Processor) dispatch(ctx context.Context, event *mailer.EmailEvent) (string, error) {
	switch event.Type {
	case mailer.EventOrderConfirmation, mailer.EventOrderConfirmationResend:
		// The resend shares the confirmation routine; the event type
		// selects the template.
		return p.sender.SendOrderConfirmation(ctx, event)
	case mailer.EventAdminOrderNotice:
		return p.sender.SendAdminOrderNotice(ctx, event)
	case mailer.EventShippingNotice:
		return p.sender.SendShippingNotice(ctx, event)
	case mailer.EventOrderStatusUpdate:
		return p.sender.SendOrderStatusUpdate(ctx, event)
	case mailer.EventOrderCancellation:
		return p.sender.SendOrderCancellation(ctx, event)
	case mailer.EventAdminCancellationNotice:
		return p.sender.SendAdminCancellationNotice(ctx, event)
	case mailer.EventPaymentStatusUpdate:
		return p.sender.SendPaymentStatusUpdate(ctx, event)
	case mailer.EventWelcome:
		return p.sender.SendWelcome(ctx, event)
	case mailer.EventPasswordReset:
		return p.sender.SendPasswordReset(ctx, event)
	case mailer.EventContactForm:
		return p.sender.SendContactForm(ctx, event)
	default:
		return "", apperrors.Permanent("no send routine for event type", fmt.Errorf("type %q", event.Type))
	}
}

func (p *Processor) handleFailure(job *queue.Job, event *mailer.EmailEvent, cause error) error {
	cls := Classify(cause)

	if !cls.Retryable {
		p.deadLetter.Record(job, event, cause, cls, true)
		p.metrics.EmailsDeadLetter.WithLabelValues(string(event.Type)).Inc()
		p.metrics.EmailsFailed.WithLabelValues(string(event.Type)).Inc()
		// Tag so the queue stops re-delivering.
		return apperrors.Permanent(string(cls.Category), cause)
	}

	if job.AttemptsRemaining() == 0 {
		// Transient but out of attempts: dead-letter for diagnostics and
		// let the queue's own max-attempts enforcement finalize it.
		p.deadLetter.Record(job, event, cause, cls, false)
		p.metrics.EmailsDeadLetter.WithLabelValues(string(event.Type)).Inc()
		p.metrics.EmailsFailed.WithLabelValues(string(event.Type)).Inc()
		return cause
	}

	nextDelay := p.retryBackoff.Delay(job.AttemptsMade)
	p.metrics.EmailsRetried.WithLabelValues(string(event.Type)).Inc()
	p.logger.Warn("email delivery failed, retry scheduled",
		"lifecycle", "retry",
		"job_id", job.ID,
		"event_type", string(event.Type),
		"category", string(cls.Category),
		"attempt", job.AttemptsMade,
		"remaining_attempts", job.AttemptsRemaining(),
		"next_retry_delay_ms", nextDelay.Milliseconds(),
		"error", cause.Error())
	return cause
}
