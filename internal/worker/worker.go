package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/skartik/commerce-api/internal/mailer"
	"github.com/skartik/commerce-api/pkg/logger"
	"github.com/skartik/commerce-api/pkg/metrics"
	"github.com/skartik/commerce-api/pkg/queue"
)

// Status is the coarse worker state reported to monitoring.
type Status string

const (
	StatusNotInitialized Status = "not_initialized"
	StatusHealthy        Status = "healthy"
	StatusStopped        Status = "stopped"
	StatusShuttingDown   Status = "shutting_down"
	StatusError          Status = "error"
)

// Config tunes one worker process.
type Config struct {
	Concurrency          int
	RatePerSecond        float64
	RateBurst            int
	VisibilityTimeout    time.Duration
	PollInterval         time.Duration
	DeliveryTrackingTTL  time.Duration
	DrainTimeout         time.Duration
	MaxReconnectAttempts int
	HealthCheckInterval  time.Duration
}

// Health is the operator-visible worker snapshot.
type Health struct {
	Status           Status                 `json:"status"`
	Running          bool                   `json:"running"`
	BrokerConnected  bool                   `json:"broker_connected"`
	Concurrency      int                    `json:"concurrency"`
	InFlight         int                    `json:"in_flight"`
	Resilience       queue.ResilienceStatus `json:"resilience"`
	DeliveryTracking TrackingStatus         `json:"delivery_tracking"`
}

// Worker is the explicit per-process context tying the email delivery
// pipeline together: queue consumer, event processor, dedup tracker,
// in-flight guard, connection resilience and shutdown coordination. All
// mutable state lives here so tests can build independent instances.
type Worker struct {
	queue       *queue.Queue
	consumer    *queue.Consumer
	processor   *Processor
	tracker     *DeliveryTracker
	guard       *InFlightGuard
	resilience  *queue.ResilienceManager
	coordinator *Coordinator
	metrics     *metrics.Metrics
	logger      *logger.Logger
	cfg         Config

	running atomic.Bool
	stopped atomic.Bool
}

func New(q *queue.Queue, sender EmailSender, cfg Config, m *metrics.Metrics, log *logger.Logger) *Worker {
	tracker := NewDeliveryTracker(cfg.DeliveryTrackingTTL)
	guard := NewInFlightGuard()
	deadLetter := NewDeadLetterLogger(log, JobRetryBackoff)

	processor := NewProcessor(sender, tracker, guard, deadLetter, JobRetryBackoff, m, log)

	consumer := queue.NewConsumer(q, queue.ConsumerConfig{
		Concurrency:       cfg.Concurrency,
		RatePerSecond:     cfg.RatePerSecond,
		RateBurst:         cfg.RateBurst,
		VisibilityTimeout: cfg.VisibilityTimeout,
		PollInterval:      cfg.PollInterval,
		RetryDelay:        JobRetryBackoff.Delay,
	}, processor.Handle, log)

	resilience := queue.NewResilienceManager(q, queue.ResilienceConfig{
		CheckInterval:        cfg.HealthCheckInterval,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		Backoff:              ReconnectBackoff.Delay,
		OnReconnectAttempt:   m.BrokerReconnects.Inc,
	}, log)

	coordinator := NewCoordinator(processor, consumer, guard, resilience, q, ShutdownConfig{
		DrainTimeout: cfg.DrainTimeout,
	}, log)

	w := &Worker{
		queue:       q,
		consumer:    consumer,
		processor:   processor,
		tracker:     tracker,
		guard:       guard,
		resilience:  resilience,
		coordinator: coordinator,
		metrics:     m,
		logger:      log,
		cfg:         cfg,
	}
	consumer.OnEvent(w.onQueueEvent)
	return w
}

// Start launches the consumer, the connection supervisor and the queue
// depth gauge loop.
func (w *Worker) Start(ctx context.Context) {
	w.consumer.Start(ctx)
	go w.resilience.Start(ctx)
	go w.depthLoop(ctx)
	w.running.Store(true)
	w.logger.Info("email worker started", "concurrency", w.cfg.Concurrency)
}

// Shutdown runs the coordinated termination sequence. Safe to call more
// than once.
func (w *Worker) Shutdown(ctx context.Context) bool {
	w.running.Store(false)
	w.stopped.Store(true)
	return w.coordinator.Shutdown(ctx)
}

func (w *Worker) onQueueEvent(e queue.Event) {
	switch e.Name {
	case queue.EventError:
		w.logger.Error(e.Err, "queue error", "job_id", e.JobID)
	case queue.EventStalled:
		w.logger.Warn("job stalled and re-delivered", "job_id", e.JobID)
	case queue.EventFailed:
		w.logger.Error(e.Err, "job finalized as failed",
			"lifecycle", "failed",
			"job_id", e.JobID)
	case queue.EventDrained:
		w.logger.Info("queue drained")
	case queue.EventPaused, queue.EventResumed:
		w.logger.Info("consumer state changed", "state", string(e.Name))
	}
}

func (w *Worker) depthLoop(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		pending, delayed, active, dead, err := w.queue.Depth(ctx)
		if err != nil {
			continue
		}
		w.metrics.QueueDepth.WithLabelValues("pending").Set(float64(pending))
		w.metrics.QueueDepth.WithLabelValues("delayed").Set(float64(delayed))
		w.metrics.QueueDepth.WithLabelValues("active").Set(float64(active))
		w.metrics.QueueDepth.WithLabelValues("dead").Set(float64(dead))
	}
}

// GetHealth reports the worker status snapshot.
func (w *Worker) GetHealth() Health {
	res := w.resilience.Status()

	status := StatusNotInitialized
	switch {
	case w.processor.Draining():
		status = StatusShuttingDown
	case w.stopped.Load():
		status = StatusStopped
	case w.running.Load() && res.Exhausted:
		status = StatusError
	case w.running.Load():
		status = StatusHealthy
	}

	return Health{
		Status:           status,
		Running:          w.running.Load(),
		BrokerConnected:  res.Connected,
		Concurrency:      w.cfg.Concurrency,
		InFlight:         w.guard.Size(),
		Resilience:       res,
		DeliveryTracking: w.tracker.Status(),
	}
}

// GetResilienceStatus exposes the broker-link supervision snapshot.
func (w *Worker) GetResilienceStatus() queue.ResilienceStatus {
	return w.resilience.Status()
}

// TriggerReconnection is the operator-initiated broker recovery path. The
// reconnect counter is fed by the resilience manager, which sees manual and
// automatic attempts alike.
func (w *Worker) TriggerReconnection(ctx context.Context) error {
	return w.resilience.TriggerReconnection(ctx)
}

// GetDeliveryTrackingStatus exposes the dedup tracker snapshot.
func (w *Worker) GetDeliveryTrackingStatus() TrackingStatus {
	return w.tracker.Status()
}

// VerifyEmailDelivery reports whether an equivalent event was delivered
// within the tracking window.
func (w *Worker) VerifyEmailDelivery(event *mailer.EmailEvent) (DeliveryRecord, bool) {
	return w.tracker.Lookup(event.DeliveryKey())
}
