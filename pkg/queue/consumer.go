package queue

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/skartik/commerce-api/pkg/errors"
	"github.com/skartik/commerce-api/pkg/logger"
)

// Handler processes one job delivery. Returning nil acknowledges the job.
// Returning an error tagged with errors.Permanent dead-letters it; any other
// error schedules a retry until MaxAttempts is exhausted.
type Handler func(ctx context.Context, job *Job) error

// ConsumerConfig tunes the consumer loop.
type ConsumerConfig struct {
	Concurrency       int
	RatePerSecond     float64
	RateBurst         int
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	// RetryDelay maps the attempt number just made (1-based) to the wait
	// before re-delivery.
	RetryDelay func(attempt int) time.Duration
}

func (c *ConsumerConfig) defaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = 10
	}
	if c.RateBurst <= 0 {
		c.RateBurst = c.Concurrency
	}
	if c.VisibilityTimeout <= 0 {
		c.VisibilityTimeout = 2 * time.Minute
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.RetryDelay == nil {
		c.RetryDelay = func(int) time.Duration { return time.Minute }
	}
}

// Consumer pulls jobs off a Queue with bounded concurrency and a rate
// limiter, translates handler outcomes into ack/retry/dead-letter, and
// emits lifecycle events.
type Consumer struct {
	queue   *Queue
	cfg     ConsumerConfig
	handler Handler
	logger  *logger.Logger
	limiter *rate.Limiter

	mu        sync.Mutex
	listeners []Listener

	paused  atomic.Bool
	active  atomic.Int64
	wasBusy atomic.Bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewConsumer(q *Queue, cfg ConsumerConfig, handler Handler, log *logger.Logger) *Consumer {
	cfg.defaults()
	return &Consumer{
		queue:   q,
		cfg:     cfg,
		handler: handler,
		logger:  log,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
	}
}

// OnEvent registers a lifecycle listener. Must be called before Start.
func (c *Consumer) OnEvent(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *Consumer) emit(e Event) {
	c.mu.Lock()
	listeners := c.listeners
	c.mu.Unlock()
	for _, l := range listeners {
		l(e)
	}
}

// Start launches the worker pool and the housekeeping loop. It returns
// immediately; use Stop to wait for workers to settle.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	for i := 0; i < c.cfg.Concurrency; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.workerLoop(ctx)
		}()
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.housekeepingLoop(ctx)
	}()

	c.logger.Info("consumer started",
		"concurrency", c.cfg.Concurrency,
		"rate_per_second", c.cfg.RatePerSecond)
}

// Pause stops intake of new jobs. In-flight jobs keep running.
func (c *Consumer) Pause() {
	if c.paused.CompareAndSwap(false, true) {
		c.emit(Event{Name: EventPaused})
	}
}

// Resume re-enables intake.
func (c *Consumer) Resume() {
	if c.paused.CompareAndSwap(true, false) {
		c.emit(Event{Name: EventResumed})
	}
}

// InFlight reports how many handler invocations are currently running.
func (c *Consumer) InFlight() int {
	return int(c.active.Load())
}

// Stop cancels the loops and waits for workers to return.
func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

func (c *Consumer) workerLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if c.paused.Load() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}

		id, err := c.queue.c().BLPop(ctx, time.Second, c.queue.pendingKey()).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Timeout polls come back as redis.Nil.
			if !stderrors.Is(err, redis.Nil) {
				c.emit(Event{Name: EventError, Err: err})
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
			}
			continue
		}
		if len(id) < 2 {
			continue
		}
		c.runJob(ctx, id[1])
	}
}

func (c *Consumer) runJob(ctx context.Context, id string) {
	job, err := c.queue.loadJob(ctx, id)
	if err != nil {
		c.emit(Event{Name: EventError, JobID: id, Err: err})
		return
	}

	deadline := time.Now().Add(c.cfg.VisibilityTimeout)
	if err := c.queue.markActive(ctx, id, deadline); err != nil {
		c.emit(Event{Name: EventError, JobID: id, Err: err})
		return
	}

	job.AttemptsMade++
	if err := c.queue.storeJob(ctx, job); err != nil {
		c.emit(Event{Name: EventError, JobID: id, Err: err})
	}

	c.active.Add(1)
	c.wasBusy.Store(true)
	c.emit(Event{Name: EventActive, JobID: id})

	handlerErr := c.handler(ctx, job)

	c.active.Add(-1)
	c.settle(ctx, job, handlerErr)
}

// settle translates the handler outcome into ack, retry or dead-letter.
func (c *Consumer) settle(ctx context.Context, job *Job, handlerErr error) {
	// Settlement must finish even when the worker context is cancelled
	// mid-job, or completed work would be re-delivered on restart.
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := c.queue.clearActive(sctx, job.ID); err != nil {
		c.emit(Event{Name: EventError, JobID: job.ID, Err: err})
	}

	switch {
	case handlerErr == nil:
		c.emit(Event{Name: EventCompleted, JobID: job.ID})

	case errors.IsPermanent(handlerErr):
		if err := c.queue.deadLetter(sctx, job, handlerErr.Error()); err != nil {
			c.emit(Event{Name: EventError, JobID: job.ID, Err: err})
		}
		c.emit(Event{Name: EventFailed, JobID: job.ID, Err: handlerErr})

	case job.AttemptsMade >= job.MaxAttempts:
		if err := c.queue.deadLetter(sctx, job, "attempts exhausted: "+handlerErr.Error()); err != nil {
			c.emit(Event{Name: EventError, JobID: job.ID, Err: err})
		}
		c.emit(Event{Name: EventFailed, JobID: job.ID, Err: handlerErr})

	default:
		delay := c.cfg.RetryDelay(job.AttemptsMade)
		if err := c.queue.scheduleRetry(sctx, job, time.Now().Add(delay)); err != nil {
			c.emit(Event{Name: EventError, JobID: job.ID, Err: err})
		}
		c.emit(Event{Name: EventRetry, JobID: job.ID, Err: handlerErr})
	}
}

func (c *Consumer) housekeepingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := c.queue.promoteDelayed(ctx); err != nil {
			c.emit(Event{Name: EventError, Err: err})
			continue
		}

		stalled, err := c.queue.requeueStalled(ctx)
		if err != nil {
			c.emit(Event{Name: EventError, Err: err})
			continue
		}
		for _, id := range stalled {
			c.logger.Warn("stalled job requeued", "job_id", id)
			c.emit(Event{Name: EventStalled, JobID: id})
		}

		pending, delayed, active, _, err := c.queue.Depth(ctx)
		if err != nil {
			continue
		}
		if pending == 0 && delayed == 0 && active == 0 && c.active.Load() == 0 {
			if c.wasBusy.CompareAndSwap(true, false) {
				c.emit(Event{Name: EventDrained})
			}
		}
	}
}
