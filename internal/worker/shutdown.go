package worker

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/skartik/commerce-api/pkg/logger"
)

// ConsumerControl is the slice of the queue consumer the coordinator needs.
type ConsumerControl interface {
	Pause()
	Stop()
}

// ResilienceControl stops automatic broker reconnection during shutdown.
type ResilienceControl interface {
	Shutdown()
}

// ShutdownConfig bounds the drain phase.
type ShutdownConfig struct {
	DrainTimeout time.Duration
	PollInterval time.Duration
}

func (c *ShutdownConfig) defaults() {
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 250 * time.Millisecond
	}
}

// Coordinator runs the termination sequence: stop intake, drain in-flight
// jobs up to a timeout, then force-close. Idempotent; signals after the
// first are no-ops.
type Coordinator struct {
	processor  *Processor
	consumer   ConsumerControl
	guard      *InFlightGuard
	resilience ResilienceControl
	broker     io.Closer
	cfg        ShutdownConfig
	logger     *logger.Logger

	once   sync.Once
	done   chan struct{}
	forced bool
}

func NewCoordinator(
	processor *Processor,
	consumer ConsumerControl,
	guard *InFlightGuard,
	resilience ResilienceControl,
	broker io.Closer,
	cfg ShutdownConfig,
	log *logger.Logger,
) *Coordinator {
	cfg.defaults()
	return &Coordinator{
		processor:  processor,
		consumer:   consumer,
		guard:      guard,
		resilience: resilience,
		broker:     broker,
		cfg:        cfg,
		logger:     log,
		done:       make(chan struct{}),
	}
}

// Shutdown executes the sequence once and returns when the worker is down.
// forceClosed reports whether the drain timed out.
func (c *Coordinator) Shutdown(ctx context.Context) (forceClosed bool) {
	c.once.Do(func() {
		defer close(c.done)

		defer func() {
			// Any panic mid-sequence falls through to the force path so
			// connections never leak on the way out.
			if r := recover(); r != nil {
				c.logger.Error(nil, "shutdown sequence panicked, forcing close", "panic", r)
				c.forced = true
				c.forceClose()
			}
		}()

		c.logger.Info("shutdown requested, stopping intake")
		c.processor.StopIntake()
		c.consumer.Pause()

		c.forced = !c.drain(ctx)

		c.consumer.Stop()
		c.resilience.Shutdown()
		if err := c.broker.Close(); err != nil {
			c.logger.Error(err, "failed to close broker connection")
		}

		c.logger.Info("worker shut down", "force_closed", c.forced)
	})

	<-c.done
	return c.forced
}

// drain polls the in-flight guard until it empties or the timeout elapses.
// Returns true on a clean drain.
func (c *Coordinator) drain(ctx context.Context) bool {
	deadline := time.Now().Add(c.cfg.DrainTimeout)
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		inFlight := c.guard.Size()
		if inFlight == 0 {
			c.logger.Info("all in-flight jobs drained")
			return true
		}
		if time.Now().After(deadline) {
			c.logger.Warn("drain timeout elapsed, forcing close",
				"in_flight", inFlight,
				"timeout_ms", c.cfg.DrainTimeout.Milliseconds())
			return false
		}

		select {
		case <-ctx.Done():
			c.logger.Warn("shutdown context cancelled mid-drain", "in_flight", inFlight)
			return false
		case <-ticker.C:
		}
	}
}

func (c *Coordinator) forceClose() {
	c.consumer.Stop()
	c.resilience.Shutdown()
	if c.broker != nil {
		_ = c.broker.Close()
	}
}
