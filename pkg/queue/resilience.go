package queue

import (
	"context"
	"sync"
	"time"

	"github.com/skartik/commerce-api/pkg/logger"
)

// Conn is the broker link the resilience manager supervises.
type Conn interface {
	Ping(ctx context.Context) error
	Reconnect(ctx context.Context) error
}

// ResilienceConfig tunes connection supervision.
type ResilienceConfig struct {
	CheckInterval        time.Duration
	MaxReconnectAttempts int
	// Backoff maps the reconnect attempt number (1-based) to the wait
	// before dialing again.
	Backoff func(attempt int) time.Duration
	// OnReconnectAttempt fires once per dial attempt, automatic or
	// manual. Used for the reconnect counter.
	OnReconnectAttempt func()
}

func (c *ResilienceConfig) defaults() {
	if c.CheckInterval <= 0 {
		c.CheckInterval = 10 * time.Second
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = 10
	}
	if c.Backoff == nil {
		c.Backoff = func(int) time.Duration { return time.Second }
	}
}

// ResilienceStatus is the operator-visible snapshot of the broker link.
type ResilienceStatus struct {
	Connected            bool `json:"connected"`
	ReconnectAttempts    int  `json:"reconnect_attempts"`
	MaxReconnectAttempts int  `json:"max_reconnect_attempts"`
	Exhausted            bool `json:"exhausted"`
	ShuttingDown         bool `json:"shutting_down"`
}

// ResilienceManager supervises the broker connection: on a failed health
// check it reconnects with exponential backoff until MaxReconnectAttempts,
// after which it stops and waits for manual intervention.
type ResilienceManager struct {
	conn   Conn
	cfg    ResilienceConfig
	logger *logger.Logger

	mu           sync.Mutex
	connected    bool
	attempts     int
	exhausted    bool
	shuttingDown bool
}

func NewResilienceManager(conn Conn, cfg ResilienceConfig, log *logger.Logger) *ResilienceManager {
	cfg.defaults()
	return &ResilienceManager{
		conn:      conn,
		cfg:       cfg,
		logger:    log,
		connected: true,
	}
}

// Start runs the health-check loop until ctx is cancelled.
func (m *ResilienceManager) Start(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		skip := m.shuttingDown || m.exhausted
		m.mu.Unlock()
		if skip {
			continue
		}

		if err := m.conn.Ping(ctx); err != nil {
			m.logger.Error(err, "broker health check failed")
			m.setConnected(false)
			m.reconnectLoop(ctx)
		} else {
			m.setConnected(true)
		}
	}
}

func (m *ResilienceManager) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

// reconnectLoop dials with backoff until success, exhaustion or shutdown.
func (m *ResilienceManager) reconnectLoop(ctx context.Context) {
	for {
		m.mu.Lock()
		if m.shuttingDown {
			m.mu.Unlock()
			return
		}
		m.attempts++
		attempt := m.attempts
		if attempt > m.cfg.MaxReconnectAttempts {
			m.exhausted = true
			m.mu.Unlock()
			m.logger.Error(nil, "reconnect attempts exhausted, manual intervention required",
				"max_attempts", m.cfg.MaxReconnectAttempts)
			return
		}
		m.mu.Unlock()

		delay := m.cfg.Backoff(attempt)
		m.logger.Warn("reconnecting to broker",
			"attempt", attempt,
			"delay_ms", delay.Milliseconds())

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		m.notifyAttempt()
		if err := m.conn.Reconnect(ctx); err != nil {
			m.logger.Error(err, "reconnect failed", "attempt", attempt)
			continue
		}

		m.mu.Lock()
		m.attempts = 0
		m.connected = true
		m.mu.Unlock()
		m.logger.Info("broker connection restored")
		return
	}
}

func (m *ResilienceManager) notifyAttempt() {
	if m.cfg.OnReconnectAttempt != nil {
		m.cfg.OnReconnectAttempt()
	}
}

// TriggerReconnection is the operator-initiated recovery path. It bypasses
// the backoff wait and clears the exhausted flag on success.
func (m *ResilienceManager) TriggerReconnection(ctx context.Context) error {
	m.notifyAttempt()
	if err := m.conn.Reconnect(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.attempts = 0
	m.exhausted = false
	m.connected = true
	m.mu.Unlock()
	m.logger.Info("manual reconnection succeeded")
	return nil
}

// Shutdown stops automatic reconnection. Idempotent.
func (m *ResilienceManager) Shutdown() {
	m.mu.Lock()
	m.shuttingDown = true
	m.mu.Unlock()
}

// Status returns the current supervision snapshot.
func (m *ResilienceManager) Status() ResilienceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ResilienceStatus{
		Connected:            m.connected,
		ReconnectAttempts:    m.attempts,
		MaxReconnectAttempts: m.cfg.MaxReconnectAttempts,
		Exhausted:            m.exhausted,
		ShuttingDown:         m.shuttingDown,
	}
}
