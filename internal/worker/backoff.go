package worker

import (
	"math"
	"time"
)

// Backoff computes exponential retry delays:
//
//	delay(n) = min(Base * Multiplier^(n-1), Cap)
//
// Deterministic, no jitter. At current volume synchronized retries are not
// a concern; jitter is a possible future improvement.
type Backoff struct {
	Base       time.Duration
	Multiplier float64
	Cap        time.Duration
}

// Delay returns the wait before re-delivery after the given attempt
// number (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(b.Base) * math.Pow(b.Multiplier, float64(attempt-1))
	if d > float64(b.Cap) || math.IsInf(d, 1) {
		return b.Cap
	}
	return time.Duration(d)
}

// JobRetryBackoff spaces broker-level re-deliveries: 1m, 5m, 25m, ... capped
// at 4h.
var JobRetryBackoff = Backoff{
	Base:       time.Minute,
	Multiplier: 5,
	Cap:        4 * time.Hour,
}

// ReconnectBackoff spaces broker reconnection attempts: 1s, 2s, 4s, ...
// capped at 30s.
var ReconnectBackoff = Backoff{
	Base:       time.Second,
	Multiplier: 2,
	Cap:        30 * time.Second,
}
