package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJobRetryBackoffSchedule(t *testing.T) {
	assert.Equal(t, time.Minute, JobRetryBackoff.Delay(1))
	assert.Equal(t, 5*time.Minute, JobRetryBackoff.Delay(2))
	assert.Equal(t, 25*time.Minute, JobRetryBackoff.Delay(3))
	assert.Equal(t, 125*time.Minute, JobRetryBackoff.Delay(4))

	// Attempt 5 would be 625m; the cap takes over.
	assert.Equal(t, 4*time.Hour, JobRetryBackoff.Delay(5))
	assert.Equal(t, 4*time.Hour, JobRetryBackoff.Delay(50))
}

func TestReconnectBackoffSchedule(t *testing.T) {
	assert.Equal(t, time.Second, ReconnectBackoff.Delay(1))
	assert.Equal(t, 2*time.Second, ReconnectBackoff.Delay(2))
	assert.Equal(t, 16*time.Second, ReconnectBackoff.Delay(5))
	assert.Equal(t, 30*time.Second, ReconnectBackoff.Delay(6))
	assert.Equal(t, 30*time.Second, ReconnectBackoff.Delay(100))
}

func TestBackoffClampsAttemptBelowOne(t *testing.T) {
	assert.Equal(t, time.Minute, JobRetryBackoff.Delay(0))
	assert.Equal(t, time.Minute, JobRetryBackoff.Delay(-3))
}

func TestBackoffHugeAttemptHitsCap(t *testing.T) {
	// Large exponents overflow float64 to +Inf; the cap must still apply.
	assert.Equal(t, 4*time.Hour, JobRetryBackoff.Delay(10000))
}
