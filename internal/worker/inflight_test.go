package worker

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInFlightGuardSingleFlight(t *testing.T) {
	guard := NewInFlightGuard()

	assert.True(t, guard.TryEnter("job-1"))
	assert.False(t, guard.TryEnter("job-1"))
	assert.True(t, guard.TryEnter("job-2"))
	assert.Equal(t, 2, guard.Size())

	guard.Leave("job-1")
	assert.Equal(t, 1, guard.Size())
	assert.True(t, guard.TryEnter("job-1"))
}

func TestInFlightGuardConcurrentSingleWinner(t *testing.T) {
	guard := NewInFlightGuard()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if guard.TryEnter("contested") {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, 1, guard.Size())
}

func TestInFlightGuardLeaveUnknownIsNoop(t *testing.T) {
	guard := NewInFlightGuard()
	guard.Leave("never-entered")
	assert.Equal(t, 0, guard.Size())
}
