package queue

import (
	"encoding/json"
	"time"
)

// Job is the broker-assigned wrapper around an enqueued payload. The queue
// owns it; consumers only read it and report an outcome.
type Job struct {
	ID           string          `json:"id"`
	Payload      json.RawMessage `json:"payload"`
	AttemptsMade int             `json:"attempts_made"`
	MaxAttempts  int             `json:"max_attempts"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
}

// AttemptsRemaining reports how many deliveries are left after the current one.
func (j *Job) AttemptsRemaining() int {
	remaining := j.MaxAttempts - j.AttemptsMade
	if remaining < 0 {
		return 0
	}
	return remaining
}

// EventName identifies a queue lifecycle notification.
type EventName string

const (
	EventActive    EventName = "active"
	EventCompleted EventName = "completed"
	EventFailed    EventName = "failed"
	EventRetry     EventName = "retry"
	EventStalled   EventName = "stalled"
	EventError     EventName = "error"
	EventDrained   EventName = "drained"
	EventPaused    EventName = "paused"
	EventResumed   EventName = "resumed"
)

// Event is a lifecycle notification emitted by the consumer.
type Event struct {
	Name  EventName
	JobID string
	Err   error
}

// Listener receives lifecycle notifications. Listeners must not block.
type Listener func(Event)
