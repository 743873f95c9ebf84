package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/skartik/commerce-api/pkg/errors"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return &Queue{
		client:      client,
		name:        "test",
		maxAttempts: 3,
		logger:      quietLogger(),
	}
}

// eventRecorder collects lifecycle notifications for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventRecorder) names() []EventName {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventName, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Name)
	}
	return out
}

func newTestConsumer(q *Queue, retryDelay time.Duration, handler Handler) (*Consumer, *eventRecorder) {
	if handler == nil {
		handler = func(context.Context, *Job) error { return nil }
	}
	c := NewConsumer(q, ConsumerConfig{
		RetryDelay: func(int) time.Duration { return retryDelay },
	}, handler, quietLogger())
	rec := &eventRecorder{}
	c.OnEvent(rec.record)
	return c, rec
}

func pendingIDs(t *testing.T, q *Queue) []string {
	t.Helper()
	ids, err := q.c().LRange(context.Background(), q.pendingKey(), 0, -1).Result()
	require.NoError(t, err)
	return ids
}

func enqueueOne(t *testing.T, q *Queue) (*Job, string) {
	t.Helper()
	ctx := context.Background()
	id, err := q.Enqueue(ctx, map[string]string{"type": "welcome"})
	require.NoError(t, err)
	job, err := q.loadJob(ctx, id)
	require.NoError(t, err)
	return job, id
}

func TestEnqueueStoresJobOnPendingList(t *testing.T) {
	q := newTestQueue(t)

	job, id := enqueueOne(t, q)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, 3, job.MaxAttempts)
	assert.Equal(t, 0, job.AttemptsMade)
	assert.Equal(t, []string{id}, pendingIDs(t, q))
}

func TestSettleAckClearsActiveEntry(t *testing.T) {
	q := newTestQueue(t)
	c, rec := newTestConsumer(q, time.Minute, nil)
	ctx := context.Background()

	job, id := enqueueOne(t, q)
	require.NoError(t, q.c().LPop(ctx, q.pendingKey()).Err())
	require.NoError(t, q.markActive(ctx, id, time.Now().Add(time.Minute)))

	c.settle(ctx, job, nil)

	pending, delayed, active, dead, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Zero(t, delayed)
	assert.Zero(t, active)
	assert.Zero(t, dead)
	assert.Equal(t, []EventName{EventCompleted}, rec.names())
}

func TestSettlePermanentErrorDeadLetters(t *testing.T) {
	q := newTestQueue(t)
	c, rec := newTestConsumer(q, time.Minute, nil)
	ctx := context.Background()

	job, id := enqueueOne(t, q)
	require.NoError(t, q.c().LPop(ctx, q.pendingKey()).Err())
	require.NoError(t, q.markActive(ctx, id, time.Now().Add(time.Minute)))
	job.AttemptsMade = 1

	c.settle(ctx, job, apperrors.Permanent("invalid recipient", nil))

	_, delayed, active, dead, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Zero(t, delayed)
	assert.Zero(t, active)
	assert.Equal(t, int64(1), dead)
	assert.Equal(t, []EventName{EventFailed}, rec.names())

	raw, err := q.c().LIndex(ctx, q.deadKey(), 0).Bytes()
	require.NoError(t, err)
	var entry struct {
		JobID    string `json:"job_id"`
		Attempts int    `json:"attempts"`
		Reason   string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Equal(t, id, entry.JobID)
	assert.Equal(t, 1, entry.Attempts)
	assert.Contains(t, entry.Reason, "invalid recipient")
}

func TestSettleExhaustedAttemptsDeadLetters(t *testing.T) {
	q := newTestQueue(t)
	c, rec := newTestConsumer(q, time.Minute, nil)
	ctx := context.Background()

	job, _ := enqueueOne(t, q)
	job.AttemptsMade = job.MaxAttempts

	// Transient failure, but no deliveries left.
	c.settle(ctx, job, errors.New("dial tcp: i/o timeout"))

	_, delayed, _, dead, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Zero(t, delayed)
	assert.Equal(t, int64(1), dead)
	assert.Equal(t, []EventName{EventFailed}, rec.names())

	raw, err := q.c().LIndex(ctx, q.deadKey(), 0).Bytes()
	require.NoError(t, err)
	var entry struct {
		Reason string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Contains(t, entry.Reason, "attempts exhausted")
}

func TestSettleTransientSchedulesDelayedRetry(t *testing.T) {
	q := newTestQueue(t)
	c, rec := newTestConsumer(q, 5*time.Minute, nil)
	ctx := context.Background()

	job, id := enqueueOne(t, q)
	job.AttemptsMade = 1

	c.settle(ctx, job, errors.New("connection reset by peer"))

	_, delayed, _, dead, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), delayed)
	assert.Zero(t, dead)
	assert.Equal(t, []EventName{EventRetry}, rec.names())

	score, err := q.c().ZScore(ctx, q.delayedKey(), id).Result()
	require.NoError(t, err)
	readyAt := time.UnixMilli(int64(score))
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), readyAt, 10*time.Second)
}

func TestRunJobIncrementsAttemptsAndRetries(t *testing.T) {
	q := newTestQueue(t)
	c, rec := newTestConsumer(q, time.Minute, func(context.Context, *Job) error {
		return errors.New("smtp timeout")
	})
	ctx := context.Background()

	_, id := enqueueOne(t, q)
	require.NoError(t, q.c().LPop(ctx, q.pendingKey()).Err())

	c.runJob(ctx, id)

	job, err := q.loadJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, job.AttemptsMade)
	assert.Equal(t, []EventName{EventActive, EventRetry}, rec.names())
}

func TestPromoteDelayedMovesDueJobs(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.c().ZAdd(ctx, q.delayedKey(),
		redis.Z{Score: float64(time.Now().Add(-time.Second).UnixMilli()), Member: "due-1"},
		redis.Z{Score: float64(time.Now().Add(time.Hour).UnixMilli()), Member: "later-1"},
	).Err())

	promoted, err := q.promoteDelayed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)
	assert.Equal(t, []string{"due-1"}, pendingIDs(t, q))

	delayed, err := q.c().ZCard(ctx, q.delayedKey()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), delayed)
}

func TestRequeueStalledRedeliversPastDeadline(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.markActive(ctx, "stuck-1", time.Now().Add(-time.Minute)))
	require.NoError(t, q.markActive(ctx, "live-1", time.Now().Add(time.Hour)))

	stalled, err := q.requeueStalled(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"stuck-1"}, stalled)
	assert.Equal(t, []string{"stuck-1"}, pendingIDs(t, q))

	active, err := q.c().ZCard(ctx, q.activeKey()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)
}
