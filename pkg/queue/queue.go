package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/skartik/commerce-api/pkg/logger"
)

// Config holds queue connection settings.
type Config struct {
	URL          string
	Name         string
	MaxAttempts  int
	PoolSize     int
	MinIdleConns int
}

// Queue is a durable Redis-backed job queue. Pending jobs live in a list,
// in-progress jobs are tracked in a deadline-scored sorted set for stalled
// detection, retries wait in a delayed sorted set, and exhausted jobs land
// in a dead-letter list.
type Queue struct {
	mu          sync.RWMutex
	client      *redis.Client
	name        string
	maxAttempts int
	logger      *logger.Logger
}

func New(cfg Config, log *logger.Logger) (*Queue, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	return &Queue{
		client:      client,
		name:        cfg.Name,
		maxAttempts: cfg.MaxAttempts,
		logger:      log.WithFields(map[string]interface{}{"queue": cfg.Name}),
	}, nil
}

// c returns the current client. Reconnect may swap it under the lock.
func (q *Queue) c() *redis.Client {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.client
}

func (q *Queue) pendingKey() string { return fmt.Sprintf("queue:{%s}:pending", q.name) }
func (q *Queue) activeKey() string  { return fmt.Sprintf("queue:{%s}:active", q.name) }
func (q *Queue) delayedKey() string { return fmt.Sprintf("queue:{%s}:delayed", q.name) }
func (q *Queue) deadKey() string    { return fmt.Sprintf("queue:{%s}:dead", q.name) }
func (q *Queue) jobKey(id string) string {
	return fmt.Sprintf("queue:{%s}:job:%s", q.name, id)
}

// Enqueue stores a new job and pushes it onto the pending list.
func (q *Queue) Enqueue(ctx context.Context, payload interface{}) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := &Job{
		ID:          uuid.New().String(),
		Payload:     raw,
		MaxAttempts: q.maxAttempts,
		EnqueuedAt:  time.Now().UTC(),
	}

	if err := q.storeJob(ctx, job); err != nil {
		return "", err
	}
	if err := q.c().LPush(ctx, q.pendingKey(), job.ID).Err(); err != nil {
		return "", fmt.Errorf("failed to push job: %w", err)
	}

	q.logger.Debug("job enqueued", "job_id", job.ID)
	return job.ID, nil
}

func (q *Queue) storeJob(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	// Job bodies outlive their queue entries so dead-letter inspection
	// still has the payload at hand.
	if err := q.c().Set(ctx, q.jobKey(job.ID), data, 7*24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to store job: %w", err)
	}
	return nil
}

func (q *Queue) loadJob(ctx context.Context, id string) (*Job, error) {
	data, err := q.c().Get(ctx, q.jobKey(id)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

// markActive records a processing deadline for a claimed job. Jobs past
// their deadline are considered stalled and re-delivered.
func (q *Queue) markActive(ctx context.Context, id string, deadline time.Time) error {
	return q.c().ZAdd(ctx, q.activeKey(), redis.Z{
		Score:  float64(deadline.UnixMilli()),
		Member: id,
	}).Err()
}

// clearActive removes a job from the stalled-detection set.
func (q *Queue) clearActive(ctx context.Context, id string) error {
	return q.c().ZRem(ctx, q.activeKey(), id).Err()
}

// scheduleRetry parks the job in the delayed set until readyAt.
func (q *Queue) scheduleRetry(ctx context.Context, job *Job, readyAt time.Time) error {
	if err := q.storeJob(ctx, job); err != nil {
		return err
	}
	return q.c().ZAdd(ctx, q.delayedKey(), redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: job.ID,
	}).Err()
}

// deadLetter moves the job onto the dead-letter list.
func (q *Queue) deadLetter(ctx context.Context, job *Job, reason string) error {
	entry, err := json.Marshal(map[string]interface{}{
		"job_id":    job.ID,
		"attempts":  job.AttemptsMade,
		"reason":    reason,
		"failed_at": time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return q.c().LPush(ctx, q.deadKey(), entry).Err()
}

// promoteDelayed moves all due delayed jobs back onto the pending list.
func (q *Queue) promoteDelayed(ctx context.Context) (int, error) {
	now := float64(time.Now().UnixMilli())
	ids, err := q.c().ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil {
		return 0, err
	}

	promoted := 0
	for _, id := range ids {
		removed, err := q.c().ZRem(ctx, q.delayedKey(), id).Result()
		if err != nil {
			return promoted, err
		}
		// Another promoter won the race for this id.
		if removed == 0 {
			continue
		}
		if err := q.c().LPush(ctx, q.pendingKey(), id).Err(); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

// requeueStalled re-delivers jobs whose processing deadline has passed.
// The previous execution may still be running; single-flight protection is
// the consumer's responsibility.
func (q *Queue) requeueStalled(ctx context.Context) ([]string, error) {
	now := float64(time.Now().UnixMilli())
	ids, err := q.c().ZRangeByScore(ctx, q.activeKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil {
		return nil, err
	}

	var stalled []string
	for _, id := range ids {
		removed, err := q.c().ZRem(ctx, q.activeKey(), id).Result()
		if err != nil {
			return stalled, err
		}
		if removed == 0 {
			continue
		}
		if err := q.c().LPush(ctx, q.pendingKey(), id).Err(); err != nil {
			return stalled, err
		}
		stalled = append(stalled, id)
	}
	return stalled, nil
}

// Depth reports pending, delayed, active and dead-letter counts.
func (q *Queue) Depth(ctx context.Context) (pending, delayed, active, dead int64, err error) {
	if pending, err = q.c().LLen(ctx, q.pendingKey()).Result(); err != nil {
		return
	}
	if delayed, err = q.c().ZCard(ctx, q.delayedKey()).Result(); err != nil {
		return
	}
	if active, err = q.c().ZCard(ctx, q.activeKey()).Result(); err != nil {
		return
	}
	dead, err = q.c().LLen(ctx, q.deadKey()).Result()
	return
}

// Ping checks broker connectivity.
func (q *Queue) Ping(ctx context.Context) error {
	return q.c().Ping(ctx).Err()
}

// Reconnect tears down the connection pool and dials again with the same
// options. Used by the resilience manager after the broker link drops.
func (q *Queue) Reconnect(ctx context.Context) error {
	q.mu.RLock()
	opts := q.client.Options()
	q.mu.RUnlock()

	fresh := redis.NewClient(opts)
	if err := fresh.Ping(ctx).Err(); err != nil {
		fresh.Close()
		return fmt.Errorf("reconnect ping failed: %w", err)
	}

	q.mu.Lock()
	old := q.client
	q.client = fresh
	q.mu.Unlock()

	return old.Close()
}

func (q *Queue) Close() error {
	return q.c().Close()
}
