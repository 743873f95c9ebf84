package worker

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skartik/commerce-api/internal/mailer"
	apperrors "github.com/skartik/commerce-api/pkg/errors"
	"github.com/skartik/commerce-api/pkg/logger"
	"github.com/skartik/commerce-api/pkg/metrics"
	"github.com/skartik/commerce-api/pkg/queue"
)

// fakeSender counts dispatches per event type and fails with a scripted
// error when set.
type fakeSender struct {
	mu    sync.Mutex
	calls map[mailer.EventType]int
	err   error
}

func newFakeSender() *fakeSender {
	return &fakeSender{calls: make(map[mailer.EventType]int)}
}

func (f *fakeSender) send(event *mailer.EmailEvent) (string, error) {
	f.mu.Lock()
	f.calls[event.Type]++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "<test-message@localhost>", nil
}

func (f *fakeSender) count(t mailer.EventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[t]
}

func (f *fakeSender) SendOrderConfirmation(_ context.Context, e *mailer.EmailEvent) (string, error) {
	return f.send(e)
}
func (f *fakeSender) SendAdminOrderNotice(_ context.Context, e *mailer.EmailEvent) (string, error) {
	return f.send(e)
}
func (f *fakeSender) SendShippingNotice(_ context.Context, e *mailer.EmailEvent) (string, error) {
	return f.send(e)
}
func (f *fakeSender) SendOrderStatusUpdate(_ context.Context, e *mailer.EmailEvent) (string, error) {
	return f.send(e)
}
func (f *fakeSender) SendOrderCancellation(_ context.Context, e *mailer.EmailEvent) (string, error) {
	return f.send(e)
}
func (f *fakeSender) SendAdminCancellationNotice(_ context.Context, e *mailer.EmailEvent) (string, error) {
	return f.send(e)
}
func (f *fakeSender) SendPaymentStatusUpdate(_ context.Context, e *mailer.EmailEvent) (string, error) {
	return f.send(e)
}
func (f *fakeSender) SendWelcome(_ context.Context, e *mailer.EmailEvent) (string, error) {
	return f.send(e)
}
func (f *fakeSender) SendPasswordReset(_ context.Context, e *mailer.EmailEvent) (string, error) {
	return f.send(e)
}
func (f *fakeSender) SendContactForm(_ context.Context, e *mailer.EmailEvent) (string, error) {
	return f.send(e)
}

func newTestProcessor(sender EmailSender) (*Processor, *DeliveryTracker, *InFlightGuard) {
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	tracker := NewDeliveryTracker(time.Hour)
	guard := NewInFlightGuard()
	deadLetter := NewDeadLetterLogger(log, JobRetryBackoff)
	p := NewProcessor(sender, tracker, guard, deadLetter, JobRetryBackoff, metrics.New("test"), log)
	return p, tracker, guard
}

func welcomeJob(t *testing.T, id string, attemptsMade int) *queue.Job {
	t.Helper()
	payload, err := json.Marshal(&mailer.EmailEvent{
		Type:      mailer.EventWelcome,
		Locale:    mailer.LocaleEN,
		Timestamp: time.Now(),
		UserID:    "9f4f1f34-7b61-4bd2-8e0f-000000000001",
		Email:     "new@example.com",
	})
	require.NoError(t, err)
	return &queue.Job{
		ID:           id,
		Payload:      payload,
		AttemptsMade: attemptsMade,
		MaxAttempts:  5,
	}
}

func TestHandleDeliversAndMarksTracker(t *testing.T) {
	sender := newFakeSender()
	p, tracker, guard := newTestProcessor(sender)

	err := p.Handle(context.Background(), welcomeJob(t, "job-1", 1))
	require.NoError(t, err)
	assert.Equal(t, 1, sender.count(mailer.EventWelcome))
	assert.Equal(t, 1, tracker.Status().TrackedDeliveries)
	assert.Equal(t, 0, guard.Size())
}

func TestHandleSuppressesDuplicateDelivery(t *testing.T) {
	sender := newFakeSender()
	p, _, _ := newTestProcessor(sender)

	require.NoError(t, p.Handle(context.Background(), welcomeJob(t, "job-1", 1)))

	// Same logical event under a new job id: suppressed, acked.
	err := p.Handle(context.Background(), welcomeJob(t, "job-2", 1))
	require.NoError(t, err)
	assert.Equal(t, 1, sender.count(mailer.EventWelcome))
}

func TestHandlePermanentFailureIsTagged(t *testing.T) {
	sender := newFakeSender()
	sender.err = stderrors.New("550 mailbox unavailable")
	p, tracker, _ := newTestProcessor(sender)

	err := p.Handle(context.Background(), welcomeJob(t, "job-1", 1))
	require.Error(t, err)
	assert.True(t, apperrors.IsPermanent(err))
	assert.Equal(t, 0, tracker.Status().TrackedDeliveries)
}

func TestHandleTransientFailurePropagatesUntagged(t *testing.T) {
	sender := newFakeSender()
	sender.err = stderrors.New("dial tcp: connection refused")
	p, _, _ := newTestProcessor(sender)

	err := p.Handle(context.Background(), welcomeJob(t, "job-1", 2))
	require.Error(t, err)
	assert.False(t, apperrors.IsPermanent(err))
}

func TestHandleFailureComputesRetrySchedule(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger(&logger.Config{Level: logger.DebugLevel, Output: &buf})
	p := NewProcessor(newFakeSender(), NewDeliveryTracker(time.Hour), NewInFlightGuard(),
		NewDeadLetterLogger(log, JobRetryBackoff), JobRetryBackoff, metrics.New("test"), log)

	// Transient failure on attempt 2 of 5: three deliveries remain and the
	// next one waits 5 minutes.
	job := welcomeJob(t, "job-1", 2)
	var event mailer.EmailEvent
	require.NoError(t, json.Unmarshal(job.Payload, &event))

	cause := stderrors.New("dial tcp: connection refused")
	err := p.handleFailure(job, &event, cause)
	require.ErrorIs(t, err, cause)

	var entry struct {
		Lifecycle      string `json:"lifecycle"`
		Attempt        int    `json:"attempt"`
		Remaining      int    `json:"remaining_attempts"`
		NextRetryDelay int64  `json:"next_retry_delay_ms"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "retry", entry.Lifecycle)
	assert.Equal(t, 2, entry.Attempt)
	assert.Equal(t, 3, entry.Remaining)
	assert.Equal(t, int64(300000), entry.NextRetryDelay)
}

func TestHandleExhaustedAttemptsReturnsCause(t *testing.T) {
	sender := newFakeSender()
	sender.err = stderrors.New("dial tcp: i/o timeout")
	p, _, _ := newTestProcessor(sender)

	job := welcomeJob(t, "job-1", 5)
	err := p.Handle(context.Background(), job)
	require.Error(t, err)
	// Still untagged; the queue's max-attempts enforcement finalizes it.
	assert.False(t, apperrors.IsPermanent(err))
}

func TestHandleUndecodablePayload(t *testing.T) {
	sender := newFakeSender()
	p, _, _ := newTestProcessor(sender)

	err := p.Handle(context.Background(), &queue.Job{
		ID:          "job-1",
		Payload:     []byte("{not json"),
		MaxAttempts: 5,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsPermanent(err))
}

func TestHandleInvalidEventSkipsDispatch(t *testing.T) {
	sender := newFakeSender()
	p, _, _ := newTestProcessor(sender)

	payload, _ := json.Marshal(map[string]string{"type": "bogus_type", "locale": "en"})
	err := p.Handle(context.Background(), &queue.Job{
		ID:          "job-1",
		Payload:     payload,
		MaxAttempts: 5,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsPermanent(err))
	assert.Empty(t, sender.calls)
}

func TestHandleWhileDrainingDefersJob(t *testing.T) {
	sender := newFakeSender()
	p, _, _ := newTestProcessor(sender)
	p.StopIntake()

	err := p.Handle(context.Background(), welcomeJob(t, "job-1", 1))
	require.Error(t, err)
	// Must stay retryable so the broker re-delivers after restart.
	assert.False(t, apperrors.IsPermanent(err))
	assert.Empty(t, sender.calls)
}

func TestHandleDuplicateDispatchSkipped(t *testing.T) {
	sender := newFakeSender()
	p, _, guard := newTestProcessor(sender)

	require.True(t, guard.TryEnter("job-1"))
	defer guard.Leave("job-1")

	err := p.Handle(context.Background(), welcomeJob(t, "job-1", 1))
	require.NoError(t, err)
	assert.Empty(t, sender.calls)
}

func TestHandleResendSharesConfirmationRoutine(t *testing.T) {
	sender := newFakeSender()
	p, _, _ := newTestProcessor(sender)

	payload, err := json.Marshal(&mailer.EmailEvent{
		Type:      mailer.EventOrderConfirmationResend,
		Locale:    mailer.LocaleEN,
		Timestamp: time.Now(),
		OrderID:   "9f4f1f34-7b61-4bd2-8e0f-000000000002",
		Email:     "buyer@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, p.Handle(context.Background(), &queue.Job{
		ID:          "job-1",
		Payload:     payload,
		MaxAttempts: 5,
	}))
	assert.Equal(t, 1, sender.count(mailer.EventOrderConfirmationResend))
}
