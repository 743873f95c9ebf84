package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skartik/commerce-api/pkg/logger"
)

type fakeEnqueuer struct {
	payloads []interface{}
	err      error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, payload interface{}) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.payloads = append(f.payloads, payload)
	return "job-1", nil
}

func testPublisher(q Enqueuer) *Publisher {
	return NewPublisher(q, logger.NewLogger(&logger.Config{Level: logger.FatalLevel, Output: io.Discard}))
}

func TestPublishEnqueuesValidEvent(t *testing.T) {
	q := &fakeEnqueuer{}
	p := testPublisher(q)

	p.Publish(context.Background(), &EmailEvent{
		Type:   EventWelcome,
		UserID: "user-1",
		Email:  "a@example.com",
	})

	require.Len(t, q.payloads, 1)
	event, ok := q.payloads[0].(*EmailEvent)
	require.True(t, ok)

	// Defaults filled in before validation.
	assert.Equal(t, LocaleEN, event.Locale)
	assert.False(t, event.Timestamp.IsZero())
}

func TestPublishDropsInvalidEvent(t *testing.T) {
	q := &fakeEnqueuer{}
	p := testPublisher(q)

	p.Publish(context.Background(), &EmailEvent{Type: "newsletter"})
	assert.Empty(t, q.payloads)
}

func TestPublishSwallowsEnqueueFailure(t *testing.T) {
	q := &fakeEnqueuer{err: errors.New("redis down")}
	p := testPublisher(q)

	// Must not panic and must not propagate; callers are fire-and-forget.
	p.Publish(context.Background(), &EmailEvent{
		Type:      EventWelcome,
		Locale:    LocaleEN,
		Timestamp: time.Now(),
		UserID:    "user-1",
	})
}

func TestPublishedEventSurvivesJSONRoundTrip(t *testing.T) {
	q := &fakeEnqueuer{}
	p := testPublisher(q)

	p.Publish(context.Background(), &EmailEvent{
		Type:    EventPasswordReset,
		Locale:  LocaleDE,
		UserID:  "user-1",
		Email:   "a@example.com",
		Token:   "tok-123",
	})
	require.Len(t, q.payloads, 1)

	raw, err := json.Marshal(q.payloads[0])
	require.NoError(t, err)

	var decoded EmailEvent
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, EventPasswordReset, decoded.Type)
	assert.Equal(t, "tok-123", decoded.Token)
	assert.Equal(t, q.payloads[0].(*EmailEvent).DeliveryKey(), decoded.DeliveryKey())
}
