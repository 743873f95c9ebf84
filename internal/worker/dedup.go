package worker

import (
	"sync"
	"time"
)

// DeliveryRecord marks one completed send.
type DeliveryRecord struct {
	Key                string    `json:"key"`
	Timestamp          time.Time `json:"timestamp"`
	TransportMessageID string    `json:"transport_message_id,omitempty"`
}

// DeliveryTracker suppresses duplicate sends for the same delivery key
// within a TTL window. In-memory only: the guarantee holds per worker
// process and is lost on restart. Safe for concurrent use.
type DeliveryTracker struct {
	mu      sync.Mutex
	records map[string]DeliveryRecord
	ttl     time.Duration
	now     func() time.Time
}

// TrackingStatus is the operator-visible snapshot of the tracker.
type TrackingStatus struct {
	TrackedDeliveries int           `json:"tracked_deliveries"`
	TTL               time.Duration `json:"ttl"`
}

func NewDeliveryTracker(ttl time.Duration) *DeliveryTracker {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DeliveryTracker{
		records: make(map[string]DeliveryRecord),
		ttl:     ttl,
		now:     time.Now,
	}
}

// HasBeenDelivered reports whether a send for key completed within the TTL
// window. Expired entries are evicted lazily on lookup.
func (t *DeliveryTracker) HasBeenDelivered(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[key]
	if !ok {
		return false
	}
	if t.now().Sub(rec.Timestamp) > t.ttl {
		delete(t.records, key)
		return false
	}
	return true
}

// MarkDelivered records a completed send, then opportunistically sweeps
// expired entries so the map stays bounded without a background goroutine.
func (t *DeliveryTracker) MarkDelivered(key, transportMessageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.records[key] = DeliveryRecord{
		Key:                key,
		Timestamp:          now,
		TransportMessageID: transportMessageID,
	}

	for k, rec := range t.records {
		if now.Sub(rec.Timestamp) > t.ttl {
			delete(t.records, k)
		}
	}
}

// Lookup returns the record for key if present and unexpired.
func (t *DeliveryTracker) Lookup(key string) (DeliveryRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[key]
	if !ok || t.now().Sub(rec.Timestamp) > t.ttl {
		return DeliveryRecord{}, false
	}
	return rec, true
}

// Status reports the current tracking snapshot.
func (t *DeliveryTracker) Status() TrackingStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TrackingStatus{
		TrackedDeliveries: len(t.records),
		TTL:               t.ttl,
	}
}
