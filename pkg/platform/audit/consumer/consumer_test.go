package consumer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "headcount/pkg/domain"
	audit "headcount/pkg/platform/audit"
)

type captureStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]audit.Event
}

func newCaptureStore() *captureStore {
	return &captureStore{events: make(map[uuid.UUID]audit.Event)}
}

func (s *captureStore) AppendWithID(_ context.Context, eventID uuid.UUID, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[eventID] = event
	return nil
}

func (s *captureStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func newTestConsumer(store Materializer) *Consumer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Consumer{
		store:   store,
		sampler: NewSampler(1.0),
		denials: NewDenialTracker(defaultDenialThreshold, defaultDenialWindow, logger),
		logger:  logger,
	}
}

func record(t *testing.T, payload streamPayload) *kgo.Record {
	t.Helper()
	value, err := json.Marshal(payload)
	require.NoError(t, err)
	return &kgo.Record{Key: []byte(payload.BusinessID), Value: value}
}

func TestHandleRecordMaterializes(t *testing.T) {
	store := newCaptureStore()
	c := newTestConsumer(store)

	eventID := uuid.New()
	businessID := uuid.New()
	c.handleRecord(context.Background(), record(t, streamPayload{
		ID:         eventID.String(),
		Category:   string(audit.CategoryCompliance),
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		BusinessID: businessID.String(),
		Subject:    "ban-1",
		Action:     string(audit.EventBanCreated),
		Reason:     "FIGHTING",
	}))

	require.Equal(t, 1, store.len())
	event := store.events[eventID]
	assert.Equal(t, audit.CategoryCompliance, event.Category)
	assert.Equal(t, id.BusinessID(businessID), event.BusinessID)
	assert.Equal(t, "FIGHTING", event.Reason)
}

func TestHandleRecordIdempotentByEventID(t *testing.T) {
	store := newCaptureStore()
	c := newTestConsumer(store)

	payload := streamPayload{
		ID:        uuid.NewString(),
		Category:  string(audit.CategoryCompliance),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Action:    string(audit.EventBanRevoked),
	}
	// A crash between produce and mark causes redelivery; the projection
	// must collapse duplicates.
	c.handleRecord(context.Background(), record(t, payload))
	c.handleRecord(context.Background(), record(t, payload))

	assert.Equal(t, 1, store.len())
}

func TestHandleRecordSkipsGarbage(t *testing.T) {
	store := newCaptureStore()
	c := newTestConsumer(store)

	c.handleRecord(context.Background(), &kgo.Record{Value: []byte("not json")})
	c.handleRecord(context.Background(), record(t, streamPayload{
		ID:     "not-a-uuid",
		Action: string(audit.EventScanAccepted),
	}))

	assert.Zero(t, store.len())
}

func TestHandleRecordSamplesOperations(t *testing.T) {
	store := newCaptureStore()
	c := newTestConsumer(store)
	c.sampler.SetRate(string(audit.EventScanAccepted), 0)

	for range 20 {
		c.handleRecord(context.Background(), record(t, streamPayload{
			ID:       uuid.NewString(),
			Category: string(audit.CategoryOperations),
			Action:   string(audit.EventScanAccepted),
		}))
	}

	assert.Zero(t, store.len(), "rate 0 drops every operations event")
}

func TestHandleRecordDerivesMissingCategory(t *testing.T) {
	store := newCaptureStore()
	c := newTestConsumer(store)

	eventID := uuid.New()
	c.handleRecord(context.Background(), record(t, streamPayload{
		ID:     eventID.String(),
		Action: string(audit.EventOccupancyReset),
	}))

	require.Equal(t, 1, store.len())
	assert.Equal(t, audit.CategorySecurity, store.events[eventID].Category)
}

func TestDenialTrackerAlertsOnBurst(t *testing.T) {
	businessID := id.BusinessID(uuid.New())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracker := NewDenialTracker(3, time.Minute, logger)

	base := time.Date(2026, 6, 15, 23, 0, 0, 0, time.UTC)
	for i := range 3 {
		tracker.Observe(audit.Event{
			Action:     string(audit.EventScanDenied),
			BusinessID: businessID,
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			Reason:     "UNDERAGE",
		})
	}
	assert.Equal(t, 3, tracker.Count(businessID))

	// Denials outside the window age out.
	tracker.Observe(audit.Event{
		Action:     string(audit.EventScanDenied),
		BusinessID: businessID,
		Timestamp:  base.Add(2 * time.Minute),
	})
	assert.Equal(t, 1, tracker.Count(businessID))
}

func TestDenialTrackerIgnoresNonDenials(t *testing.T) {
	businessID := id.BusinessID(uuid.New())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracker := NewDenialTracker(3, time.Minute, logger)

	tracker.Observe(audit.Event{
		Action:     string(audit.EventScanAccepted),
		BusinessID: businessID,
		Timestamp:  time.Now().UTC(),
	})
	assert.Zero(t, tracker.Count(businessID))
}

func TestSamplerRates(t *testing.T) {
	s := NewSampler(1.0)
	for range 100 {
		assert.True(t, s.Keep("anything"), "rate 1.0 keeps everything")
	}

	s.SetRate("noisy", 0)
	for range 100 {
		assert.False(t, s.Keep("noisy"))
	}

	assert.Equal(t, 1.0, clampRate(7))
	assert.Equal(t, 0.0, clampRate(-1))
}
