package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "headcount/pkg/domain"
	audit "headcount/pkg/platform/audit"
	"headcount/pkg/platform/audit/store/memory"
)

func TestWorkerDrainsChannel(t *testing.T) {
	store := memory.NewInMemoryStore()
	inbox := make(chan audit.Event, 4)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	businessID := id.BusinessID(uuid.New())
	for _, action := range []audit.AuditEvent{audit.EventScanAccepted, audit.EventBanCreated} {
		inbox <- audit.Event{
			BusinessID: businessID,
			Action:     string(action),
			Timestamp:  time.Now().UTC(),
		}
	}
	close(inbox)

	w := NewWorker(store, inbox, logger)
	require.NoError(t, w.Run(context.Background()), "closed inbox ends the run cleanly")

	events, err := store.ListByBusiness(context.Background(), businessID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, string(audit.EventScanAccepted), events[0].Action)
	assert.Equal(t, string(audit.EventBanCreated), events[1].Action)
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	store := memory.NewInMemoryStore()
	inbox := make(chan audit.Event)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewWorker(store, inbox, logger).Run(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}

type failingStore struct{ calls int }

func (s *failingStore) Append(context.Context, audit.Event) error {
	s.calls++
	return errors.New("disk full")
}

func (s *failingStore) ListByBusiness(context.Context, id.BusinessID) ([]audit.Event, error) {
	return nil, nil
}

func (s *failingStore) ListRecent(context.Context, int) ([]audit.Event, error) {
	return nil, nil
}

func TestWorkerKeepsConsumingPastStoreErrors(t *testing.T) {
	store := &failingStore{}
	inbox := make(chan audit.Event, 2)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	inbox <- audit.Event{Action: string(audit.EventScanDenied)}
	inbox <- audit.Event{Action: string(audit.EventScanDenied)}
	close(inbox)

	require.NoError(t, NewWorker(store, inbox, logger).Run(context.Background()))
	assert.Equal(t, 2, store.calls, "a store failure must not stop the worker")
}
