package worker

import (
	"context"
	"log/slog"

	audit "headcount/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. Used by
// deployments that fan events out through an in-process channel instead of
// the async publisher. A store failure is logged and the worker keeps
// consuming; the audit trail degrades, the venue keeps admitting.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "persist audit event failed",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}
