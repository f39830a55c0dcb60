// Package publisher emits audit events to a store, either synchronously or
// through a buffered channel so hot request paths never block on audit I/O.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "headcount/pkg/domain"
	audit "headcount/pkg/platform/audit"
)

// Publisher emits audit events to a store. In sync mode Emit persists
// immediately; in async mode events are buffered and persisted by a
// background goroutine, and Close drains the buffer before returning.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox chan audit.Event
	done  chan struct{}
	once  sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer enables async mode with the given buffer size. When the
// buffer is full, events are dropped (and logged) rather than blocking the
// request path: an admission decision must never wait on the audit trail.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithLogger attaches a logger for drop and persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.done = make(chan struct{})
		go p.run()
	}
	return p
}

// Emit publishes an audit event. In async mode a full buffer drops the
// event; audit loss is logged but never propagated to the caller.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event",
			"action", event.Action,
			"subject", event.Subject,
		)
	}
	return nil
}

// List returns the audit trail for a business, for verification and tests.
func (p *Publisher) List(ctx context.Context, businessID id.BusinessID) ([]audit.Event, error) {
	return p.store.ListByBusiness(ctx, businessID)
}

// Close drains any buffered events and stops the background goroutine.
// Safe to call multiple times.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	p.once.Do(func() {
		close(p.inbox)
		<-p.done
	})
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.inbox {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("persist audit event failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
}
