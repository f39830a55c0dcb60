package consumer

import (
	"log/slog"
	"sync"
	"time"

	id "headcount/pkg/domain"
	audit "headcount/pkg/platform/audit"
)

const (
	defaultDenialThreshold = 10
	defaultDenialWindow    = 5 * time.Minute
)

// DenialTracker watches the audit stream for denial bursts. A business
// whose denied-scan count crosses the threshold inside the window gets
// one warning per window; security tooling tails these logs.
type DenialTracker struct {
	mu        sync.Mutex
	threshold int
	window    time.Duration
	logger    *slog.Logger

	denials map[id.BusinessID][]time.Time
	alerted map[id.BusinessID]time.Time
}

func NewDenialTracker(threshold int, window time.Duration, logger *slog.Logger) *DenialTracker {
	return &DenialTracker{
		threshold: threshold,
		window:    window,
		logger:    logger,
		denials:   make(map[id.BusinessID][]time.Time),
		alerted:   make(map[id.BusinessID]time.Time),
	}
}

// Observe feeds one event into the tracker. Non-denial events are ignored.
func (t *DenialTracker) Observe(event audit.Event) {
	if event.Action != string(audit.EventScanDenied) || event.BusinessID.IsNil() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := event.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	cutoff := now.Add(-t.window)

	recent := t.denials[event.BusinessID][:0]
	for _, ts := range t.denials[event.BusinessID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	recent = append(recent, now)
	t.denials[event.BusinessID] = recent

	if len(recent) < t.threshold {
		return
	}
	if last, ok := t.alerted[event.BusinessID]; ok && last.After(cutoff) {
		return
	}
	t.alerted[event.BusinessID] = now
	t.logger.Warn("denial burst detected",
		"business_id", event.BusinessID.String(),
		"denials", len(recent),
		"window", t.window.String(),
		"last_reason", event.Reason,
	)
}

// Count returns the number of denials currently inside the window for a
// business, mainly for tests and diagnostics.
func (t *DenialTracker) Count(businessID id.BusinessID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.denials[businessID])
}
