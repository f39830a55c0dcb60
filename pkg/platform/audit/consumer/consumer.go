// Package consumer materializes the Kafka audit stream back into the
// queryable audit_events table. The stream is the source of truth; the
// table is a projection, so processing is idempotent and malformed
// records are logged and skipped rather than blocking the partition.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	id "headcount/pkg/domain"
	audit "headcount/pkg/platform/audit"
)

// Materializer persists events under their stream-assigned ID so
// redelivered records collapse into one row.
type Materializer interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// Consumer reads the audit topic and projects it per category:
// compliance events always materialize, operations events are sampled,
// security events additionally feed the denial tracker.
type Consumer struct {
	client  *kgo.Client
	store   Materializer
	sampler *Sampler
	denials *DenialTracker
	logger  *slog.Logger
}

// New joins the given consumer group on the audit topic.
func New(brokers []string, group, topic string, store Materializer, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit consumer: %w", err)
	}
	return &Consumer{
		client:  client,
		store:   store,
		sampler: NewSampler(1.0),
		denials: NewDenialTracker(defaultDenialThreshold, defaultDenialWindow, logger),
		logger:  logger,
	}, nil
}

// Sampler returns the ops sampler so deployments can dial down
// high-volume actions.
func (c *Consumer) Sampler() *Sampler { return c.sampler }

// Run polls until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "audit fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})
		fetches.EachRecord(func(record *kgo.Record) {
			c.handleRecord(ctx, record)
		})
	}
}

// Close releases the Kafka client.
func (c *Consumer) Close() {
	c.client.Close()
}

// streamPayload mirrors the outbox wire shape.
type streamPayload struct {
	ID           string `json:"ID"`
	Category     string `json:"Category"`
	Timestamp    string `json:"Timestamp"`
	BusinessID   string `json:"BusinessID"`
	UserID       string `json:"UserID"`
	Subject      string `json:"Subject"`
	Action       string `json:"Action"`
	Decision     string `json:"Decision"`
	Reason       string `json:"Reason"`
	RequestID    string `json:"RequestID"`
	SubjectToken string `json:"SubjectToken"`
}

func (c *Consumer) handleRecord(ctx context.Context, record *kgo.Record) {
	var payload streamPayload
	if err := json.Unmarshal(record.Value, &payload); err != nil {
		c.logger.ErrorContext(ctx, "malformed audit record skipped",
			"key", string(record.Key),
			"error", err,
		)
		return
	}

	eventID, err := uuid.Parse(payload.ID)
	if err != nil {
		c.logger.ErrorContext(ctx, "audit record without usable event ID skipped",
			"key", string(record.Key),
			"error", err,
		)
		return
	}

	event := audit.Event{
		Category:     audit.EventCategory(payload.Category),
		Subject:      payload.Subject,
		Action:       payload.Action,
		Decision:     payload.Decision,
		Reason:       payload.Reason,
		RequestID:    payload.RequestID,
		SubjectToken: payload.SubjectToken,
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp); err == nil {
		event.Timestamp = ts
	} else {
		event.Timestamp = time.Now().UTC()
	}
	if parsed, err := uuid.Parse(payload.BusinessID); err == nil {
		event.BusinessID = id.BusinessID(parsed)
	}
	if parsed, err := uuid.Parse(payload.UserID); err == nil {
		event.UserID = id.UserID(parsed)
	}

	switch event.Category {
	case audit.CategoryOperations:
		if !c.sampler.Keep(event.Action) {
			return
		}
	case audit.CategorySecurity:
		c.denials.Observe(event)
	case audit.CategoryCompliance:
		if event.Action == string(audit.EventScanDenied) {
			c.denials.Observe(event)
		}
	}

	if err := c.store.AppendWithID(ctx, eventID, event); err != nil {
		c.logger.ErrorContext(ctx, "materialize audit event failed",
			"event_id", eventID,
			"action", event.Action,
			"error", err,
		)
	}
}
