//go:build integration

package outbox_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	id "headcount/pkg/domain"
	audit "headcount/pkg/platform/audit"
	"headcount/pkg/platform/audit/outbox"
	auditpostgres "headcount/pkg/platform/audit/store/postgres"
	"headcount/pkg/testutil/containers"
)

type RelayIntegrationSuite struct {
	suite.Suite
	ctx      context.Context
	postgres *containers.PostgresContainer
	redpanda *containers.RedpandaContainer
	store    *auditpostgres.Store
}

func TestRelayIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RelayIntegrationSuite))
}

func (s *RelayIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
	s.store = auditpostgres.New(s.postgres.DB)
}

func (s *RelayIntegrationSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "outbox", "audit_events"))
}

// startRelay runs a relay in the background and stops it when the test ends.
func (s *RelayIntegrationSuite) startRelay(topic string) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	relay, err := outbox.NewRelay(s.ctx, s.postgres.DB, s.redpanda.Brokers, topic, 50*time.Millisecond, logger)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(ctx)
	}()
	s.T().Cleanup(func() {
		cancel()
		<-done
		relay.Close()
	})
}

func (s *RelayIntegrationSuite) newConsumer(topic string) *kgo.Client {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	s.T().Cleanup(client.Close)
	return client
}

func (s *RelayIntegrationSuite) pollRecords(client *kgo.Client, want int) []*kgo.Record {
	deadline := time.Now().Add(15 * time.Second)
	var records []*kgo.Record
	for len(records) < want && time.Now().Before(deadline) {
		pollCtx, cancel := context.WithTimeout(s.ctx, time.Second)
		fetches := client.PollFetches(pollCtx)
		cancel()
		fetches.EachRecord(func(r *kgo.Record) {
			records = append(records, r)
		})
	}
	s.Require().Len(records, want, "expected %d records on the audit topic", want)
	return records
}

func (s *RelayIntegrationSuite) TestRelayPublishesOutboxRows() {
	topic := "audit-events-" + uuid.NewString()
	s.startRelay(topic)

	businessID := id.BusinessID(uuid.New())
	err := s.store.Append(s.ctx, audit.Event{
		Timestamp:  time.Now().UTC(),
		BusinessID: businessID,
		Subject:    uuid.NewString(),
		Action:     string(audit.EventBanCreated),
		Reason:     "FIGHTING",
	})
	s.Require().NoError(err)

	records := s.pollRecords(s.newConsumer(topic), 1)
	record := records[0]

	s.Equal(businessID.String(), string(record.Key),
		"records are keyed by business so per-business ordering survives partitioning")
	s.Require().Len(record.Headers, 1)
	s.Equal("event_type", record.Headers[0].Key)
	s.Equal(string(audit.EventBanCreated), string(record.Headers[0].Value))

	var payload struct {
		ID       string
		Category string
		Action   string
		Reason   string
	}
	s.Require().NoError(json.Unmarshal(record.Value, &payload))
	s.NotEmpty(payload.ID)
	s.Equal(string(audit.CategoryCompliance), payload.Category)
	s.Equal(string(audit.EventBanCreated), payload.Action)
	s.Equal("FIGHTING", payload.Reason)

	s.Eventually(func() bool {
		var pending int
		err := s.postgres.DB.QueryRowContext(s.ctx,
			`SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&pending)
		return err == nil && pending == 0
	}, 10*time.Second, 100*time.Millisecond, "published rows must be marked")
}

// TestRelayHonorsExplicitCategory verifies an emitter-set category survives
// to the stream instead of being re-derived from the action.
func (s *RelayIntegrationSuite) TestRelayHonorsExplicitCategory() {
	topic := "audit-events-" + uuid.NewString()
	s.startRelay(topic)

	err := s.store.Append(s.ctx, audit.Event{
		Category:   audit.CategorySecurity,
		Timestamp:  time.Now().UTC(),
		BusinessID: id.BusinessID(uuid.New()),
		Subject:    uuid.NewString(),
		Action:     string(audit.EventSnapshotRebuilt),
	})
	s.Require().NoError(err)

	records := s.pollRecords(s.newConsumer(topic), 1)

	var payload struct{ Category string }
	s.Require().NoError(json.Unmarshal(records[0].Value, &payload))
	s.Equal(string(audit.CategorySecurity), payload.Category,
		"explicit category wins over the action-derived one")
}

func (s *RelayIntegrationSuite) TestRelayPreservesPerBusinessOrder() {
	topic := "audit-events-" + uuid.NewString()
	s.startRelay(topic)

	businessID := id.BusinessID(uuid.New())
	actions := []audit.AuditEvent{
		audit.EventScanAccepted,
		audit.EventScanDenied,
		audit.EventOccupancyReset,
	}
	for _, action := range actions {
		err := s.store.Append(s.ctx, audit.Event{
			Timestamp:  time.Now().UTC(),
			BusinessID: businessID,
			Subject:    uuid.NewString(),
			Action:     string(action),
		})
		s.Require().NoError(err)
	}

	records := s.pollRecords(s.newConsumer(topic), len(actions))
	for i, record := range records {
		s.Equal(businessID.String(), string(record.Key))
		s.Equal(string(actions[i]), string(record.Headers[0].Value),
			"outbox rows publish in insertion order")
	}
}

func (s *RelayIntegrationSuite) TestRelayWithoutBusinessKeysByEvent() {
	topic := "audit-events-" + uuid.NewString()
	s.startRelay(topic)

	err := s.store.Append(s.ctx, audit.Event{
		Timestamp: time.Now().UTC(),
		Subject:   uuid.NewString(),
		Action:    string(audit.EventSnapshotRebuilt),
	})
	s.Require().NoError(err)

	records := s.pollRecords(s.newConsumer(topic), 1)
	key, err := uuid.Parse(string(records[0].Key))
	s.Require().NoError(err, "events without a business fall back to a per-event key")
	s.NotEqual(uuid.Nil, key)
}
