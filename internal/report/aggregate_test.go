package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headcount/internal/occupancy"
	id "headcount/pkg/domain"
	"headcount/pkg/requestcontext"
)

func event(delta int, at time.Time, seq int64) occupancy.Event {
	return occupancy.Event{
		ID:        id.EventID(uuid.New()),
		Seq:       seq,
		Delta:     delta,
		Type:      occupancy.TypeScan,
		CreatedAt: at,
	}
}

func TestAggregate(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	t.Run("empty window yields zero summary", func(t *testing.T) {
		summary := Aggregate(nil)
		assert.Zero(t, summary.TotalEntries)
		assert.Zero(t, summary.TotalExits)
		assert.Zero(t, summary.PeakOccupancy)
		assert.Zero(t, summary.ClosingOccupancy)
		for hour, bucket := range summary.Hourly {
			assert.Equal(t, hour, bucket.Hour)
			assert.Zero(t, bucket.Entries)
		}
	})

	t.Run("typical day", func(t *testing.T) {
		events := []occupancy.Event{
			event(5, day.Add(9*time.Hour), 1),
			event(-2, day.Add(9*time.Hour+30*time.Minute), 2),
			event(3, day.Add(14*time.Hour), 3),
		}

		summary := Aggregate(events)
		assert.Equal(t, 8, summary.TotalEntries)
		assert.Equal(t, 2, summary.TotalExits)
		assert.Equal(t, 5, summary.PeakOccupancy)
		assert.Equal(t, 6, summary.ClosingOccupancy)

		assert.Equal(t, 5, summary.Hourly[9].Entries)
		assert.Equal(t, 2, summary.Hourly[9].Exits)
		assert.Equal(t, 5, summary.Hourly[9].Peak)

		assert.Equal(t, 3, summary.Hourly[14].Entries)
		assert.Equal(t, 0, summary.Hourly[14].Exits)
		assert.Equal(t, 6, summary.Hourly[14].Peak)

		assert.Zero(t, summary.Hourly[10].Entries)
	})

	t.Run("exits exceeding entries clamp the running count", func(t *testing.T) {
		events := []occupancy.Event{
			event(2, day.Add(20*time.Hour), 1),
			event(-10, day.Add(21*time.Hour), 2),
			event(4, day.Add(22*time.Hour), 3),
		}

		summary := Aggregate(events)
		assert.Equal(t, 6, summary.TotalEntries)
		assert.Equal(t, 10, summary.TotalExits)
		assert.Equal(t, 4, summary.ClosingOccupancy, "clamp keeps the deficit from banking")
	})

	t.Run("window boundaries", func(t *testing.T) {
		start, end := Window(time.Date(2026, 3, 14, 17, 45, 0, 0, time.UTC))
		require.Equal(t, day, start)
		require.Equal(t, day.AddDate(0, 0, 1), end)
	})
}

func TestServiceDaily(t *testing.T) {
	store := occupancy.NewInMemory()
	service := NewService(store)

	businessID := id.BusinessID(uuid.New())
	venueID := id.VenueID(uuid.New())
	areaID := id.AreaID(uuid.New())
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	apply := func(delta int, at time.Time) {
		t.Helper()
		ctx := requestcontext.WithTime(context.Background(), at)
		_, err := store.ApplyDelta(ctx, occupancy.ApplyInput{
			BusinessID: businessID,
			VenueID:    venueID,
			AreaID:     areaID,
			Delta:      delta,
			Type:       occupancy.TypeScan,
		})
		require.NoError(t, err)
	}

	apply(5, day.Add(9*time.Hour))
	apply(-2, day.Add(9*time.Hour+30*time.Minute))
	apply(3, day.Add(14*time.Hour))
	// Outside the window; must not leak in.
	apply(100, day.AddDate(0, 0, 1))
	apply(100, day.Add(-time.Hour))

	summary, err := service.Daily(context.Background(), businessID, day)
	require.NoError(t, err)
	assert.Equal(t, 8, summary.TotalEntries)
	assert.Equal(t, 2, summary.TotalExits)
	assert.Equal(t, 5, summary.PeakOccupancy)
	assert.Equal(t, 6, summary.ClosingOccupancy)

	other, err := service.Daily(context.Background(), id.BusinessID(uuid.New()), day)
	require.NoError(t, err)
	assert.Zero(t, other.TotalEntries, "other businesses see nothing")
}
