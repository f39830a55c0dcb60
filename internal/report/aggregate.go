// Package report derives traffic summaries from the occupancy event ledger.
// Aggregation is a pure windowed replay: it never touches snapshots and has
// no side effects, so a report can be recomputed for any historical window.
package report

import (
	"time"

	"headcount/internal/occupancy"
)

// HourBucket is one hour's traffic within the report window.
type HourBucket struct {
	Hour    int `json:"hour"`
	Entries int `json:"entries"`
	Exits   int `json:"exits"`
	Peak    int `json:"peak"`
}

// Summary is the aggregate over one report window.
type Summary struct {
	TotalEntries     int            `json:"total_entries"`
	TotalExits       int            `json:"total_exits"`
	PeakOccupancy    int            `json:"peak_occupancy"`
	ClosingOccupancy int            `json:"closing_occupancy"`
	Hourly           [24]HourBucket `json:"hourly_breakdown"`
}

// Aggregate replays events in order with a running counter seeded at zero
// for the window. Positive deltas count as entries, negative as exits.
// PeakOccupancy records the level held entering each event; hourly peaks
// record the level reached within the hour. Hours are UTC. Events must
// already be ordered by (timestamp, sequence); an empty window yields the
// zero Summary.
func Aggregate(events []occupancy.Event) Summary {
	var summary Summary
	for hour := range summary.Hourly {
		summary.Hourly[hour].Hour = hour
	}

	running := 0
	for i := range events {
		event := &events[i]
		hour := event.CreatedAt.UTC().Hour()
		bucket := &summary.Hourly[hour]

		if running > summary.PeakOccupancy {
			summary.PeakOccupancy = running
		}

		if event.Delta > 0 {
			summary.TotalEntries += event.Delta
			bucket.Entries += event.Delta
		} else {
			summary.TotalExits += -event.Delta
			bucket.Exits += -event.Delta
		}

		running += event.Delta
		if running < 0 {
			running = 0
		}
		if running > bucket.Peak {
			bucket.Peak = running
		}
	}

	summary.ClosingOccupancy = running
	return summary
}

// Window converts a civil date to its UTC day window [start, end).
func Window(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
