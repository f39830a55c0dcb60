package report

import (
	"context"
	"fmt"
	"time"

	"headcount/internal/occupancy"
	id "headcount/pkg/domain"
)

// EventSource loads the ordered event window to aggregate over.
type EventSource interface {
	EventsForRange(ctx context.Context, businessID id.BusinessID, start, end time.Time) ([]occupancy.Event, error)
}

// Service produces ledger-derived reports.
type Service struct {
	events EventSource
}

func NewService(events EventSource) *Service {
	return &Service{events: events}
}

// Daily aggregates one UTC calendar day of a business's occupancy traffic.
func (s *Service) Daily(ctx context.Context, businessID id.BusinessID, date time.Time) (Summary, error) {
	start, end := Window(date)
	events, err := s.events.EventsForRange(ctx, businessID, start, end)
	if err != nil {
		return Summary{}, fmt.Errorf("load occupancy events: %w", err)
	}
	return Aggregate(events), nil
}
