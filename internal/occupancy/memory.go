package occupancy

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	id "headcount/pkg/domain"
	"headcount/pkg/platform/sentinel"
	"headcount/pkg/requestcontext"
)

// InMemory is a mutex-serialized Store for unit tests and embedded use.
// One lock covers all areas; the postgres store serializes per area.
type InMemory struct {
	mu        sync.Mutex
	seq       int64
	events    []Event
	snapshots map[id.AreaID]*Snapshot
}

func NewInMemory() *InMemory {
	return &InMemory{snapshots: make(map[id.AreaID]*Snapshot)}
}

func (s *InMemory) ApplyDelta(ctx context.Context, in ApplyInput) (ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(ctx, in), nil
}

// applyLocked appends an event and applies the clamped delta. Callers hold s.mu.
func (s *InMemory) applyLocked(ctx context.Context, in ApplyInput) ApplyResult {
	s.seq++
	event := Event{
		ID:         id.EventID(uuid.New()),
		Seq:        s.seq,
		BusinessID: in.BusinessID,
		VenueID:    in.VenueID,
		AreaID:     in.AreaID,
		DeviceID:   in.DeviceID,
		UserID:     in.UserID,
		Delta:      in.Delta,
		Type:       in.Type,
		CreatedAt:  requestcontext.Now(ctx),
	}
	s.events = append(s.events, event)

	snap, ok := s.snapshots[in.AreaID]
	if !ok {
		snap = &Snapshot{AreaID: in.AreaID, BusinessID: in.BusinessID, VenueID: in.VenueID}
		s.snapshots[in.AreaID] = snap
	}
	snap.CurrentOccupancy = clamp(snap.CurrentOccupancy + in.Delta)
	snap.LastEventID = event.ID
	snap.UpdatedAt = event.CreatedAt

	return ApplyResult{EventID: event.ID, CurrentOccupancy: snap.CurrentOccupancy}
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func (s *InMemory) GetSnapshot(_ context.Context, areaID id.AreaID) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[areaID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *snap
	return &clone, nil
}

func (s *InMemory) SetAbsolute(ctx context.Context, in ApplyInput, target int) (ApplyResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := 0
	if snap, ok := s.snapshots[in.AreaID]; ok {
		current = snap.CurrentOccupancy
	}
	if target < 0 {
		target = 0
	}
	if current == target {
		return ApplyResult{CurrentOccupancy: current}, false, nil
	}
	in.Delta = target - current
	return s.applyLocked(ctx, in), true, nil
}

func (s *InMemory) ResetArea(ctx context.Context, in ApplyInput) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[in.AreaID]
	if !ok || snap.CurrentOccupancy == 0 {
		return 0, nil
	}
	cleared := snap.CurrentOccupancy
	in.BusinessID = snap.BusinessID
	in.VenueID = snap.VenueID
	in.Delta = -cleared
	in.Type = TypeReset
	s.applyLocked(ctx, in)
	return cleared, nil
}

func (s *InMemory) RebuildSnapshot(_ context.Context, areaID id.AreaID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		occupancy int
		last      id.EventID
		lastAt    time.Time
		found     bool
	)
	for _, event := range s.events {
		if event.AreaID != areaID {
			continue
		}
		occupancy = clamp(occupancy + event.Delta)
		last = event.ID
		lastAt = event.CreatedAt
		found = true
	}
	if !found {
		return 0, sentinel.ErrNotFound
	}

	snap := s.snapshots[areaID]
	snap.CurrentOccupancy = occupancy
	snap.LastEventID = last
	snap.UpdatedAt = lastAt
	return occupancy, nil
}

func (s *InMemory) AreasForVenue(_ context.Context, venueID id.VenueID) ([]id.AreaID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var areas []id.AreaID
	for areaID, snap := range s.snapshots {
		if snap.VenueID == venueID {
			areas = append(areas, areaID)
		}
	}
	sortAreas(areas)
	return areas, nil
}

func (s *InMemory) AreasForBusiness(_ context.Context, businessID id.BusinessID) ([]id.AreaID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var areas []id.AreaID
	for areaID, snap := range s.snapshots {
		if snap.BusinessID == businessID {
			areas = append(areas, areaID)
		}
	}
	sortAreas(areas)
	return areas, nil
}

func sortAreas(areas []id.AreaID) {
	sort.Slice(areas, func(i, j int) bool { return areas[i].String() < areas[j].String() })
}

func (s *InMemory) EventsForArea(_ context.Context, areaID id.AreaID) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []Event
	for _, event := range s.events {
		if event.AreaID == areaID {
			events = append(events, event)
		}
	}
	return events, nil
}

func (s *InMemory) EventsForRange(_ context.Context, businessID id.BusinessID, start, end time.Time) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []Event
	for _, event := range s.events {
		if event.BusinessID != businessID {
			continue
		}
		if event.CreatedAt.Before(start) || !event.CreatedAt.Before(end) {
			continue
		}
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].Seq < events[j].Seq
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}
