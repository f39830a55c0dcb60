package occupancy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "headcount/pkg/domain"
	dErrors "headcount/pkg/domain-errors"
)

type OccupancyServiceSuite struct {
	suite.Suite
	store   *InMemory
	service *Service

	businessID id.BusinessID
	venueID    id.VenueID
	areaID     id.AreaID
}

func TestOccupancyServiceSuite(t *testing.T) {
	suite.Run(t, new(OccupancyServiceSuite))
}

func (s *OccupancyServiceSuite) SetupTest() {
	s.store = NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(s.store, nil, nil, nil, logger)

	s.businessID = id.BusinessID(uuid.New())
	s.venueID = id.VenueID(uuid.New())
	s.areaID = id.AreaID(uuid.New())
}

func (s *OccupancyServiceSuite) input(delta int) ApplyInput {
	return ApplyInput{
		BusinessID: s.businessID,
		VenueID:    s.venueID,
		AreaID:     s.areaID,
		Delta:      delta,
		Type:       TypeManual,
	}
}

func (s *OccupancyServiceSuite) TestApplyDelta() {
	ctx := context.Background()

	s.Run("zero delta is rejected", func() {
		_, err := s.service.ApplyDelta(ctx, s.input(0))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing area is rejected", func() {
		in := s.input(1)
		in.AreaID = id.AreaID{}
		_, err := s.service.ApplyDelta(ctx, in)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("occupancy follows the step-wise clamped sum", func() {
		// A deep negative excursion must not bank negative occupancy:
		// +3 then -10 clamps to 0, so +4 lands on 4, not -3.
		deltas := []int{3, -10, 4}
		want := []int{3, 0, 4}
		for i, delta := range deltas {
			result, err := s.service.ApplyDelta(ctx, s.input(delta))
			s.Require().NoError(err)
			s.Equal(want[i], result.CurrentOccupancy)
		}

		events, err := s.store.EventsForArea(ctx, s.areaID)
		s.Require().NoError(err)
		s.Len(events, 3, "every delta is ledgered, clamped or not")
	})

	s.Run("occupancy is never negative under any delta sequence", func() {
		areaID := id.AreaID(uuid.New())
		in := s.input(0)
		in.AreaID = areaID
		for _, delta := range []int{-5, 2, -100, 7, -1, -1, -1, 3} {
			in.Delta = delta
			result, err := s.service.ApplyDelta(ctx, in)
			s.Require().NoError(err)
			s.GreaterOrEqual(result.CurrentOccupancy, 0)
		}
	})
}

func (s *OccupancyServiceSuite) TestConcurrentDeltas() {
	ctx := context.Background()

	// Every concurrent increment must land; a lost update would leave the
	// final count short.
	const workers = 50
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.ApplyDelta(ctx, s.input(1))
			s.NoError(err)
		}()
	}
	wg.Wait()

	occupancy, err := s.service.CurrentOccupancy(ctx, s.areaID)
	s.Require().NoError(err)
	s.Equal(workers, occupancy)
}

func (s *OccupancyServiceSuite) TestCurrentOccupancy() {
	ctx := context.Background()

	s.Run("unknown area reports zero, not an error", func() {
		occupancy, err := s.service.CurrentOccupancy(ctx, id.AreaID(uuid.New()))
		s.NoError(err)
		s.Equal(0, occupancy)
	})

	s.Run("reflects applied deltas", func() {
		_, err := s.service.ApplyDelta(ctx, s.input(6))
		s.Require().NoError(err)

		occupancy, err := s.service.CurrentOccupancy(ctx, s.areaID)
		s.NoError(err)
		s.Equal(6, occupancy)
	})
}

func (s *OccupancyServiceSuite) TestSetAbsolute() {
	ctx := context.Background()

	s.Run("empty area set to a manual count appends exactly one event", func() {
		result, err := s.service.SetAbsolute(ctx, s.input(0), 3, 2)
		s.Require().NoError(err)
		s.Equal(5, result.CurrentOccupancy)

		events, err := s.store.EventsForArea(ctx, s.areaID)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(5, events[0].Delta)
		s.Equal(TypeAdjustment, events[0].Type)
	})

	s.Run("matching count appends nothing", func() {
		result, err := s.service.SetAbsolute(ctx, s.input(0), 3, 2)
		s.Require().NoError(err)
		s.Equal(5, result.CurrentOccupancy)

		events, err := s.store.EventsForArea(ctx, s.areaID)
		s.Require().NoError(err)
		s.Len(events, 1)
	})

	s.Run("lower count appends a negative compensating delta", func() {
		result, err := s.service.SetAbsolute(ctx, s.input(0), 1, 1)
		s.Require().NoError(err)
		s.Equal(2, result.CurrentOccupancy)

		events, err := s.store.EventsForArea(ctx, s.areaID)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(-3, events[1].Delta)
	})

	s.Run("negative counts are rejected", func() {
		_, err := s.service.SetAbsolute(ctx, s.input(0), -1, 2)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *OccupancyServiceSuite) TestReset() {
	ctx := context.Background()

	s.Run("area at seven gets one compensating event and lands at zero", func() {
		_, err := s.service.ApplyDelta(ctx, s.input(7))
		s.Require().NoError(err)

		areaID := s.areaID
		results, err := s.service.Reset(ctx, ResetParams{
			Scope:      ScopeArea,
			BusinessID: s.businessID,
			AreaID:     &areaID,
		})
		s.Require().NoError(err)
		s.Require().Len(results, 1)
		s.True(results[0].Success)

		occupancy, err := s.service.CurrentOccupancy(ctx, areaID)
		s.Require().NoError(err)
		s.Equal(0, occupancy)

		events, err := s.store.EventsForArea(ctx, areaID)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(-7, events[1].Delta)
		s.Equal(TypeReset, events[1].Type)
	})

	s.Run("resetting an area already at zero appends nothing", func() {
		areaID := s.areaID
		results, err := s.service.Reset(ctx, ResetParams{
			Scope:      ScopeArea,
			BusinessID: s.businessID,
			AreaID:     &areaID,
		})
		s.Require().NoError(err)
		s.Require().Len(results, 1)
		s.True(results[0].Success)

		events, err := s.store.EventsForArea(ctx, areaID)
		s.Require().NoError(err)
		s.Len(events, 2)
	})

	s.Run("venue scope resets every area in the venue", func() {
		other := s.input(4)
		other.AreaID = id.AreaID(uuid.New())
		_, err := s.service.ApplyDelta(ctx, s.input(3))
		s.Require().NoError(err)
		_, err = s.service.ApplyDelta(ctx, other)
		s.Require().NoError(err)

		venueID := s.venueID
		results, err := s.service.Reset(ctx, ResetParams{
			Scope:      ScopeVenue,
			BusinessID: s.businessID,
			VenueID:    &venueID,
		})
		s.Require().NoError(err)
		s.Len(results, 2)
		for _, result := range results {
			s.True(result.Success)

			occupancy, err := s.service.CurrentOccupancy(ctx, result.AreaID)
			s.Require().NoError(err)
			s.Equal(0, occupancy)
		}
	})

	s.Run("scope without its target id is rejected", func() {
		_, err := s.service.Reset(ctx, ResetParams{Scope: ScopeVenue, BusinessID: s.businessID})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// failingResetStore fails ResetArea for one designated area.
type failingResetStore struct {
	Store
	failArea id.AreaID
}

func (f *failingResetStore) ResetArea(ctx context.Context, in ApplyInput) (int, error) {
	if in.AreaID == f.failArea {
		return 0, errors.New("snapshot lock timeout")
	}
	return f.Store.ResetArea(ctx, in)
}

func (s *OccupancyServiceSuite) TestResetPartialFailure() {
	ctx := context.Background()

	healthy := s.input(3)
	broken := s.input(5)
	broken.AreaID = id.AreaID(uuid.New())
	_, err := s.service.ApplyDelta(ctx, healthy)
	s.Require().NoError(err)
	_, err = s.service.ApplyDelta(ctx, broken)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(&failingResetStore{Store: s.store, failArea: broken.AreaID}, nil, nil, nil, logger)

	venueID := s.venueID
	results, err := service.Reset(ctx, ResetParams{
		Scope:      ScopeVenue,
		BusinessID: s.businessID,
		VenueID:    &venueID,
	})
	s.Require().NoError(err)
	s.Require().Len(results, 2)

	// One area's failure never aborts the others.
	byArea := map[id.AreaID]AreaResetResult{}
	for _, result := range results {
		byArea[result.AreaID] = result
	}
	s.True(byArea[healthy.AreaID].Success)
	s.False(byArea[broken.AreaID].Success)
	s.Contains(byArea[broken.AreaID].Error, "snapshot lock timeout")

	occupancy, err := service.CurrentOccupancy(ctx, healthy.AreaID)
	s.Require().NoError(err)
	s.Equal(0, occupancy)

	occupancy, err = service.CurrentOccupancy(ctx, broken.AreaID)
	s.Require().NoError(err)
	s.Equal(5, occupancy)
}

func (s *OccupancyServiceSuite) TestRebuild() {
	ctx := context.Background()

	s.Run("replay matches the live snapshot", func() {
		for _, delta := range []int{5, -2, -9, 4, 1} {
			_, err := s.service.ApplyDelta(ctx, s.input(delta))
			s.Require().NoError(err)
		}
		live, err := s.service.CurrentOccupancy(ctx, s.areaID)
		s.Require().NoError(err)

		rebuilt, err := s.service.Rebuild(ctx, s.businessID, s.areaID)
		s.Require().NoError(err)
		s.Equal(live, rebuilt)
	})

	s.Run("area with no events is not found", func() {
		_, err := s.service.Rebuild(ctx, s.businessID, id.AreaID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
