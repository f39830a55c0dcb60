package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"headcount/internal/ban"
	"headcount/internal/identity"
	"headcount/internal/occupancy"
	"headcount/internal/policy"
	"headcount/internal/scan"
	"headcount/internal/scan/aamva"
	id "headcount/pkg/domain"
	dErrors "headcount/pkg/domain-errors"
	"headcount/pkg/requestcontext"
	"headcount/pkg/testutil"
)

// ScanHandlerSuite drives the scan endpoint through the full in-memory
// stack so the wire shape and the pipeline are exercised together.
type ScanHandlerSuite struct {
	suite.Suite

	router    http.Handler
	occupancy *occupancy.InMemory

	businessID id.BusinessID
	venueID    id.VenueID
	areaID     id.AreaID
}

func TestScanHandlerSuite(t *testing.T) {
	suite.Run(t, new(ScanHandlerSuite))
}

func (s *ScanHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hasher := identity.NewHasher("test-secret")
	scans := scan.NewInMemory()
	bans := ban.NewService(ban.NewInMemory(), hasher, scans, nil, logger)
	policies := policy.NewService(policy.NewInMemory())
	s.occupancy = occupancy.NewInMemory()
	occupancyService := occupancy.NewService(s.occupancy, nil, nil, nil, logger)

	service := scan.NewService(
		aamva.New(),
		hasher,
		scans,
		bans,
		policies,
		occupancyService,
		identity.NewInMemory(),
		nil,
		nil,
		logger,
	)

	r := chi.NewRouter()
	New(service, logger).Register(r)
	s.router = r

	s.businessID = id.BusinessID(uuid.New())
	s.venueID = id.VenueID(uuid.New())
	s.areaID = id.AreaID(uuid.New())
}

func scannerPayload(idNumber, dob, exp string) string {
	return "DAQ" + idNumber + "\n" +
		"DCSDOE\n" +
		"DACJANE\n" +
		"DBB" + dob + "\n" +
		"DBA" + exp + "\n" +
		"DAJTX\n" +
		"DBC2\n" +
		"DAK75001\n"
}

func (s *ScanHandlerSuite) submit(body map[string]any) *http.Request {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/scans", body)
	// Pin the clock so age math is deterministic.
	req = req.WithContext(requestcontext.WithTime(req.Context(), time.Date(2026, 6, 15, 22, 0, 0, 0, time.UTC)))
	return testutil.WithBusinessID(req, s.businessID.String())
}

func (s *ScanHandlerSuite) TestSubmitAccepted() {
	req := s.submit(map[string]any{
		"raw_payload": scannerPayload("A1", "20000101", "20300101"),
		"venue_id":    s.venueID.String(),
		"area_id":     s.areaID.String(),
	})

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusOK(s.T(), rr)

	resp := testutil.UnmarshalResponse[struct {
		ScanID  string `json:"scan_id"`
		Outcome string `json:"outcome"`
		Reason  string `json:"reason"`
		Data    *struct {
			FirstName    string `json:"first_name"`
			LastName     string `json:"last_name"`
			Age          int    `json:"age"`
			Gender       string `json:"gender"`
			DOB          string `json:"dob"`
			IssuingState string `json:"issuing_state"`
		} `json:"data"`
	}](s.T(), rr)

	s.Equal("ACCEPTED", resp.Outcome)
	s.Empty(resp.Reason)
	s.NotEmpty(resp.ScanID)
	s.Require().NotNil(resp.Data)
	s.Equal("JANE", resp.Data.FirstName)
	s.Equal("DOE", resp.Data.LastName)
	s.Equal(26, resp.Data.Age)
	s.Equal("F", resp.Data.Gender)
	s.Equal("2000-01-01", resp.Data.DOB)
	s.Equal("TX", resp.Data.IssuingState)

	snap, err := s.occupancy.GetSnapshot(req.Context(), s.areaID)
	s.Require().NoError(err)
	s.Equal(1, snap.CurrentOccupancy)
}

func (s *ScanHandlerSuite) TestSubmitUnreadablePayload() {
	req := s.submit(map[string]any{
		"raw_payload": "static noise",
		"venue_id":    s.venueID.String(),
	})

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "outcome", "DENIED")
	testutil.AssertJSONContains(s.T(), rr, "reason", "INVALID_FORMAT")
}

func (s *ScanHandlerSuite) TestSubmitUnderage() {
	req := s.submit(map[string]any{
		"raw_payload": scannerPayload("A2", "20060401", "20300101"),
		"venue_id":    s.venueID.String(),
		"area_id":     s.areaID.String(),
	})

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "outcome", "DENIED")
	testutil.AssertJSONContains(s.T(), rr, "reason", "UNDERAGE")

	_, err := s.occupancy.GetSnapshot(req.Context(), s.areaID)
	s.Error(err, "denied scans leave occupancy untouched")
}

func (s *ScanHandlerSuite) TestSubmitMissingPayload() {
	req := s.submit(map[string]any{
		"venue_id": s.venueID.String(),
	})

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
}

func (s *ScanHandlerSuite) TestSubmitBadVenueID() {
	req := s.submit(map[string]any{
		"raw_payload": scannerPayload("A3", "20000101", "20300101"),
		"venue_id":    "nope",
	})

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
}

func (s *ScanHandlerSuite) TestSubmitMalformedBody() {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/scans", "{not json")
	req = testutil.WithBusinessID(req, s.businessID.String())

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
}
