package scan

import (
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext defines the methods the scan steps need from the harness.
type TestContext interface {
	POST(path string, body any) error
	GetResponseField(field string) (any, error)
	GetVenueID() string
	GetAreaID() string
	SetScanID(scanID string)
	GetScanID() string
}

// RegisterSteps registers admission-flow step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &scanSteps{tc: tc}

	ctx.Step(`^I submit a scan for a patron born on "([^"]*)" expiring on "([^"]*)"$`, steps.submitScan)
	ctx.Step(`^I submit an unreadable scan payload$`, steps.submitUnreadable)
	ctx.Step(`^the scan outcome is "([^"]*)"$`, steps.assertOutcome)
	ctx.Step(`^the denial reason is "([^"]*)"$`, steps.assertReason)
	ctx.Step(`^I save the scan ID$`, steps.saveScanID)
	ctx.Step(`^I ban the scanned patron for "([^"]*)"$`, steps.banScannedPatron)
}

type scanSteps struct {
	tc TestContext
}

func (s *scanSteps) submitScan(dob, exp string) error {
	payload := "DAQE2E001\n" +
		"DCSDOE\n" +
		"DACJANE\n" +
		"DBB" + dob + "\n" +
		"DBA" + exp + "\n" +
		"DAJTX\n" +
		"DBC2\n" +
		"DAK75001\n"
	return s.tc.POST("/scans", map[string]any{
		"raw_payload": payload,
		"venue_id":    s.tc.GetVenueID(),
		"area_id":     s.tc.GetAreaID(),
	})
}

func (s *scanSteps) submitUnreadable() error {
	return s.tc.POST("/scans", map[string]any{
		"raw_payload": "static noise",
		"venue_id":    s.tc.GetVenueID(),
	})
}

func (s *scanSteps) assertOutcome(expected string) error {
	outcome, err := s.tc.GetResponseField("outcome")
	if err != nil {
		return err
	}
	if outcome != expected {
		return fmt.Errorf("expected outcome %q, got %v", expected, outcome)
	}
	return nil
}

func (s *scanSteps) assertReason(expected string) error {
	reason, err := s.tc.GetResponseField("reason")
	if err != nil {
		return err
	}
	if reason != expected {
		return fmt.Errorf("expected reason %q, got %v", expected, reason)
	}
	return nil
}

func (s *scanSteps) saveScanID() error {
	scanID, err := s.tc.GetResponseField("scan_id")
	if err != nil {
		return err
	}
	id, ok := scanID.(string)
	if !ok || id == "" {
		return fmt.Errorf("response has no scan_id")
	}
	s.tc.SetScanID(id)
	return nil
}

func (s *scanSteps) banScannedPatron(reason string) error {
	return s.tc.POST("/bans", map[string]any{
		"scope":       "BUSINESS",
		"scan_id":     s.tc.GetScanID(),
		"reason_code": reason,
		"duration":    "PERMANENT",
	})
}
