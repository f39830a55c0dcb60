package occupancy

import (
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext defines the methods the occupancy steps need from the harness.
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	PUT(path string, body any) error
	GetResponseField(field string) (any, error)
	GetVenueID() string
	GetAreaID() string
}

// RegisterSteps registers occupancy step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &occupancySteps{tc: tc}

	ctx.Step(`^I apply an occupancy delta of (-?\d+)$`, steps.applyDelta)
	ctx.Step(`^I set the manual count to (\d+) male and (\d+) female$`, steps.setManualCount)
	ctx.Step(`^I read the area occupancy$`, steps.readOccupancy)
	ctx.Step(`^the current occupancy is (\d+)$`, steps.assertOccupancy)
	ctx.Step(`^I reset the area$`, steps.resetArea)
	ctx.Step(`^every reset result succeeded$`, steps.assertResetSucceeded)
}

type occupancySteps struct {
	tc TestContext
}

func (s *occupancySteps) applyDelta(delta int) error {
	return s.tc.POST("/occupancy/delta", map[string]any{
		"venue_id": s.tc.GetVenueID(),
		"area_id":  s.tc.GetAreaID(),
		"delta":    delta,
	})
}

func (s *occupancySteps) setManualCount(male, female int) error {
	return s.tc.PUT("/occupancy/areas/"+s.tc.GetAreaID(), map[string]any{
		"venue_id": s.tc.GetVenueID(),
		"male":     male,
		"female":   female,
	})
}

func (s *occupancySteps) readOccupancy() error {
	return s.tc.GET("/occupancy/areas/" + s.tc.GetAreaID())
}

func (s *occupancySteps) assertOccupancy(expected int) error {
	value, err := s.tc.GetResponseField("current_occupancy")
	if err != nil {
		return err
	}
	// JSON numbers decode as float64.
	actual, ok := value.(float64)
	if !ok {
		if str, strOK := value.(string); strOK {
			parsed, parseErr := strconv.Atoi(str)
			if parseErr != nil {
				return fmt.Errorf("current_occupancy is not a number: %v", value)
			}
			actual = float64(parsed)
		} else {
			return fmt.Errorf("current_occupancy is not a number: %v", value)
		}
	}
	if int(actual) != expected {
		return fmt.Errorf("expected occupancy %d, got %d", expected, int(actual))
	}
	return nil
}

func (s *occupancySteps) resetArea() error {
	return s.tc.POST("/occupancy/reset", map[string]any{
		"scope":     "AREA",
		"target_id": s.tc.GetAreaID(),
	})
}

func (s *occupancySteps) assertResetSucceeded() error {
	results, err := s.tc.GetResponseField("results")
	if err != nil {
		return err
	}
	list, ok := results.([]any)
	if !ok || len(list) == 0 {
		return fmt.Errorf("reset returned no results")
	}
	for _, entry := range list {
		item, ok := entry.(map[string]any)
		if !ok {
			return fmt.Errorf("unexpected reset result shape: %v", entry)
		}
		if success, _ := item["success"].(bool); !success {
			return fmt.Errorf("reset failed for area %v: %v", item["area_id"], item["error"])
		}
	}
	return nil
}
