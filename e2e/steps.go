// Package e2e holds godog step definitions for black-box runs against a
// deployed instance. The harness supplies the TestContext implementation
// (HTTP client, response capture, seeded credentials).
package e2e

import (
	"github.com/cucumber/godog"

	"headcount/e2e/steps/occupancy"
	"headcount/e2e/steps/scan"
)

// TestContext is what the step packages need from the harness.
type TestContext interface {
	scan.TestContext
	occupancy.TestContext
}

// RegisterSteps registers all step definitions from the step packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	scan.RegisterSteps(ctx, tc)
	occupancy.RegisterSteps(ctx, tc)
}
