package e2e

import (
	"github.com/cucumber/godog"

	"donorhub/e2e/steps/auth"
	"donorhub/e2e/steps/common"
	"donorhub/e2e/steps/donor"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register authentication-specific steps
	auth.RegisterSteps(ctx, tc)

	// Register donor registry steps
	donor.RegisterSteps(ctx, tc)
}
