package e2e

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/cucumber/godog"
)

func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("E2E_BASE_URL")
	if baseURL == "" {
		t.Skip("E2E_BASE_URL not set; start the server and point the suite at it")
	}

	suite := godog.TestSuite{
		Name: "donorhub",
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			tc := NewTestContext(baseURL)
			ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				tc.SetAccessToken("")
				tc.Save("run", strconv.FormatInt(time.Now().UnixNano(), 36))
				return ctx, nil
			})
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("e2e scenarios failed")
	}
}
