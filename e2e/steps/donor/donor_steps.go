package donor

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GetLastStatus() int
	GetResponseField(field string) (interface{}, error)
	Save(name, value string)
	Expand(s string) string
}

// RegisterSteps registers donor registry step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &donorSteps{tc: tc}

	ctx.Step(`^I register a donor "([^"]*)" aged (\d+) weighing (\d+) kg with blood type "([^"]*)"$`, steps.registerDonor)
	ctx.Step(`^I register a donor "([^"]*)" who last donated (\d+) days ago$`, steps.registerRecentDonor)
	ctx.Step(`^I save the donor id$`, steps.saveDonorID)
}

type donorSteps struct {
	tc TestContext
}

func (s *donorSteps) registerDonor(ctx context.Context, email string, age, weight int, bloodType string) error {
	return s.tc.POST("/api/donors", s.body(email, age, weight, bloodType, nil))
}

func (s *donorSteps) registerRecentDonor(ctx context.Context, email string, daysAgo int) error {
	last := time.Now().UTC().AddDate(0, 0, -daysAgo).Format(time.DateOnly)
	return s.tc.POST("/api/donors", s.body(email, 30, 70, "O+", &last))
}

func (s *donorSteps) body(email string, age, weight int, bloodType string, lastDonation *string) map[string]interface{} {
	// Born on January 1st so the age holds for the whole year.
	birth := time.Date(time.Now().UTC().Year()-age, time.January, 1, 0, 0, 0, 0, time.UTC)
	body := map[string]interface{}{
		"first_name": "Ana",
		"last_name":  "Lopez",
		"email":      s.tc.Expand(email),
		"birth_date": birth.Format(time.DateOnly),
		"blood_type": bloodType,
		"weight":     weight,
	}
	if lastDonation != nil {
		body["last_donation_date"] = *lastDonation
	}
	return body
}

func (s *donorSteps) saveDonorID(ctx context.Context) error {
	id, err := s.tc.GetResponseField("data.id")
	if err != nil {
		return err
	}
	s.tc.Save("donor_id", fmt.Sprint(id))
	return nil
}
