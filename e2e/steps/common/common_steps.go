package common

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	PUT(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	DELETE(path string) error
	GetLastStatus() int
	GetResponseField(field string) (interface{}, error)
	Save(name, value string)
	Expand(s string) string
}

// RegisterSteps registers request and assertion steps shared by all features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I DELETE "([^"]*)"$`, steps.delete)
	ctx.Step(`^I POST to "([^"]*)" with body:$`, steps.postBody)
	ctx.Step(`^I PUT to "([^"]*)" with body:$`, steps.putBody)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, steps.fieldShouldBeBool)
	ctx.Step(`^the response field "([^"]*)" should equal (\d+)$`, steps.fieldShouldEqualNumber)
	ctx.Step(`^the response should contain field "([^"]*)"$`, steps.shouldContainField)
	ctx.Step(`^I save the response field "([^"]*)" as "([^"]*)"$`, steps.saveField)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path, nil)
}

func (s *commonSteps) delete(ctx context.Context, path string) error {
	return s.tc.DELETE(path)
}

func (s *commonSteps) postBody(ctx context.Context, path string, body *godog.DocString) error {
	payload, err := s.decode(body)
	if err != nil {
		return err
	}
	return s.tc.POST(path, payload)
}

func (s *commonSteps) putBody(ctx context.Context, path string, body *godog.DocString) error {
	payload, err := s.decode(body)
	if err != nil {
		return err
	}
	return s.tc.PUT(path, payload)
}

func (s *commonSteps) decode(body *godog.DocString) (map[string]interface{}, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(s.tc.Expand(body.Content)), &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON body in step: %w", err)
	}
	return payload, nil
}

func (s *commonSteps) statusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.GetLastStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d", expected, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(ctx context.Context, field, expected string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != s.tc.Expand(expected) {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBeBool(ctx context.Context, field, expected string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	b, ok := v.(bool)
	if !ok || fmt.Sprint(b) != expected {
		return fmt.Errorf("expected %s to be %s, got %v", field, expected, v)
	}
	return nil
}

func (s *commonSteps) fieldShouldEqualNumber(ctx context.Context, field string, expected int) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	n, ok := v.(float64)
	if !ok || int(n) != expected {
		return fmt.Errorf("expected %s to equal %d, got %v", field, expected, v)
	}
	return nil
}

func (s *commonSteps) shouldContainField(ctx context.Context, field string) error {
	_, err := s.tc.GetResponseField(field)
	return err
}

func (s *commonSteps) saveField(ctx context.Context, field, name string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	s.tc.Save(name, fmt.Sprint(v))
	return nil
}
