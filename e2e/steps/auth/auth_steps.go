package auth

import (
	"context"
	"fmt"
	"os"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetLastStatus() int
	GetResponseField(field string) (interface{}, error)
	GetAccessToken() string
	SetAccessToken(token string)
	Save(name, value string)
	Expand(s string) string
}

// RegisterSteps registers authentication-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I register "([^"]*)" with password "([^"]*)"$`, steps.register)
	ctx.Step(`^I log in as "([^"]*)" with password "([^"]*)"$`, steps.login)
	ctx.Step(`^I am logged in as a new regular user "([^"]*)"$`, steps.loggedInAsNewUser)
	ctx.Step(`^I am logged in as the default administrator$`, steps.loggedInAsAdmin)
	ctx.Step(`^I log out$`, steps.logout)
	ctx.Step(`^I GET "([^"]*)" with invalid token "([^"]*)"$`, steps.getWithInvalidToken)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) register(ctx context.Context, email, password string) error {
	return s.tc.POST("/api/auth/register", map[string]interface{}{
		"email":    s.tc.Expand(email),
		"password": password,
	})
}

func (s *authSteps) login(ctx context.Context, email, password string) error {
	if err := s.tc.POST("/api/auth/login", map[string]interface{}{
		"email":    s.tc.Expand(email),
		"password": password,
	}); err != nil {
		return err
	}
	if s.tc.GetLastStatus() != 200 {
		return nil
	}
	token, err := s.tc.GetResponseField("data.access_token")
	if err != nil {
		return err
	}
	s.tc.SetAccessToken(fmt.Sprint(token))
	return nil
}

func (s *authSteps) loggedInAsNewUser(ctx context.Context, email string) error {
	const password = "Donor123"
	if err := s.register(ctx, email, password); err != nil {
		return err
	}
	if status := s.tc.GetLastStatus(); status != 201 {
		return fmt.Errorf("registering %s returned %d", email, status)
	}
	id, err := s.tc.GetResponseField("data.id")
	if err != nil {
		return err
	}
	s.tc.Save("user_id", fmt.Sprint(id))
	return s.requireLogin(ctx, email, password)
}

func (s *authSteps) loggedInAsAdmin(ctx context.Context) error {
	return s.requireLogin(ctx, envOr("E2E_ADMIN_EMAIL", "admin@example.com"), envOr("E2E_ADMIN_PASSWORD", "Admin123!"))
}

func (s *authSteps) requireLogin(ctx context.Context, email, password string) error {
	if err := s.login(ctx, email, password); err != nil {
		return err
	}
	if status := s.tc.GetLastStatus(); status != 200 {
		return fmt.Errorf("login as %s returned %d", email, status)
	}
	return nil
}

func (s *authSteps) logout(ctx context.Context) error {
	return s.tc.POST("/api/auth/logout", nil)
}

func (s *authSteps) getWithInvalidToken(ctx context.Context, path, token string) error {
	return s.tc.GET(path, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
