package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
)

func ptr[T any](v T) *T { return &v }

func TestRegisterRequest(t *testing.T) {
	t.Run("normalizes email and defaults role", func(t *testing.T) {
		req := &RegisterRequest{Email: "  Jane@Example.COM ", Password: "Secret123"}
		req.Normalize()
		require.NoError(t, req.Validate())
		assert.Equal(t, "jane@example.com", req.Email)
		assert.Equal(t, id.RoleRegular, req.ParsedRole())
	})

	t.Run("accepts administrator role", func(t *testing.T) {
		req := &RegisterRequest{Email: "a@example.com", Password: "Secret123", Role: " Administrator "}
		req.Normalize()
		require.NoError(t, req.Validate())
		assert.Equal(t, id.RoleAdministrator, req.ParsedRole())
	})

	t.Run("accumulates every problem", func(t *testing.T) {
		req := &RegisterRequest{Email: "not-an-email", Password: "short", Role: "root"}
		req.Normalize()
		err := req.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		fields := dErrors.FieldsOf(err)
		assert.Contains(t, fields, "email must be a valid email address")
		assert.Contains(t, fields, "role must be 'administrator' or 'regular'")
		assert.Greater(t, len(fields), 2)
	})

	t.Run("reports missing fields once", func(t *testing.T) {
		err := (&RegisterRequest{}).Validate()
		assert.Equal(t, []string{"email is required", "password is required"}, dErrors.FieldsOf(err))
	})
}

func TestLoginRequest(t *testing.T) {
	req := &LoginRequest{Email: " USER@example.com", Password: "x"}
	req.Normalize()
	require.NoError(t, req.Validate())
	assert.Equal(t, "user@example.com", req.Email)

	err := (&LoginRequest{Email: "user@example.com"}).Validate()
	assert.Equal(t, []string{"password is required"}, dErrors.FieldsOf(err))
}

func TestUpdateUserRequest(t *testing.T) {
	t.Run("empty body is a bad request", func(t *testing.T) {
		err := (&UpdateUserRequest{}).Validate()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("validates provided fields only", func(t *testing.T) {
		req := &UpdateUserRequest{IsActive: ptr(false)}
		require.NoError(t, req.Validate())

		req = &UpdateUserRequest{Email: ptr("bad"), Role: ptr("owner")}
		err := req.Validate()
		assert.Equal(t, []string{
			"email must be a valid email address",
			"role must be 'administrator' or 'regular'",
		}, dErrors.FieldsOf(err))
	})

	t.Run("normalizes email and role", func(t *testing.T) {
		req := &UpdateUserRequest{Email: ptr(" New@Example.com "), Role: ptr(" REGULAR")}
		req.Normalize()
		require.NoError(t, req.Validate())
		assert.Equal(t, "new@example.com", *req.Email)
		assert.Equal(t, "regular", *req.Role)
	})
}

func TestUserSummaryOmitsPasswordHash(t *testing.T) {
	u := &User{ID: id.NewUserID(), Email: "a@example.com", PasswordHash: "hash", Role: id.RoleRegular, IsActive: true}
	s := u.Summary()
	assert.Equal(t, u.ID, s.ID)
	assert.Equal(t, u.Email, s.Email)
	assert.True(t, s.IsActive)
}
