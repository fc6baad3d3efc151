package models

import (
	"strings"
	"time"

	id "donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/validation"
)

// User is an account that can sign in and own donor records.
type User struct {
	ID           id.UserID
	Email        string
	PasswordHash string
	Role         id.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanLogin reports whether the account may authenticate.
func (u *User) CanLogin() bool {
	return u.IsActive
}

// Summary is the public view of the account. The password hash never leaves
// the service.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type UserSummary struct {
	ID        id.UserID `json:"id"`
	Email     string    `json:"email"`
	Role      id.Role   `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserList struct {
	Users []UserSummary `json:"users"`
	Total int           `json:"total"`
}

type LoginResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        UserSummary `json:"user"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`

	parsedRole id.Role
}

func (r *RegisterRequest) Normalize() {
	r.Email = validation.NormalizeEmail(r.Email)
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
}

func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	v := validation.New()
	if v.Required("email", r.Email) {
		v.Email("email", r.Email)
	}
	if v.Required("password", r.Password) {
		v.Password("password", r.Password)
	}
	role, err := id.ParseRole(r.Role)
	if err != nil {
		v.Add("%s", dErrors.MessageOf(err))
	}
	r.parsedRole = role
	return v.Err()
}

// ParsedRole returns the role resolved by Validate; regular when omitted.
func (r *RegisterRequest) ParsedRole() id.Role {
	if r.parsedRole == "" {
		return id.RoleRegular
	}
	return r.parsedRole
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = validation.NormalizeEmail(r.Email)
}

// Validate only checks presence; credential format is not revealed on login.
func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	v := validation.New()
	v.Required("email", r.Email)
	v.Required("password", r.Password)
	return v.Err()
}

// UpdateUserRequest is the body of PUT /api/auth/users/{id}. Omitted fields
// are left unchanged.
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (r *UpdateUserRequest) Normalize() {
	if r.Email != nil {
		e := validation.NormalizeEmail(*r.Email)
		r.Email = &e
	}
	if r.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*r.Role))
		r.Role = &role
	}
}

func (r *UpdateUserRequest) Validate() error {
	if r == nil || (r.Email == nil && r.Role == nil && r.IsActive == nil) {
		return dErrors.New(dErrors.CodeBadRequest, "no fields to update")
	}
	v := validation.New()
	if r.Email != nil && v.Required("email", *r.Email) {
		v.Email("email", *r.Email)
	}
	if r.Role != nil {
		if *r.Role == "" {
			v.Add("role is required")
		} else if _, err := id.ParseRole(*r.Role); err != nil {
			v.Add("%s", dErrors.MessageOf(err))
		}
	}
	return v.Err()
}
