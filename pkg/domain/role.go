package domain

import dErrors "donorhub/pkg/domain-errors"

// Role is the access level of an account.
// Invariant: exactly one of RoleAdministrator or RoleRegular.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleRegular       Role = "regular"
)

// ParseRole constructs a Role from external input. An empty value yields
// RoleRegular, the default for self-registration.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return RoleRegular, nil
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "role must be 'administrator' or 'regular'")
	}
	return r, nil
}

func (r Role) IsValid() bool {
	return r == RoleAdministrator || r == RoleRegular
}

func (r Role) IsAdministrator() bool {
	return r == RoleAdministrator
}

func (r Role) String() string {
	return string(r)
}
