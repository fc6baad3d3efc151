// Package domain holds the typed identifiers and value primitives shared across
// modules. Construct them with the Parse functions at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "donorhub/pkg/domain-errors"
)

// UserID identifies an account. Distinct from DonorID so the two can never be
// swapped by accident.
type UserID uuid.UUID

// DonorID identifies a donor record.
type DonorID uuid.UUID

// NewUserID returns a random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewDonorID returns a random DonorID.
func NewDonorID() DonorID { return DonorID(uuid.New()) }

// ParseUserID parses a non-nil UUID string into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

// ParseDonorID parses a non-nil UUID string into a DonorID.
func ParseDonorID(s string) (DonorID, error) {
	u, err := parseUUID(s, "donor ID")
	return DonorID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id DonorID) String() string { return uuid.UUID(id).String() }
func (id DonorID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id DonorID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *DonorID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
