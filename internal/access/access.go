// Package access is the single authorization predicate for the API.
//
// Administrators may do anything. Regular users may create records, list and
// touch only the records they own, and never reach administrative surfaces.
// Records owned by someone else are reported as missing rather than forbidden
// so their existence is not revealed.
package access

import (
	id "donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
)

// Operation is an action an actor attempts against a record or surface.
type Operation string

const (
	OpRead       Operation = "read"
	OpCreate     Operation = "create"
	OpUpdate     Operation = "update"
	OpDelete     Operation = "delete"
	OpList       Operation = "list"
	OpAdminister Operation = "administer"
	OpStatistics Operation = "statistics"
)

// Actor is the authenticated principal, resolved from the account store.
type Actor struct {
	ID   id.UserID
	Role id.Role
}

func (a Actor) IsAdministrator() bool {
	return a.Role.IsAdministrator()
}

// Decision is the outcome of the predicate.
type Decision int

const (
	Allow Decision = iota
	DenyHidden
	DenyForbidden
	DenyUnauthenticated
)

// Decide evaluates op for actor against a record owned by owner. owner is
// ignored for operations that do not target a single record.
func Decide(actor Actor, op Operation, owner id.UserID) Decision {
	if actor.ID.IsNil() || !actor.Role.IsValid() {
		return DenyUnauthenticated
	}
	if actor.IsAdministrator() {
		return Allow
	}

	switch op {
	case OpCreate, OpList:
		return Allow
	case OpRead, OpUpdate, OpDelete:
		if actor.ID == owner {
			return Allow
		}
		return DenyHidden
	default:
		return DenyForbidden
	}
}

// Authorize converts a Decision into the matching domain error. resource names
// the record kind in not-found messages.
func Authorize(actor Actor, op Operation, owner id.UserID, resource string) error {
	switch Decide(actor, op, owner) {
	case Allow:
		return nil
	case DenyHidden:
		return dErrors.New(dErrors.CodeNotFound, resource+" not found")
	case DenyForbidden:
		return dErrors.New(dErrors.CodeForbidden, "administrator role required")
	default:
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
}

// RequireAdministrator authorizes an administrative surface.
func RequireAdministrator(actor Actor) error {
	return Authorize(actor, OpAdminister, id.UserID{}, "")
}

// ListScope returns the owner filter for list queries: nil for administrators
// (every record), the actor's own ID otherwise.
func ListScope(actor Actor) *id.UserID {
	if actor.IsAdministrator() {
		return nil
	}
	owner := actor.ID
	return &owner
}
