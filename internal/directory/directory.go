// Package directory is the read-only client of the centralized tenancy
// directory: the cross-household store of users, households and role links.
// The core consults it for exactly two questions (does household H exist,
// and what role does user U hold in H) and never writes to it.
package directory

import (
	"context"

	id "hearth/pkg/domain"
)

//go:generate mockgen -source=directory.go -destination=mocks/mocks.go -package=mocks Directory

// Role is a user's role link inside one household.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdult Role = "adult"
	RoleChild Role = "child"
	RoleNone  Role = "" // no link: the caller has no standing in the household
)

// Directory answers existence and membership questions. Implementations must
// be safe for concurrent use.
type Directory interface {
	// HouseholdExists reports whether the household is known to the
	// directory.
	HouseholdExists(ctx context.Context, householdID id.HouseholdID) (bool, error)

	// RoleOf returns the caller's role in the household, RoleNone when the
	// user has no link there. Absence of a link is a fact, not an error.
	RoleOf(ctx context.Context, userID id.UserID, householdID id.HouseholdID) (Role, error)
}
