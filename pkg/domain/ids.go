// Package domain holds typed identifiers shared across features. Distinct
// UUID wrapper types keep a household id from ever being passed where a user
// id is expected; the compiler enforces the distinction.
package domain

import (
	"github.com/google/uuid"

	dErrors "hearth/pkg/domain-errors"
)

type (
	// UserID identifies a user in the tenancy directory.
	UserID uuid.UUID
	// HouseholdID identifies a household and, via a pure derivation, its
	// isolated tenant store.
	HouseholdID uuid.UUID
	// EntityID identifies a row inside one household's tenant store.
	EntityID uuid.UUID
)

func (id UserID) String() string      { return uuid.UUID(id).String() }
func (id HouseholdID) String() string { return uuid.UUID(id).String() }
func (id EntityID) String() string    { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id HouseholdID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EntityID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// NewUserID generates a fresh user id.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewHouseholdID generates a fresh household id.
func NewHouseholdID() HouseholdID { return HouseholdID(uuid.New()) }

// NewEntityID generates a fresh entity id.
func NewEntityID() EntityID { return EntityID(uuid.New()) }

// parseUUID enforces the trust-boundary invariant: IDs must be valid,
// non-empty, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, kind+" id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, kind+" id cannot be the nil UUID")
	}
	return parsed, nil
}

// ParseUserID parses and validates a user id from untrusted input.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParseHouseholdID parses and validates a household id from untrusted input.
func ParseHouseholdID(raw string) (HouseholdID, error) {
	parsed, err := parseUUID(raw, "household")
	if err != nil {
		return HouseholdID{}, err
	}
	return HouseholdID(parsed), nil
}

// ParseEntityID parses and validates an entity id from untrusted input.
func ParseEntityID(raw string) (EntityID, error) {
	parsed, err := parseUUID(raw, "entity")
	if err != nil {
		return EntityID{}, err
	}
	return EntityID(parsed), nil
}
