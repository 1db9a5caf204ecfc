// Package tenantstore owns per-household isolated stores: resolving a
// household id to a ready handle, provisioning its schema on first access,
// and guaranteeing that no handle ever spans two households.
package tenantstore

import (
	"database/sql"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "hearth/pkg/domain"
)

// Store is the handle to one household's isolated store: a dedicated
// PostgreSQL schema inside the shared tenant database. All queries issued
// through a Store are qualified by its schema, so rows from another
// household are unreachable by construction.
type Store struct {
	db          *sql.DB
	householdID id.HouseholdID
	schema      string
}

// HouseholdID returns the household this handle is scoped to.
func (s *Store) HouseholdID() id.HouseholdID { return s.householdID }

// DB exposes the underlying database for repositories. Queries must go
// through Table for name qualification.
func (s *Store) DB() *sql.DB { return s.db }

// Table returns the fully qualified, quoted name of a table inside this
// household's schema.
func (s *Store) Table(name string) string {
	return pq.QuoteIdentifier(s.schema) + "." + pq.QuoteIdentifier(name)
}

// SchemaName derives the storage unit name for a household. Pure function
// of the id, no randomness and no time, so the registry can always
// recompute the same location without a side lookup.
func SchemaName(householdID id.HouseholdID) string {
	raw := uuid.UUID(householdID)
	return "household_" + hex.EncodeToString(raw[:])
}
