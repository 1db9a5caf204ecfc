package tenantstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// tableSpec declares a table and its columns in creation order. The
// provisioner is additive-only: it creates what is missing and never drops
// or renames existing structures.
type tableSpec struct {
	name    string
	columns []columnSpec
}

type columnSpec struct {
	name string
	// definition is the full column DDL including type and default; the
	// default must be safe to apply to existing rows.
	definition string
}

// versionedColumns are shared by every mutable entity table: optimistic
// version stamp, timestamps, soft-delete marker.
var versionedColumns = []columnSpec{
	{"version", "BIGINT NOT NULL DEFAULT 1"},
	{"created_at", "TIMESTAMPTZ NOT NULL DEFAULT now()"},
	{"updated_at", "TIMESTAMPTZ NOT NULL DEFAULT now()"},
	{"deleted_at", "TIMESTAMPTZ"},
}

// tenantTables is the full table set of one household store. Encrypted
// columns are TEXT: they hold the three-part hex ciphertext format.
var tenantTables = []tableSpec{
	{
		name: "members",
		columns: append([]columnSpec{
			{"id", "UUID PRIMARY KEY"},
			{"name", "TEXT NOT NULL"},
			{"email", "TEXT NOT NULL DEFAULT ''"},
			{"date_of_birth", "TEXT NOT NULL DEFAULT ''"},
			{"role", "TEXT NOT NULL DEFAULT 'adult'"},
		}, versionedColumns...),
	},
	{
		name: "assets",
		columns: append([]columnSpec{
			{"id", "UUID PRIMARY KEY"},
			{"name", "TEXT NOT NULL"},
			{"category", "TEXT NOT NULL DEFAULT ''"},
			{"serial_number", "TEXT NOT NULL DEFAULT ''"},
			{"purchased_at", "TIMESTAMPTZ"},
			{"details", "JSONB"},
		}, versionedColumns...),
	},
	{
		name: "finance_accounts",
		columns: append([]columnSpec{
			{"id", "UUID PRIMARY KEY"},
			{"institution", "TEXT NOT NULL"},
			{"account_number", "TEXT NOT NULL DEFAULT ''"},
			{"currency", "TEXT NOT NULL DEFAULT 'USD'"},
			{"details", "JSONB"},
		}, versionedColumns...),
	},
	{
		name: "audit_log",
		columns: []columnSpec{
			{"id", "UUID PRIMARY KEY"},
			{"actor_user_id", "UUID NOT NULL"},
			{"action", "TEXT NOT NULL"},
			{"entity_type", "TEXT NOT NULL"},
			{"entity_id", "UUID"},
			{"metadata", "JSONB"},
			{"ip_address", "TEXT NOT NULL DEFAULT ''"},
			{"user_agent", "TEXT NOT NULL DEFAULT ''"},
			{"created_at", "TIMESTAMPTZ NOT NULL DEFAULT now()"},
		},
	},
}

// ensureSchema provisions one household's schema. Idempotent and safe to
// invoke on every request: existing tables gain missing columns, existing
// columns are left untouched.
func ensureSchema(ctx context.Context, db *sql.DB, schema string) error {
	quoted := pq.QuoteIdentifier(schema)
	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoted); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	for _, table := range tenantTables {
		if err := ensureTable(ctx, db, schema, table); err != nil {
			return err
		}
	}
	return nil
}

func ensureTable(ctx context.Context, db *sql.DB, schema string, spec tableSpec) error {
	qualified := pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(spec.name)

	defs := make([]string, 0, len(spec.columns))
	for _, col := range spec.columns {
		defs = append(defs, pq.QuoteIdentifier(col.name)+" "+col.definition)
	}
	createStmt := "CREATE TABLE IF NOT EXISTS " + qualified + " (" + strings.Join(defs, ", ") + ")"
	if _, err := db.ExecContext(ctx, createStmt); err != nil {
		return fmt.Errorf("create table %s.%s: %w", schema, spec.name, err)
	}

	existing, err := existingColumns(ctx, db, schema, spec.name)
	if err != nil {
		return err
	}
	for _, col := range spec.columns {
		if _, ok := existing[col.name]; ok {
			continue
		}
		alterStmt := "ALTER TABLE " + qualified + " ADD COLUMN IF NOT EXISTS " +
			pq.QuoteIdentifier(col.name) + " " + col.definition
		if _, err := db.ExecContext(ctx, alterStmt); err != nil {
			return fmt.Errorf("add column %s to %s.%s: %w", col.name, schema, spec.name, err)
		}
	}
	return nil
}

// existingColumns introspects the current column set of a table.
func existingColumns(ctx context.Context, db *sql.DB, schema, table string) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
	`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("introspect %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	columns := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		columns[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return columns, nil
}
