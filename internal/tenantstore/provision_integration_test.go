//go:build integration

package tenantstore_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"hearth/internal/tenantstore"
	id "hearth/pkg/domain"
	"hearth/pkg/testutil/containers"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ProvisionSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	registry *tenantstore.Registry
}

func TestProvisionSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProvisionSuite))
}

func (s *ProvisionSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
}

func (s *ProvisionSuite) SetupTest() {
	s.registry = tenantstore.NewRegistry(s.postgres.DB, testLogger(), nil)
}

func (s *ProvisionSuite) tableNames(schema string) []string {
	rows, err := s.postgres.DB.Query(`
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 ORDER BY table_name
	`, schema)
	s.Require().NoError(err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		s.Require().NoError(rows.Scan(&name))
		names = append(names, name)
	}
	s.Require().NoError(rows.Err())
	return names
}

func (s *ProvisionSuite) columnNames(schema, table string) map[string]bool {
	rows, err := s.postgres.DB.Query(`
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
	`, schema, table)
	s.Require().NoError(err)
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		s.Require().NoError(rows.Scan(&name))
		names[name] = true
	}
	s.Require().NoError(rows.Err())
	return names
}

func (s *ProvisionSuite) TestProvisionCreatesFullTableSet() {
	ctx := context.Background()
	householdID := id.NewHouseholdID()

	store, err := s.registry.Resolve(ctx, householdID)
	s.Require().NoError(err)
	s.Equal(householdID, store.HouseholdID())

	schema := tenantstore.SchemaName(householdID)
	s.Equal([]string{"assets", "audit_log", "finance_accounts", "members"}, s.tableNames(schema))

	members := s.columnNames(schema, "members")
	for _, col := range []string{"id", "name", "email", "date_of_birth", "role", "version", "created_at", "updated_at", "deleted_at"} {
		s.True(members[col], "members should have column %s", col)
	}
}

func (s *ProvisionSuite) TestProvisionIsIdempotent() {
	ctx := context.Background()
	householdID := id.NewHouseholdID()
	schema := tenantstore.SchemaName(householdID)

	_, err := s.registry.Resolve(ctx, householdID)
	s.Require().NoError(err)
	before := s.tableNames(schema)
	beforeCols := s.columnNames(schema, "assets")

	// Fresh registries simulate process restarts: each one re-runs the
	// provisioner against the already-provisioned schema.
	for i := 0; i < 3; i++ {
		registry := tenantstore.NewRegistry(s.postgres.DB, testLogger(), nil)
		_, err := registry.Resolve(ctx, householdID)
		s.Require().NoError(err, "provisioning run %d must not error", i+2)
	}

	s.Equal(before, s.tableNames(schema), "table set must be unchanged after re-provisioning")
	s.Equal(beforeCols, s.columnNames(schema, "assets"), "column set must be unchanged after re-provisioning")
}

func (s *ProvisionSuite) TestProvisionAddsMissingColumnsAdditively() {
	ctx := context.Background()
	householdID := id.NewHouseholdID()
	schema := tenantstore.SchemaName(householdID)

	_, err := s.registry.Resolve(ctx, householdID)
	s.Require().NoError(err)

	// Simulate a store provisioned under an older policy version by
	// removing a newer column, then re-provision.
	_, err = s.postgres.DB.Exec(`ALTER TABLE "` + schema + `".assets DROP COLUMN details`)
	s.Require().NoError(err)

	registry := tenantstore.NewRegistry(s.postgres.DB, testLogger(), nil)
	_, err = registry.Resolve(ctx, householdID)
	s.Require().NoError(err)

	s.True(s.columnNames(schema, "assets")["details"], "missing column must be re-added with a safe default")
}

func (s *ProvisionSuite) TestSchemasAreIsolated() {
	ctx := context.Background()

	a, err := s.registry.Resolve(ctx, id.NewHouseholdID())
	s.Require().NoError(err)
	b, err := s.registry.Resolve(ctx, id.NewHouseholdID())
	s.Require().NoError(err)

	_, err = s.postgres.DB.Exec(`
		INSERT INTO ` + a.Table("members") + ` (id, name) VALUES (gen_random_uuid(), 'only in a')
	`)
	s.Require().NoError(err)

	var countB int
	s.Require().NoError(s.postgres.DB.QueryRow(`SELECT COUNT(*) FROM ` + b.Table("members")).Scan(&countB))
	s.Equal(0, countB, "a row written through one household's handle must be invisible through another's")
}
