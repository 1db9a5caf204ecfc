//go:build integration

package repo_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"hearth/internal/crypto/fieldcipher"
	"hearth/internal/gateway"
	"hearth/internal/household/models"
	"hearth/internal/household/repo"
	"hearth/internal/tenantstore"
	id "hearth/pkg/domain"
	"hearth/pkg/sentinel"
	"hearth/pkg/testutil/containers"
)

type RepoSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	registry *tenantstore.Registry
	gw       *gateway.Gateway
}

func TestRepoSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RepoSuite))
}

func (s *RepoSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())

	key := bytes.Repeat([]byte{0x42}, 32)
	cipher, err := fieldcipher.New(key, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	s.Require().NoError(err)
	s.gw = gateway.New(cipher)
}

func (s *RepoSuite) SetupTest() {
	s.registry = tenantstore.NewRegistry(s.postgres.DB, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func (s *RepoSuite) resolve(householdID id.HouseholdID) *tenantstore.Store {
	store, err := s.registry.Resolve(context.Background(), householdID)
	s.Require().NoError(err)
	return store
}

func (s *RepoSuite) TestMemberSensitiveFieldsEncryptedAtRest() {
	ctx := context.Background()
	store := s.resolve(id.NewHouseholdID())
	members := repo.NewMembers(store, s.gw)

	m := &models.Member{Name: "Ada", Email: "ada@example.com", DateOfBirth: "1990-03-14", Role: "adult"}
	s.Require().NoError(members.Create(ctx, m))

	// Read the raw column values, bypassing the repository.
	var rawEmail, rawDOB string
	s.Require().NoError(s.postgres.DB.QueryRow(
		`SELECT email, date_of_birth FROM `+store.Table("members")+` WHERE id = $1`,
		m.ID.String(),
	).Scan(&rawEmail, &rawDOB))

	s.NotEqual("ada@example.com", rawEmail, "email must not be stored in the clear")
	s.NotEqual("1990-03-14", rawDOB, "date of birth must not be stored in the clear")
	s.True(fieldcipher.IsEncrypted(rawEmail))
	s.True(fieldcipher.IsEncrypted(rawDOB))

	// The repository round-trips back to plaintext. Name stays cleartext.
	found, err := members.FindByID(ctx, m.ID)
	s.Require().NoError(err)
	s.Equal("ada@example.com", found.Email)
	s.Equal("1990-03-14", found.DateOfBirth)
	s.Equal("Ada", found.Name)
}

func (s *RepoSuite) TestAssetNestedSensitiveKeysEncryptedAtRest() {
	ctx := context.Background()
	store := s.resolve(id.NewHouseholdID())
	assets := repo.NewAssets(store, s.gw)

	details := json.RawMessage(`{
		"insurance": {"provider": "Acme", "policy_number": "P-123"},
		"warranty": {"serial_number": "W-456"}
	}`)
	a := &models.Asset{Name: "Piano", Category: "instrument", SerialNumber: "SN-789", Details: details}
	s.Require().NoError(assets.Create(ctx, a))

	var raw []byte
	s.Require().NoError(s.postgres.DB.QueryRow(
		`SELECT details FROM `+store.Table("assets")+` WHERE id = $1`,
		a.ID.String(),
	).Scan(&raw))

	s.NotContains(string(raw), "P-123", "nested policy number must not be stored in the clear")
	s.NotContains(string(raw), "W-456", "nested serial number must not be stored in the clear")
	s.Contains(string(raw), "Acme", "non-sensitive nested values stay cleartext")

	found, err := assets.FindByID(ctx, a.ID)
	s.Require().NoError(err)
	s.Equal("SN-789", found.SerialNumber)

	var decoded map[string]map[string]string
	s.Require().NoError(json.Unmarshal(found.Details, &decoded))
	s.Equal("P-123", decoded["insurance"]["policy_number"])
	s.Equal("W-456", decoded["warranty"]["serial_number"])
}

func (s *RepoSuite) TestOptimisticConcurrency() {
	ctx := context.Background()
	store := s.resolve(id.NewHouseholdID())
	members := repo.NewMembers(store, s.gw)

	m := &models.Member{Name: "Ada", Role: "adult"}
	s.Require().NoError(members.Create(ctx, m))
	s.Require().Equal(int64(1), m.Version)

	one := int64(1)
	m.Name = "Ada L."
	updated, err := members.Update(ctx, m, &one)
	s.Require().NoError(err)
	s.Equal(int64(2), updated.Version)

	// A second writer replays against the version it last saw.
	m.Name = "stale write"
	_, err = members.Update(ctx, m, &one)
	s.Require().ErrorIs(err, sentinel.ErrVersionConflict)

	var conflict *repo.VersionConflictError
	s.Require().True(errors.As(err, &conflict))
	s.Equal(int64(2), conflict.CurrentVersion)

	// A missing row under the same condition is NotFound, never Conflict.
	_, err = members.Update(ctx, &models.Member{ID: id.NewEntityID()}, &one)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	s.NotErrorIs(err, sentinel.ErrVersionConflict)

	// An unconditional update still increments.
	updated.Name = "Ada Lovelace"
	updated, err = members.Update(ctx, updated, nil)
	s.Require().NoError(err)
	s.Equal(int64(3), updated.Version)
}

func (s *RepoSuite) TestSoftDelete() {
	ctx := context.Background()
	store := s.resolve(id.NewHouseholdID())
	accounts := repo.NewFinanceAccounts(store, s.gw)

	f := &models.FinanceAccount{Institution: "Bank", AccountNumber: "DE1234567890", Currency: "EUR"}
	s.Require().NoError(accounts.Create(ctx, f))
	s.Require().NoError(accounts.Delete(ctx, f.ID))

	_, err := accounts.FindByID(ctx, f.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	listed, err := accounts.List(ctx)
	s.Require().NoError(err)
	s.Empty(listed)

	// The row is retained, only hidden.
	var count int
	s.Require().NoError(s.postgres.DB.QueryRow(
		`SELECT COUNT(*) FROM ` + store.Table("finance_accounts") + ` WHERE deleted_at IS NOT NULL`,
	).Scan(&count))
	s.Equal(1, count)

	one := int64(1)
	_, err = accounts.Update(ctx, f, &one)
	s.ErrorIs(err, sentinel.ErrNotFound, "a soft-deleted row behaves as missing")
}

func (s *RepoSuite) TestHouseholdsNeverSeeEachOther() {
	ctx := context.Background()
	storeA := s.resolve(id.NewHouseholdID())
	storeB := s.resolve(id.NewHouseholdID())

	membersA := repo.NewMembers(storeA, s.gw)
	membersB := repo.NewMembers(storeB, s.gw)

	m := &models.Member{Name: "only in a"}
	s.Require().NoError(membersA.Create(ctx, m))

	_, err := membersB.FindByID(ctx, m.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	listed, err := membersB.List(ctx)
	s.Require().NoError(err)
	s.Empty(listed)
}
