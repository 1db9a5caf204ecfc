package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"hearth/internal/gateway"
	"hearth/internal/household/models"
	"hearth/internal/policy"
	"hearth/internal/tenantstore"
	id "hearth/pkg/domain"
	"hearth/pkg/requestcontext"
	"hearth/pkg/sentinel"
)

// Members persists household members. Flat sensitive fields (email, date of
// birth) are encrypted on write and decrypted on read via the gateway.
type Members struct {
	store *tenantstore.Store
	gw    *gateway.Gateway
	pol   policy.FieldPolicy
}

func NewMembers(store *tenantstore.Store, gw *gateway.Gateway) *Members {
	return &Members{store: store, gw: gw, pol: policy.For(policy.EntityMember)}
}

// encryptField encrypts value only when the policy marks the field
// sensitive; everything else is stored as-is.
func (r *Members) encryptField(field, value string) (string, error) {
	if !r.pol.HasField(field) {
		return value, nil
	}
	return r.gw.EncryptField(value)
}

func (r *Members) decryptField(field, value string) string {
	if !r.pol.HasField(field) {
		return value
	}
	return r.gw.DecryptField(value)
}

func (r *Members) Create(ctx context.Context, m *models.Member) error {
	if m.ID.IsNil() {
		m.ID = id.NewEntityID()
	}
	now := requestcontext.Now(ctx)

	email, err := r.encryptField("email", m.Email)
	if err != nil {
		return err
	}
	dob, err := r.encryptField("date_of_birth", m.DateOfBirth)
	if err != nil {
		return err
	}

	_, err = r.store.DB().ExecContext(ctx, `
		INSERT INTO `+r.store.Table("members")+`
			(id, name, email, date_of_birth, role, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $6)
	`, uuid.UUID(m.ID), m.Name, email, dob, m.Role, now)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}

	m.Version = 1
	m.CreatedAt = now
	m.UpdatedAt = now
	m.DeletedAt = nil
	return nil
}

func (r *Members) FindByID(ctx context.Context, entityID id.EntityID) (*models.Member, error) {
	row := r.store.DB().QueryRowContext(ctx, `
		SELECT id, name, email, date_of_birth, role, version, created_at, updated_at
		FROM `+r.store.Table("members")+`
		WHERE id = $1 AND deleted_at IS NULL
	`, uuid.UUID(entityID))

	member, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}
	return member, nil
}

func (r *Members) List(ctx context.Context) ([]*models.Member, error) {
	rows, err := r.store.DB().QueryContext(ctx, `
		SELECT id, name, email, date_of_birth, role, version, created_at, updated_at
		FROM `+r.store.Table("members")+`
		WHERE deleted_at IS NULL
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// Update applies new field values through the concurrency guard. When
// expectedVersion is non-nil the update only succeeds against that exact
// version; either way a successful update increments the version by 1.
func (r *Members) Update(ctx context.Context, m *models.Member, expectedVersion *int64) (*models.Member, error) {
	now := requestcontext.Now(ctx)

	email, err := r.encryptField("email", m.Email)
	if err != nil {
		return nil, err
	}
	dob, err := r.encryptField("date_of_birth", m.DateOfBirth)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE ` + r.store.Table("members") + `
		SET name = $2, email = $3, date_of_birth = $4, role = $5,
		    version = version + 1, updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL`
	args := []any{uuid.UUID(m.ID), m.Name, email, dob, m.Role, now}
	if expectedVersion != nil {
		query += " AND version = $7"
		args = append(args, *expectedVersion)
	}
	query += " RETURNING version"

	newVersion, err := runConditionalUpdate(ctx, r.store, "members", m.ID, query, args...)
	if err != nil {
		return nil, err
	}

	updated := *m
	updated.Version = newVersion
	updated.UpdatedAt = now
	return &updated, nil
}

// Delete soft-deletes a member.
func (r *Members) Delete(ctx context.Context, entityID id.EntityID) error {
	return softDelete(ctx, r.store, "members", entityID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Members) scan(row rowScanner) (*models.Member, error) {
	var m models.Member
	var rawID uuid.UUID
	var email, dob string
	if err := row.Scan(&rawID, &m.Name, &email, &dob, &m.Role, &m.Version, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.ID = id.EntityID(rawID)
	// Per-field fail-open: a corrupted value decrypts to itself and never
	// aborts the row or the batch.
	m.Email = r.decryptField("email", email)
	m.DateOfBirth = r.decryptField("date_of_birth", dob)
	return &m, nil
}
