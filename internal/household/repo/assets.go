package repo

import (
	"context"
	"database/sql"
	"encoding/json"
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

// Assets persists household assets. The serial number is a flat sensitive
// field; the details payload is walked recursively for sensitive keys.
type Assets struct {
	store *tenantstore.Store
	gw    *gateway.Gateway
	pol   policy.FieldPolicy
}

func NewAssets(store *tenantstore.Store, gw *gateway.Gateway) *Assets {
	return &Assets{store: store, gw: gw, pol: policy.For(policy.EntityAsset)}
}

func (r *Assets) encryptField(field, value string) (string, error) {
	if !r.pol.HasField(field) {
		return value, nil
	}
	return r.gw.EncryptField(value)
}

func (r *Assets) decryptField(field, value string) string {
	if !r.pol.HasField(field) {
		return value
	}
	return r.gw.DecryptField(value)
}

func (r *Assets) Create(ctx context.Context, a *models.Asset) error {
	if a.ID.IsNil() {
		a.ID = id.NewEntityID()
	}
	now := requestcontext.Now(ctx)

	serial, err := r.encryptField("serial_number", a.SerialNumber)
	if err != nil {
		return err
	}
	details, err := r.gw.EncryptJSON(a.Details)
	if err != nil {
		return err
	}

	_, err = r.store.DB().ExecContext(ctx, `
		INSERT INTO `+r.store.Table("assets")+`
			(id, name, category, serial_number, purchased_at, details, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $7)
	`, uuid.UUID(a.ID), a.Name, a.Category, serial, a.PurchasedAt, nullableJSON(details), now)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}

	a.Version = 1
	a.CreatedAt = now
	a.UpdatedAt = now
	a.DeletedAt = nil
	return nil
}

func (r *Assets) FindByID(ctx context.Context, entityID id.EntityID) (*models.Asset, error) {
	row := r.store.DB().QueryRowContext(ctx, `
		SELECT id, name, category, serial_number, purchased_at, details, version, created_at, updated_at
		FROM `+r.store.Table("assets")+`
		WHERE id = $1 AND deleted_at IS NULL
	`, uuid.UUID(entityID))

	asset, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find asset: %w", err)
	}
	return asset, nil
}

func (r *Assets) List(ctx context.Context) ([]*models.Asset, error) {
	rows, err := r.store.DB().QueryContext(ctx, `
		SELECT id, name, category, serial_number, purchased_at, details, version, created_at, updated_at
		FROM `+r.store.Table("assets")+`
		WHERE deleted_at IS NULL
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*models.Asset
	for rows.Next() {
		asset, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

func (r *Assets) Update(ctx context.Context, a *models.Asset, expectedVersion *int64) (*models.Asset, error) {
	now := requestcontext.Now(ctx)

	serial, err := r.encryptField("serial_number", a.SerialNumber)
	if err != nil {
		return nil, err
	}
	details, err := r.gw.EncryptJSON(a.Details)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE ` + r.store.Table("assets") + `
		SET name = $2, category = $3, serial_number = $4, purchased_at = $5,
		    details = $6, version = version + 1, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL`
	args := []any{uuid.UUID(a.ID), a.Name, a.Category, serial, a.PurchasedAt, nullableJSON(details), now}
	if expectedVersion != nil {
		query += " AND version = $8"
		args = append(args, *expectedVersion)
	}
	query += " RETURNING version"

	newVersion, err := runConditionalUpdate(ctx, r.store, "assets", a.ID, query, args...)
	if err != nil {
		return nil, err
	}

	updated := *a
	updated.Version = newVersion
	updated.UpdatedAt = now
	return &updated, nil
}

func (r *Assets) Delete(ctx context.Context, entityID id.EntityID) error {
	return softDelete(ctx, r.store, "assets", entityID)
}

func (r *Assets) scan(row rowScanner) (*models.Asset, error) {
	var a models.Asset
	var rawID uuid.UUID
	var serial string
	var purchasedAt sql.NullTime
	var details []byte
	if err := row.Scan(&rawID, &a.Name, &a.Category, &serial, &purchasedAt, &details, &a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.ID = id.EntityID(rawID)
	a.SerialNumber = r.decryptField("serial_number", serial)
	if purchasedAt.Valid {
		t := purchasedAt.Time
		a.PurchasedAt = &t
	}
	if len(details) > 0 {
		a.Details = r.gw.DecryptJSON(details)
	}
	return &a, nil
}

// nullableJSON maps an empty payload to SQL NULL so JSONB columns don't
// store empty strings.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
