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

// FinanceAccounts persists household financial accounts.
type FinanceAccounts struct {
	store *tenantstore.Store
	gw    *gateway.Gateway
	pol   policy.FieldPolicy
}

func NewFinanceAccounts(store *tenantstore.Store, gw *gateway.Gateway) *FinanceAccounts {
	return &FinanceAccounts{store: store, gw: gw, pol: policy.For(policy.EntityFinanceAccount)}
}

func (r *FinanceAccounts) encryptField(field, value string) (string, error) {
	if !r.pol.HasField(field) {
		return value, nil
	}
	return r.gw.EncryptField(value)
}

func (r *FinanceAccounts) decryptField(field, value string) string {
	if !r.pol.HasField(field) {
		return value
	}
	return r.gw.DecryptField(value)
}

func (r *FinanceAccounts) Create(ctx context.Context, f *models.FinanceAccount) error {
	if f.ID.IsNil() {
		f.ID = id.NewEntityID()
	}
	now := requestcontext.Now(ctx)

	accountNumber, err := r.encryptField("account_number", f.AccountNumber)
	if err != nil {
		return err
	}
	details, err := r.gw.EncryptJSON(f.Details)
	if err != nil {
		return err
	}

	_, err = r.store.DB().ExecContext(ctx, `
		INSERT INTO `+r.store.Table("finance_accounts")+`
			(id, institution, account_number, currency, details, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $6)
	`, uuid.UUID(f.ID), f.Institution, accountNumber, f.Currency, nullableJSON(details), now)
	if err != nil {
		return fmt.Errorf("insert finance account: %w", err)
	}

	f.Version = 1
	f.CreatedAt = now
	f.UpdatedAt = now
	f.DeletedAt = nil
	return nil
}

func (r *FinanceAccounts) FindByID(ctx context.Context, entityID id.EntityID) (*models.FinanceAccount, error) {
	row := r.store.DB().QueryRowContext(ctx, `
		SELECT id, institution, account_number, currency, details, version, created_at, updated_at
		FROM `+r.store.Table("finance_accounts")+`
		WHERE id = $1 AND deleted_at IS NULL
	`, uuid.UUID(entityID))

	account, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find finance account: %w", err)
	}
	return account, nil
}

func (r *FinanceAccounts) List(ctx context.Context) ([]*models.FinanceAccount, error) {
	rows, err := r.store.DB().QueryContext(ctx, `
		SELECT id, institution, account_number, currency, details, version, created_at, updated_at
		FROM `+r.store.Table("finance_accounts")+`
		WHERE deleted_at IS NULL
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list finance accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.FinanceAccount
	for rows.Next() {
		account, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan finance account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate finance accounts: %w", err)
	}
	return accounts, nil
}

func (r *FinanceAccounts) Update(ctx context.Context, f *models.FinanceAccount, expectedVersion *int64) (*models.FinanceAccount, error) {
	now := requestcontext.Now(ctx)

	accountNumber, err := r.encryptField("account_number", f.AccountNumber)
	if err != nil {
		return nil, err
	}
	details, err := r.gw.EncryptJSON(f.Details)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE ` + r.store.Table("finance_accounts") + `
		SET institution = $2, account_number = $3, currency = $4,
		    details = $5, version = version + 1, updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL`
	args := []any{uuid.UUID(f.ID), f.Institution, accountNumber, f.Currency, nullableJSON(details), now}
	if expectedVersion != nil {
		query += " AND version = $7"
		args = append(args, *expectedVersion)
	}
	query += " RETURNING version"

	newVersion, err := runConditionalUpdate(ctx, r.store, "finance_accounts", f.ID, query, args...)
	if err != nil {
		return nil, err
	}

	updated := *f
	updated.Version = newVersion
	updated.UpdatedAt = now
	return &updated, nil
}

func (r *FinanceAccounts) Delete(ctx context.Context, entityID id.EntityID) error {
	return softDelete(ctx, r.store, "finance_accounts", entityID)
}

func (r *FinanceAccounts) scan(row rowScanner) (*models.FinanceAccount, error) {
	var f models.FinanceAccount
	var rawID uuid.UUID
	var accountNumber string
	var details []byte
	if err := row.Scan(&rawID, &f.Institution, &accountNumber, &f.Currency, &details, &f.Version, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.ID = id.EntityID(rawID)
	f.AccountNumber = r.decryptField("account_number", accountNumber)
	if len(details) > 0 {
		f.Details = r.gw.DecryptJSON(details)
	}
	return &f, nil
}
