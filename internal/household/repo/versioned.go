// Package repo implements the per-household entity repositories. All reads
// and writes go through a tenantstore.Store handle, so every query is
// confined to one household's schema, and all sensitive values pass through
// the encryption gateway at this boundary.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"hearth/internal/tenantstore"
	id "hearth/pkg/domain"
	"hearth/pkg/sentinel"
)

// VersionConflictError is returned when a conditional update loses to a
// newer version. It carries the current version so callers can resolve the
// conflict without another round trip.
type VersionConflictError struct {
	CurrentVersion int64
}

func (e *VersionConflictError) Error() string {
	return "version conflict, current version is " + strconv.FormatInt(e.CurrentVersion, 10)
}

// Is lets errors.Is match against the sentinel.
func (e *VersionConflictError) Is(target error) bool {
	return target == sentinel.ErrVersionConflict
}

// runConditionalUpdate executes the single-statement optimistic update that
// every repository shares. The statement must end with "RETURNING version"
// and its WHERE clause must already scope (id, not deleted) plus the
// optional expected version. Written once so the guard's NotFound/Conflict
// disambiguation cannot drift between entity types.
func runConditionalUpdate(ctx context.Context, store *tenantstore.Store, table string, entityID id.EntityID, query string, args ...any) (int64, error) {
	var newVersion int64
	err := store.DB().QueryRowContext(ctx, query, args...).Scan(&newVersion)
	if err == nil {
		return newVersion, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("conditional update %s: %w", table, err)
	}

	// Zero rows matched: either the row is gone (or soft-deleted) or the
	// version condition failed. The two must never be conflated - a blind
	// retry on NotFound would be wrong, while refetch-and-retry on Conflict
	// is the expected recovery path.
	var current int64
	probeErr := store.DB().QueryRowContext(ctx,
		"SELECT version FROM "+store.Table(table)+" WHERE id = $1 AND deleted_at IS NULL",
		uuid.UUID(entityID),
	).Scan(&current)
	if errors.Is(probeErr, sql.ErrNoRows) {
		return 0, sentinel.ErrNotFound
	}
	if probeErr != nil {
		return 0, fmt.Errorf("probe %s after failed update: %w", table, probeErr)
	}
	return 0, &VersionConflictError{CurrentVersion: current}
}

// softDelete marks a row deleted without removing it. Not version-gated,
// but scoped to the household handle like every other mutation.
func softDelete(ctx context.Context, store *tenantstore.Store, table string, entityID id.EntityID) error {
	res, err := store.DB().ExecContext(ctx,
		"UPDATE "+store.Table(table)+" SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL",
		uuid.UUID(entityID),
	)
	if err != nil {
		return fmt.Errorf("soft delete from %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
