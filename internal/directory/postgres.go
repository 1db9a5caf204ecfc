package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "hearth/pkg/domain"
)

// Postgres reads the centralized directory database. The directory schema
// (users, households, household_members) is owned and migrated by the
// directory service itself; this client only queries it.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a read-only directory client.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect directory: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping directory: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) HouseholdExists(ctx context.Context, householdID id.HouseholdID) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM households WHERE id = $1)`,
		uuid.UUID(householdID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query household existence: %w", err)
	}
	return exists, nil
}

func (p *Postgres) RoleOf(ctx context.Context, userID id.UserID, householdID id.HouseholdID) (Role, error) {
	var role string
	err := p.pool.QueryRow(ctx,
		`SELECT role FROM household_members WHERE user_id = $1 AND household_id = $2`,
		uuid.UUID(userID), uuid.UUID(householdID),
	).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return RoleNone, nil
	}
	if err != nil {
		return RoleNone, fmt.Errorf("query household role: %w", err)
	}
	return Role(role), nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
