package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hearth/internal/platform/metrics"
	"hearth/internal/tenantstore"
	id "hearth/pkg/domain"
	"hearth/pkg/requestcontext"
)

// Log is the append-only audit surface. Implementations expose no mutation
// of existing entries.
type Log interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Activity(ctx context.Context, since time.Time) ([]ActivityBucket, error)
}

// PostgresLog writes entries into one household's audit_log table. Like the
// entity repositories it is bound to a resolved store handle, so an entry
// can never land in another household's schema.
type PostgresLog struct {
	store   *tenantstore.Store
	metrics *metrics.Metrics
}

func NewPostgresLog(store *tenantstore.Store, m *metrics.Metrics) *PostgresLog {
	return &PostgresLog{store: store, metrics: m}
}

func (l *PostgresLog) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.ID.IsNil() {
		e.ID = id.NewEntityID()
	}
	e.CreatedAt = requestcontext.Now(ctx)

	var entityID any
	if !e.EntityID.IsNil() {
		entityID = uuid.UUID(e.EntityID)
	}
	var metadata any
	if len(e.Metadata) > 0 {
		metadata = []byte(e.Metadata)
	}

	_, err := l.store.DB().ExecContext(ctx, `
		INSERT INTO `+l.store.Table("audit_log")+`
			(id, actor_user_id, action, entity_type, entity_id, metadata, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.UUID(e.ID), uuid.UUID(e.ActorUserID), e.Action, e.EntityType, entityID, metadata, e.IPAddress, e.UserAgent, e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("append audit entry: %w", err)
	}

	l.metrics.IncAuditRecorded()
	return e, nil
}

func (l *PostgresLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.store.DB().QueryContext(ctx, `
		SELECT id, actor_user_id, action, entity_type, entity_id, metadata, ip_address, user_agent, created_at
		FROM `+l.store.Table("audit_log")+`
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var entryID, actorID uuid.UUID
		var entityID uuid.NullUUID
		var metadata []byte
		if err := rows.Scan(&entryID, &actorID, &e.Action, &e.EntityType, &entityID, &metadata, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ID = id.EntityID(entryID)
		e.ActorUserID = id.UserID(actorID)
		if entityID.Valid {
			e.EntityID = id.EntityID(entityID.UUID)
		}
		if len(metadata) > 0 {
			e.Metadata = metadata
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

// Activity aggregates entries since the given time per (entity type, actor)
// pair, most recent first.
func (l *PostgresLog) Activity(ctx context.Context, since time.Time) ([]ActivityBucket, error) {
	rows, err := l.store.DB().QueryContext(ctx, `
		SELECT entity_type, actor_user_id, COUNT(*), MAX(created_at)
		FROM `+l.store.Table("audit_log")+`
		WHERE created_at >= $1
		GROUP BY entity_type, actor_user_id
		ORDER BY MAX(created_at) DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("aggregate audit activity: %w", err)
	}
	defer rows.Close()

	var buckets []ActivityBucket
	for rows.Next() {
		var b ActivityBucket
		var actorID uuid.UUID
		if err := rows.Scan(&b.EntityType, &actorID, &b.Count, &b.LastAt); err != nil {
			return nil, fmt.Errorf("scan activity bucket: %w", err)
		}
		b.ActorUserID = id.UserID(actorID)
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity buckets: %w", err)
	}
	return buckets, nil
}
