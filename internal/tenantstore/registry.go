package tenantstore

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"hearth/internal/platform/metrics"
	dErrors "hearth/pkg/domain-errors"
	id "hearth/pkg/domain"
)

// Registry resolves household ids to initialized store handles. It owns the
// only process-wide handle cache; there is no ambient global state. Handles
// are cached for the process lifetime, and concurrent first accesses to the
// same household collapse into a single provisioning attempt.
type Registry struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	mu     sync.RWMutex
	stores map[id.HouseholdID]*Store

	// group deduplicates in-flight provisioning per household.
	group singleflight.Group

	// provision is swappable in tests; ensureSchema in production.
	provision func(ctx context.Context, db *sql.DB, schema string) error
}

// NewRegistry builds a registry over the shared tenant database.
func NewRegistry(db *sql.DB, logger *slog.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		db:        db,
		logger:    logger,
		metrics:   m,
		tracer:    otel.Tracer("hearth/tenantstore"),
		stores:    make(map[id.HouseholdID]*Store),
		provision: ensureSchema,
	}
}

// Resolve returns the initialized store handle for a household, provisioning
// its schema on first access. A failed initialization is not cached; the
// next request retries from scratch.
func (r *Registry) Resolve(ctx context.Context, householdID id.HouseholdID) (*Store, error) {
	r.mu.RLock()
	store, ok := r.stores[householdID]
	r.mu.RUnlock()
	if ok {
		return store, nil
	}

	schema := SchemaName(householdID)
	result, err, _ := r.group.Do(schema, func() (any, error) {
		// Another caller may have finished while we queued.
		r.mu.RLock()
		cached, ok := r.stores[householdID]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}

		ctx, span := r.tracer.Start(ctx, "tenantstore.provision",
			trace.WithAttributes(attribute.String("household.schema", schema)))
		defer span.End()

		if err := r.provision(ctx, r.db, schema); err != nil {
			r.logger.ErrorContext(ctx, "tenant store provisioning failed",
				"household_id", householdID.String(),
				"error", err,
			)
			return nil, dErrors.Wrap(err, dErrors.CodeStorageInit, "tenant store unavailable")
		}

		fresh := &Store{db: r.db, householdID: householdID, schema: schema}
		r.mu.Lock()
		r.stores[householdID] = fresh
		r.mu.Unlock()

		r.metrics.IncProvisioned()
		r.logger.InfoContext(ctx, "tenant store provisioned",
			"household_id", householdID.String(),
			"schema", schema,
		)
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Store), nil
}
