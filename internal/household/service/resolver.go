package service

import (
	"context"
	"sync"

	"hearth/internal/audit"
	"hearth/internal/gateway"
	"hearth/internal/household/repo"
	"hearth/internal/platform/metrics"
	"hearth/internal/tenantstore"
	id "hearth/pkg/domain"
)

// StoreResolver yields the backing store handle for a household. Satisfied
// by tenantstore.Registry.
type StoreResolver interface {
	Resolve(ctx context.Context, householdID id.HouseholdID) (*tenantstore.Store, error)
}

// PostgresResolver builds repository bundles over provisioned household
// schemas. The repositories themselves are cheap stateless wrappers, so a
// bundle is assembled per call; the expensive part (provisioning) is cached
// inside the registry.
type PostgresResolver struct {
	stores  StoreResolver
	gw      *gateway.Gateway
	metrics *metrics.Metrics
}

func NewPostgresResolver(stores StoreResolver, gw *gateway.Gateway, m *metrics.Metrics) *PostgresResolver {
	return &PostgresResolver{stores: stores, gw: gw, metrics: m}
}

func (r *PostgresResolver) Resolve(ctx context.Context, householdID id.HouseholdID) (*Repos, error) {
	store, err := r.stores.Resolve(ctx, householdID)
	if err != nil {
		return nil, err
	}
	return &Repos{
		Members: repo.NewMembers(store, r.gw),
		Assets:  repo.NewAssets(store, r.gw),
		Finance: repo.NewFinanceAccounts(store, r.gw),
		Audit:   audit.NewPostgresLog(store, r.metrics),
	}, nil
}

// InMemoryResolver keeps a fully in-memory bundle per household. Used by
// unit tests and local runs without a database.
type InMemoryResolver struct {
	mu      sync.Mutex
	bundles map[id.HouseholdID]*Repos
}

func NewInMemoryResolver() *InMemoryResolver {
	return &InMemoryResolver{bundles: make(map[id.HouseholdID]*Repos)}
}

func (r *InMemoryResolver) Resolve(_ context.Context, householdID id.HouseholdID) (*Repos, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bundle, ok := r.bundles[householdID]; ok {
		return bundle, nil
	}
	bundle := &Repos{
		Members: repo.NewInMemoryMembers(),
		Assets:  repo.NewInMemoryAssets(),
		Finance: repo.NewInMemoryFinanceAccounts(),
		Audit:   audit.NewInMemoryLog(),
	}
	r.bundles[householdID] = bundle
	return bundle, nil
}
