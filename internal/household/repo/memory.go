package repo

import (
	"context"
	"sort"
	"sync"

	"hearth/internal/household/models"
	id "hearth/pkg/domain"
	"hearth/pkg/requestcontext"
	"hearth/pkg/sentinel"
)

// InMemoryMembers mirrors the Postgres member repository for tests and local
// development. It reproduces the conditional-update semantics exactly,
// including the NotFound/Conflict distinction, but stores values in the
// clear since nothing is at rest.
type InMemoryMembers struct {
	mu      sync.RWMutex
	members map[id.EntityID]*models.Member
}

func NewInMemoryMembers() *InMemoryMembers {
	return &InMemoryMembers{members: make(map[id.EntityID]*models.Member)}
}

func (r *InMemoryMembers) Create(ctx context.Context, m *models.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID.IsNil() {
		m.ID = id.NewEntityID()
	}
	now := requestcontext.Now(ctx)
	m.Version = 1
	m.CreatedAt = now
	m.UpdatedAt = now
	m.DeletedAt = nil

	stored := *m
	r.members[m.ID] = &stored
	return nil
}

func (r *InMemoryMembers) FindByID(ctx context.Context, entityID id.EntityID) (*models.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[entityID]
	if !ok || m.DeletedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (r *InMemoryMembers) List(ctx context.Context) ([]*models.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var members []*models.Member
	for _, m := range r.members {
		if m.DeletedAt != nil {
			continue
		}
		out := *m
		members = append(members, &out)
	}
	sort.Slice(members, func(i, j int) bool {
		if !members[i].CreatedAt.Equal(members[j].CreatedAt) {
			return members[i].CreatedAt.Before(members[j].CreatedAt)
		}
		return members[i].ID.String() < members[j].ID.String()
	})
	return members, nil
}

func (r *InMemoryMembers) Update(ctx context.Context, m *models.Member, expectedVersion *int64) (*models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.members[m.ID]
	if !ok || existing.DeletedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	if expectedVersion != nil && existing.Version != *expectedVersion {
		return nil, &VersionConflictError{CurrentVersion: existing.Version}
	}

	updated := *m
	updated.Version = existing.Version + 1
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = requestcontext.Now(ctx)
	updated.DeletedAt = nil
	stored := updated
	r.members[m.ID] = &stored
	return &updated, nil
}

func (r *InMemoryMembers) Delete(ctx context.Context, entityID id.EntityID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.members[entityID]
	if !ok || existing.DeletedAt != nil {
		return sentinel.ErrNotFound
	}
	now := requestcontext.Now(ctx)
	existing.DeletedAt = &now
	existing.UpdatedAt = now
	return nil
}

// InMemoryAssets is the in-memory counterpart of the asset repository.
type InMemoryAssets struct {
	mu     sync.RWMutex
	assets map[id.EntityID]*models.Asset
}

func NewInMemoryAssets() *InMemoryAssets {
	return &InMemoryAssets{assets: make(map[id.EntityID]*models.Asset)}
}

func (r *InMemoryAssets) Create(ctx context.Context, a *models.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID.IsNil() {
		a.ID = id.NewEntityID()
	}
	now := requestcontext.Now(ctx)
	a.Version = 1
	a.CreatedAt = now
	a.UpdatedAt = now
	a.DeletedAt = nil

	stored := *a
	r.assets[a.ID] = &stored
	return nil
}

func (r *InMemoryAssets) FindByID(ctx context.Context, entityID id.EntityID) (*models.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.assets[entityID]
	if !ok || a.DeletedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (r *InMemoryAssets) List(ctx context.Context) ([]*models.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var assets []*models.Asset
	for _, a := range r.assets {
		if a.DeletedAt != nil {
			continue
		}
		out := *a
		assets = append(assets, &out)
	}
	sort.Slice(assets, func(i, j int) bool {
		if !assets[i].CreatedAt.Equal(assets[j].CreatedAt) {
			return assets[i].CreatedAt.Before(assets[j].CreatedAt)
		}
		return assets[i].ID.String() < assets[j].ID.String()
	})
	return assets, nil
}

func (r *InMemoryAssets) Update(ctx context.Context, a *models.Asset, expectedVersion *int64) (*models.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.assets[a.ID]
	if !ok || existing.DeletedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	if expectedVersion != nil && existing.Version != *expectedVersion {
		return nil, &VersionConflictError{CurrentVersion: existing.Version}
	}

	updated := *a
	updated.Version = existing.Version + 1
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = requestcontext.Now(ctx)
	updated.DeletedAt = nil
	stored := updated
	r.assets[a.ID] = &stored
	return &updated, nil
}

func (r *InMemoryAssets) Delete(ctx context.Context, entityID id.EntityID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.assets[entityID]
	if !ok || existing.DeletedAt != nil {
		return sentinel.ErrNotFound
	}
	now := requestcontext.Now(ctx)
	existing.DeletedAt = &now
	existing.UpdatedAt = now
	return nil
}

// InMemoryFinanceAccounts is the in-memory counterpart of the finance
// account repository.
type InMemoryFinanceAccounts struct {
	mu       sync.RWMutex
	accounts map[id.EntityID]*models.FinanceAccount
}

func NewInMemoryFinanceAccounts() *InMemoryFinanceAccounts {
	return &InMemoryFinanceAccounts{accounts: make(map[id.EntityID]*models.FinanceAccount)}
}

func (r *InMemoryFinanceAccounts) Create(ctx context.Context, f *models.FinanceAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f.ID.IsNil() {
		f.ID = id.NewEntityID()
	}
	now := requestcontext.Now(ctx)
	f.Version = 1
	f.CreatedAt = now
	f.UpdatedAt = now
	f.DeletedAt = nil

	stored := *f
	r.accounts[f.ID] = &stored
	return nil
}

func (r *InMemoryFinanceAccounts) FindByID(ctx context.Context, entityID id.EntityID) (*models.FinanceAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.accounts[entityID]
	if !ok || f.DeletedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	out := *f
	return &out, nil
}

func (r *InMemoryFinanceAccounts) List(ctx context.Context) ([]*models.FinanceAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var accounts []*models.FinanceAccount
	for _, f := range r.accounts {
		if f.DeletedAt != nil {
			continue
		}
		out := *f
		accounts = append(accounts, &out)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
		}
		return accounts[i].ID.String() < accounts[j].ID.String()
	})
	return accounts, nil
}

func (r *InMemoryFinanceAccounts) Update(ctx context.Context, f *models.FinanceAccount, expectedVersion *int64) (*models.FinanceAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.accounts[f.ID]
	if !ok || existing.DeletedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	if expectedVersion != nil && existing.Version != *expectedVersion {
		return nil, &VersionConflictError{CurrentVersion: existing.Version}
	}

	updated := *f
	updated.Version = existing.Version + 1
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = requestcontext.Now(ctx)
	updated.DeletedAt = nil
	stored := updated
	r.accounts[f.ID] = &stored
	return &updated, nil
}

func (r *InMemoryFinanceAccounts) Delete(ctx context.Context, entityID id.EntityID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.accounts[entityID]
	if !ok || existing.DeletedAt != nil {
		return sentinel.ErrNotFound
	}
	now := requestcontext.Now(ctx)
	existing.DeletedAt = &now
	existing.UpdatedAt = now
	return nil
}
