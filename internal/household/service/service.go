// Package service orchestrates household data operations: resolve the
// household's store, run the repository operation, record the audit entry.
// Sentinel errors from the storage layer become coded errors here, exactly
// once, so transports never see raw infrastructure errors.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"hearth/internal/audit"
	"hearth/internal/household/models"
	"hearth/internal/household/repo"
	"hearth/internal/platform/metrics"
	dErrors "hearth/pkg/domain-errors"
	id "hearth/pkg/domain"
	"hearth/pkg/requestcontext"
	"hearth/pkg/sentinel"
)

// MemberRepo, AssetRepo and FinanceRepo are satisfied by both the Postgres
// and in-memory repositories.
type MemberRepo interface {
	Create(ctx context.Context, m *models.Member) error
	FindByID(ctx context.Context, entityID id.EntityID) (*models.Member, error)
	List(ctx context.Context) ([]*models.Member, error)
	Update(ctx context.Context, m *models.Member, expectedVersion *int64) (*models.Member, error)
	Delete(ctx context.Context, entityID id.EntityID) error
}

type AssetRepo interface {
	Create(ctx context.Context, a *models.Asset) error
	FindByID(ctx context.Context, entityID id.EntityID) (*models.Asset, error)
	List(ctx context.Context) ([]*models.Asset, error)
	Update(ctx context.Context, a *models.Asset, expectedVersion *int64) (*models.Asset, error)
	Delete(ctx context.Context, entityID id.EntityID) error
}

type FinanceRepo interface {
	Create(ctx context.Context, f *models.FinanceAccount) error
	FindByID(ctx context.Context, entityID id.EntityID) (*models.FinanceAccount, error)
	List(ctx context.Context) ([]*models.FinanceAccount, error)
	Update(ctx context.Context, f *models.FinanceAccount, expectedVersion *int64) (*models.FinanceAccount, error)
	Delete(ctx context.Context, entityID id.EntityID) error
}

// Repos bundles one household's repositories and audit log, all bound to
// the same isolated store.
type Repos struct {
	Members MemberRepo
	Assets  AssetRepo
	Finance FinanceRepo
	Audit   audit.Log
}

// Resolver yields the repository bundle for a household, provisioning its
// store on first access.
type Resolver interface {
	Resolve(ctx context.Context, householdID id.HouseholdID) (*Repos, error)
}

// Exporter mirrors successfully recorded audit entries to an external sink.
type Exporter interface {
	Publish(ctx context.Context, householdID id.HouseholdID, e audit.Entry)
}

// Service is the single entry point for household data operations.
type Service struct {
	resolver Resolver
	exporter Exporter
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New constructs the service. exporter may be nil when no broker is
// configured.
func New(resolver Resolver, exporter Exporter, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{resolver: resolver, exporter: exporter, logger: logger, metrics: m}
}

// mapError translates storage sentinels into coded errors. Everything else
// passes through if already coded, or becomes an internal error.
func (s *Service) mapError(err error, operation string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "entity not found")
	case errors.Is(err, sentinel.ErrVersionConflict):
		s.metrics.IncConflict()
		coded := dErrors.New(dErrors.CodeConflict, "version conflict")
		var conflict *repo.VersionConflictError
		if errors.As(err, &conflict) {
			coded = coded.WithMeta("current_version", conflict.CurrentVersion)
		}
		return coded
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, operation+" failed")
	}
}

func (s *Service) resolve(ctx context.Context) (id.HouseholdID, *Repos, error) {
	householdID := requestcontext.HouseholdID(ctx)
	if householdID.IsNil() {
		return id.HouseholdID{}, nil, dErrors.New(dErrors.CodeForbidden, "no household in scope")
	}
	repos, err := s.resolver.Resolve(ctx, householdID)
	if err != nil {
		return id.HouseholdID{}, nil, s.mapError(err, "resolve household store")
	}
	return householdID, repos, nil
}

// snapshot serializes non-sensitive audit metadata. Sensitive values must
// never be put in here; the audit log is not covered by field encryption.
func snapshot(kv map[string]any) json.RawMessage {
	raw, err := json.Marshal(kv)
	if err != nil {
		return nil
	}
	return raw
}

// record appends an audit entry for a completed mutation. Audit is part of
// the write path: a failed append fails the operation.
func (s *Service) record(ctx context.Context, householdID id.HouseholdID, repos *Repos, action, entityType string, entityID id.EntityID, metadata json.RawMessage) error {
	entry, err := repos.Audit.Append(ctx, audit.Entry{
		ActorUserID: requestcontext.ActorID(ctx),
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Metadata:    metadata,
		IPAddress:   requestcontext.ClientIP(ctx),
		UserAgent:   requestcontext.UserAgent(ctx),
	})
	if err != nil {
		s.logger.Error("audit append failed",
			"error", err,
			"action", action,
			"entity_type", entityType,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit append failed")
	}
	if s.exporter != nil {
		s.exporter.Publish(ctx, householdID, entry)
	}
	return nil
}

// Members

func (s *Service) CreateMember(ctx context.Context, m *models.Member) (*models.Member, error) {
	householdID, repos, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if err := repos.Members.Create(ctx, m); err != nil {
		return nil, s.mapError(err, "create member")
	}
	if err := s.record(ctx, householdID, repos, audit.ActionCreate, "member", m.ID, snapshot(map[string]any{"name": m.Name})); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) GetMember(ctx context.Context, entityID id.EntityID) (*models.Member, error) {
	_, repos, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	m, err := repos.Members.FindByID(ctx, entityID)
	return m, s.mapError(err, "get member")
}

func (s *Service) ListMembers(ctx context.Context) ([]*models.Member, error) {
	_, repos, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	members, err := repos.Members.List(ctx)
	return members, s.mapError(err, "list members")
}

func (s *Service) UpdateMember(ctx context.Context, m *models.Member, expectedVersion *int64) (*models.Member, error) {
	householdID, repos, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := repos.Members.Update(ctx, m, expectedVersion)
	if err != nil {
		return nil, s.mapError(err, "update member")
	}
	if err := s.record(ctx, householdID, repos, audit.ActionUpdate, "member", m.ID, snapshot(map[string]any{"name": updated.Name, "version": updated.Version})); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) DeleteMember(ctx context.Context, entityID id.EntityID) error {
	householdID, repos, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	if err := repos.Members.Delete(ctx, entityID); err != nil {
		return s.mapError(err, "delete member")
	}
	return s.record(ctx, householdID, repos, audit.ActionDelete, "member", entityID, nil)
}

// Assets

func (s *Service) CreateAsset(ctx context.Context, a *models.Asset) (*models.Asset, error) {
	householdID, repos, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if err := repos.Assets.Create(ctx, a); err != nil {
		return nil, s.mapError(err, "create asset")
	}
	if err := s.record(ctx, householdID, repos, audit.ActionCreate, "asset", a.ID, snapshot(map[string]any{"name": a.Name})); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) GetAsset(ctx context.Context, entityID id.EntityID) (*models.Asset, error) {
	_, repos, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	a, err := repos.Assets.FindByID(ctx, entityID)
	return a, s.mapError(err, "get asset")
}

func (s *Service) ListAssets(ctx context.Context) ([]*models.Asset, error) {
	_, repos, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	assets, err := repos.Assets.List(ctx)
	return assets, s.mapError(err, "list assets")
}

func (s *Service) UpdateAsset(ctx context.Context, a *models.Asset, expectedVersion *int64) (*models.Asset, error) {
	householdID, repos, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := repos.Assets.Update(ctx, a, expectedVersion)
	if err != nil {
		return nil, s.mapError(err, "update asset")
	}
	if err := s.record(ctx, householdID, repos, audit.ActionUpdate, "asset", a.ID, snapshot(map[string]any{"name": updated.Name, "version": updated.Version})); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) DeleteAsset(ctx context.Context, entityID id.EntityID) error {
	householdID, repos, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	if err := repos.Assets.Delete(ctx, entityID); err != nil {
		return s.mapError(err, "delete asset")
	}
	return s.record(ctx, householdID, repos, audit.ActionDelete, "asset", entityID, nil)
}

// Finance accounts

func (s *Service) CreateFinanceAccount(ctx context.Context, f *models.FinanceAccount) (*models.FinanceAccount, error) {
	householdID, repos, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if err := repos.Finance.Create(ctx, f); err != nil {
		return nil, s.mapError(err, "create finance account")
	}
	if err := s.record(ctx, householdID, repos, audit.ActionCreate, "finance_account", f.ID, snapshot(map[string]any{"institution": f.Institution})); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) GetFinanceAccount(ctx context.Context, entityID id.EntityID) (*models.FinanceAccount, error) {
	_, repos, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	f, err := repos.Finance.FindByID(ctx, entityID)
	return f, s.mapError(err, "get finance account")
}

func (s *Service) ListFinanceAccounts(ctx context.Context) ([]*models.FinanceAccount, error) {
	_, repos, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := repos.Finance.List(ctx)
	return accounts, s.mapError(err, "list finance accounts")
}

func (s *Service) UpdateFinanceAccount(ctx context.Context, f *models.FinanceAccount, expectedVersion *int64) (*models.FinanceAccount, error) {
	householdID, repos, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := repos.Finance.Update(ctx, f, expectedVersion)
	if err != nil {
		return nil, s.mapError(err, "update finance account")
	}
	if err := s.record(ctx, householdID, repos, audit.ActionUpdate, "finance_account", f.ID, snapshot(map[string]any{"institution": updated.Institution, "version": updated.Version})); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) DeleteFinanceAccount(ctx context.Context, entityID id.EntityID) error {
	householdID, repos, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	if err := repos.Finance.Delete(ctx, entityID); err != nil {
		return s.mapError(err, "delete finance account")
	}
	return s.record(ctx, householdID, repos, audit.ActionDelete, "finance_account", entityID, nil)
}

// Audit reads

// ActivityEntry is an audit entry enriched with the parsed client device
// for presentation.
type ActivityEntry struct {
	audit.Entry
	Device audit.Device `json:"device"`
}

// RecentActivity returns the latest audit entries with parsed device info.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	_, repos, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := repos.Audit.Recent(ctx, limit)
	if err != nil {
		return nil, s.mapError(err, "list audit entries")
	}
	enriched := make([]ActivityEntry, 0, len(entries))
	for _, e := range entries {
		enriched = append(enriched, ActivityEntry{Entry: e, Device: audit.ParseDevice(e.UserAgent)})
	}
	return enriched, nil
}

// ActivitySummary aggregates activity over the trailing window.
func (s *Service) ActivitySummary(ctx context.Context, window time.Duration) ([]audit.ActivityBucket, error) {
	_, repos, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	buckets, err := repos.Audit.Activity(ctx, requestcontext.Now(ctx).Add(-window))
	return buckets, s.mapError(err, "aggregate activity")
}
