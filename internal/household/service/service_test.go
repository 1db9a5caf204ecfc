package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/audit"
	"hearth/internal/household/models"
	dErrors "hearth/pkg/domain-errors"
	id "hearth/pkg/domain"
	"hearth/pkg/requestcontext"
)

type capturingExporter struct {
	mu        sync.Mutex
	published []audit.Entry
}

func (e *capturingExporter) Publish(_ context.Context, _ id.HouseholdID, entry audit.Entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.published = append(e.published, entry)
}

func newTestService(exporter Exporter) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(NewInMemoryResolver(), exporter, logger, nil)
}

func scopedContext(householdID id.HouseholdID, actor id.UserID) context.Context {
	ctx := requestcontext.WithActorID(context.Background(), actor)
	ctx = requestcontext.WithHouseholdID(ctx, householdID)
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.7", "curl/8.0")
	return ctx
}

func TestService_CreateMemberRecordsAudit(t *testing.T) {
	exporter := &capturingExporter{}
	svc := newTestService(exporter)
	actor := id.NewUserID()
	ctx := scopedContext(id.NewHouseholdID(), actor)

	created, err := svc.CreateMember(ctx, &models.Member{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)

	activity, err := svc.RecentActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, audit.ActionCreate, activity[0].Action)
	assert.Equal(t, "member", activity[0].EntityType)
	assert.Equal(t, created.ID, activity[0].EntityID)
	assert.Equal(t, actor, activity[0].ActorUserID)
	assert.Equal(t, "203.0.113.7", activity[0].IPAddress)

	require.Len(t, exporter.published, 1)
	assert.Equal(t, activity[0].ID, exporter.published[0].ID)
}

func TestService_UpdateConflictCarriesCurrentVersion(t *testing.T) {
	svc := newTestService(nil)
	ctx := scopedContext(id.NewHouseholdID(), id.NewUserID())

	m, err := svc.CreateMember(ctx, &models.Member{Name: "Ada"})
	require.NoError(t, err)

	one := int64(1)
	_, err = svc.UpdateMember(ctx, m, &one)
	require.NoError(t, err)

	_, err = svc.UpdateMember(ctx, m, &one)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	var de *dErrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, int64(2), de.Meta["current_version"])
}

func TestService_MissingEntityIsNotFound(t *testing.T) {
	svc := newTestService(nil)
	ctx := scopedContext(id.NewHouseholdID(), id.NewUserID())

	_, err := svc.GetMember(ctx, id.NewEntityID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	one := int64(1)
	_, err = svc.UpdateAsset(ctx, &models.Asset{ID: id.NewEntityID()}, &one)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound),
		"an absent row must map to NotFound, not Conflict")

	err = svc.DeleteFinanceAccount(ctx, id.NewEntityID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestService_NoHouseholdInScopeIsForbidden(t *testing.T) {
	svc := newTestService(nil)
	ctx := requestcontext.WithActorID(context.Background(), id.NewUserID())

	_, err := svc.ListMembers(ctx)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestService_HouseholdsResolveIndependentBundles(t *testing.T) {
	svc := newTestService(nil)
	actor := id.NewUserID()
	ctxA := scopedContext(id.NewHouseholdID(), actor)
	ctxB := scopedContext(id.NewHouseholdID(), actor)

	created, err := svc.CreateAsset(ctxA, &models.Asset{Name: "Piano"})
	require.NoError(t, err)

	_, err = svc.GetAsset(ctxB, created.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	listed, err := svc.ListAssets(ctxB)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestService_DeleteRecordsAudit(t *testing.T) {
	svc := newTestService(nil)
	ctx := scopedContext(id.NewHouseholdID(), id.NewUserID())

	f, err := svc.CreateFinanceAccount(ctx, &models.FinanceAccount{Institution: "Bank", Currency: "EUR"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteFinanceAccount(ctx, f.ID))

	activity, err := svc.RecentActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, activity, 2)

	actions := []string{activity[0].Action, activity[1].Action}
	assert.Contains(t, actions, audit.ActionCreate)
	assert.Contains(t, actions, audit.ActionDelete)
}

func TestService_ActivitySummaryWindows(t *testing.T) {
	svc := newTestService(nil)
	householdID := id.NewHouseholdID()
	actor := id.NewUserID()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	old := requestcontext.WithTime(scopedContext(householdID, actor), base.Add(-48*time.Hour))
	_, err := svc.CreateMember(old, &models.Member{Name: "old"})
	require.NoError(t, err)

	recent := requestcontext.WithTime(scopedContext(householdID, actor), base)
	_, err = svc.CreateMember(recent, &models.Member{Name: "recent"})
	require.NoError(t, err)

	buckets, err := svc.ActivitySummary(recent, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "member", buckets[0].EntityType)
	assert.Equal(t, int64(1), buckets[0].Count)
}

func TestService_RecentActivityParsesDevice(t *testing.T) {
	svc := newTestService(nil)
	ctx := scopedContext(id.NewHouseholdID(), id.NewUserID())
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.7",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")

	_, err := svc.CreateMember(ctx, &models.Member{Name: "Ada"})
	require.NoError(t, err)

	activity, err := svc.RecentActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Contains(t, activity[0].Device.Browser, "Chrome")
	assert.NotEmpty(t, activity[0].Device.OS)
}
