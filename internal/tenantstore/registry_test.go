package tenantstore

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "hearth/pkg/domain-errors"
	id "hearth/pkg/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(provision func(ctx context.Context, db *sql.DB, schema string) error) *Registry {
	r := NewRegistry(nil, discardLogger(), nil)
	r.provision = provision
	return r
}

func TestSchemaName(t *testing.T) {
	householdID, err := id.ParseHouseholdID("550e8400-e29b-41d4-a716-446655440000")
	require.NoError(t, err)

	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, SchemaName(householdID), SchemaName(householdID))
	})

	t.Run("encodes the full id", func(t *testing.T) {
		assert.Equal(t, "household_550e8400e29b41d4a716446655440000", SchemaName(householdID))
	})

	t.Run("distinct households get distinct schemas", func(t *testing.T) {
		other := id.NewHouseholdID()
		assert.NotEqual(t, SchemaName(householdID), SchemaName(other))
	})
}

func TestResolveCachesHandles(t *testing.T) {
	var calls atomic.Int32
	registry := newTestRegistry(func(context.Context, *sql.DB, string) error {
		calls.Add(1)
		return nil
	})

	householdID := id.NewHouseholdID()
	first, err := registry.Resolve(context.Background(), householdID)
	require.NoError(t, err)
	second, err := registry.Resolve(context.Background(), householdID)
	require.NoError(t, err)

	assert.Same(t, first, second, "repeated resolves must return the cached handle")
	assert.Equal(t, int32(1), calls.Load(), "provisioning must run once per household")
}

func TestResolveCollapsesConcurrentFirstAccess(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	registry := newTestRegistry(func(context.Context, *sql.DB, string) error {
		calls.Add(1)
		<-started
		return nil
	})

	householdID := id.NewHouseholdID()
	const goroutines = 20

	var wg sync.WaitGroup
	handles := make([]*Store, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store, err := registry.Resolve(context.Background(), householdID)
			require.NoError(t, err)
			handles[i] = store
		}(i)
	}

	// Let callers pile up behind the in-flight provisioning, then release.
	time.Sleep(20 * time.Millisecond)
	close(started)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent first accesses must collapse to one provisioning attempt")
	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
}

func TestResolveDoesNotCacheFailures(t *testing.T) {
	var calls atomic.Int32
	registry := newTestRegistry(func(context.Context, *sql.DB, string) error {
		if calls.Add(1) == 1 {
			return errors.New("disk on fire")
		}
		return nil
	})

	householdID := id.NewHouseholdID()

	_, err := registry.Resolve(context.Background(), householdID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeStorageInit))

	store, err := registry.Resolve(context.Background(), householdID)
	require.NoError(t, err, "a failed init must not poison the cache")
	require.NotNil(t, store)
	assert.Equal(t, int32(2), calls.Load())
}

func TestStoresAreIndependentPerHousehold(t *testing.T) {
	registry := newTestRegistry(func(context.Context, *sql.DB, string) error { return nil })

	a, err := registry.Resolve(context.Background(), id.NewHouseholdID())
	require.NoError(t, err)
	b, err := registry.Resolve(context.Background(), id.NewHouseholdID())
	require.NoError(t, err)

	assert.NotEqual(t, a.HouseholdID(), b.HouseholdID())
	assert.NotEqual(t, a.Table("members"), b.Table("members"),
		"two households must never share a storage location")
}

func TestTableQualification(t *testing.T) {
	householdID := id.HouseholdID(uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"))
	store := &Store{householdID: householdID, schema: SchemaName(householdID)}

	assert.Equal(t,
		`"household_550e8400e29b41d4a716446655440000"."members"`,
		store.Table("members"),
	)
}
