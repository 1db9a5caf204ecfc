package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "hearth/pkg/domain"
	"hearth/pkg/requestcontext"
)

func at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func TestInMemoryLog_AppendIsAdditive(t *testing.T) {
	log := NewInMemoryLog()
	actor := id.NewUserID()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	// The same action recorded twice yields two entries, never an upsert.
	for i := 0; i < 2; i++ {
		_, err := log.Append(at(base.Add(time.Duration(i)*time.Minute)), Entry{
			ActorUserID: actor,
			Action:      ActionUpdate,
			EntityType:  "member",
			EntityID:    id.NewEntityID(),
		})
		require.NoError(t, err)
	}

	entries, err := log.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestInMemoryLog_RecentOrdersNewestFirst(t *testing.T) {
	log := NewInMemoryLog()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	for i, action := range []string{ActionCreate, ActionUpdate, ActionDelete} {
		_, err := log.Append(at(base.Add(time.Duration(i)*time.Hour)), Entry{
			ActorUserID: id.NewUserID(),
			Action:      action,
			EntityType:  "asset",
		})
		require.NoError(t, err)
	}

	entries, err := log.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionDelete, entries[0].Action)
	assert.Equal(t, ActionUpdate, entries[1].Action)
}

func TestInMemoryLog_ActivityGroupsAndWindows(t *testing.T) {
	log := NewInMemoryLog()
	alice := id.NewUserID()
	bob := id.NewUserID()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	seed := []struct {
		when       time.Time
		actor      id.UserID
		entityType string
	}{
		{base.Add(-48 * time.Hour), alice, "member"}, // outside the window
		{base, alice, "member"},
		{base.Add(time.Minute), alice, "member"},
		{base.Add(2 * time.Minute), bob, "asset"},
	}
	for _, s := range seed {
		_, err := log.Append(at(s.when), Entry{
			ActorUserID: s.actor,
			Action:      ActionCreate,
			EntityType:  s.entityType,
		})
		require.NoError(t, err)
	}

	buckets, err := log.Activity(context.Background(), base.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	// Most recent bucket first.
	assert.Equal(t, "asset", buckets[0].EntityType)
	assert.Equal(t, bob, buckets[0].ActorUserID)
	assert.Equal(t, int64(1), buckets[0].Count)

	assert.Equal(t, "member", buckets[1].EntityType)
	assert.Equal(t, alice, buckets[1].ActorUserID)
	assert.Equal(t, int64(2), buckets[1].Count, "the entry outside the window must not count")
}

func TestParseDevice(t *testing.T) {
	d := ParseDevice("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
	assert.Contains(t, d.Browser, "Safari")
	assert.True(t, d.Mobile)
	assert.NotEmpty(t, d.OS)

	assert.Equal(t, Device{}, ParseDevice(""))
}
