package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	id "hearth/pkg/domain"
	"hearth/pkg/requestcontext"
)

// InMemoryLog is the test and local-development counterpart of PostgresLog.
// Appended entries are copied in and copied out; nothing can mutate them.
type InMemoryLog struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{}
}

func (l *InMemoryLog) Append(ctx context.Context, e Entry) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.ID.IsNil() {
		e.ID = id.NewEntityID()
	}
	e.CreatedAt = requestcontext.Now(ctx)
	l.entries = append(l.entries, e)
	return e, nil
}

func (l *InMemoryLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *InMemoryLog) Activity(ctx context.Context, since time.Time) ([]ActivityBucket, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	type key struct {
		entityType string
		actor      id.UserID
	}
	grouped := make(map[key]*ActivityBucket)
	for _, e := range l.entries {
		if e.CreatedAt.Before(since) {
			continue
		}
		k := key{e.EntityType, e.ActorUserID}
		b, ok := grouped[k]
		if !ok {
			b = &ActivityBucket{EntityType: e.EntityType, ActorUserID: e.ActorUserID}
			grouped[k] = b
		}
		b.Count++
		if e.CreatedAt.After(b.LastAt) {
			b.LastAt = e.CreatedAt
		}
	}

	buckets := make([]ActivityBucket, 0, len(grouped))
	for _, b := range grouped {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].LastAt.After(buckets[j].LastAt)
	})
	return buckets, nil
}
