package directory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	platformredis "hearth/internal/platform/redis"
	id "hearth/pkg/domain"
)

// Cached decorates a Directory with a Redis read-through cache. Role links
// change rarely but are checked on every tenant-scoped request, so even a
// short TTL removes most directory round trips. Cache failures degrade to
// the underlying directory, never to a denied or allowed answer on stale
// infrastructure errors.
type Cached struct {
	next   Directory
	redis  *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// roleMiss marks a cached "no role" answer. Negative caching keeps repeated
// forbidden probes from hammering the directory.
const roleMiss = "!none"

func NewCached(next Directory, client *platformredis.Client, ttl time.Duration, logger *slog.Logger) *Cached {
	return &Cached{next: next, redis: client, ttl: ttl, logger: logger}
}

func householdKey(householdID id.HouseholdID) string {
	return "dir:household:" + householdID.String()
}

func roleKey(userID id.UserID, householdID id.HouseholdID) string {
	return "dir:role:" + householdID.String() + ":" + userID.String()
}

func (c *Cached) HouseholdExists(ctx context.Context, householdID id.HouseholdID) (bool, error) {
	key := householdKey(householdID)
	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		return cached == "1", nil
	}
	if !errors.Is(err, goredis.Nil) {
		c.logger.WarnContext(ctx, "directory cache read failed", "error", err)
	}

	exists, err := c.next.HouseholdExists(ctx, householdID)
	if err != nil {
		return false, err
	}
	value := "0"
	if exists {
		value = "1"
	}
	if err := c.redis.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "directory cache write failed", "error", err)
	}
	return exists, nil
}

func (c *Cached) RoleOf(ctx context.Context, userID id.UserID, householdID id.HouseholdID) (Role, error) {
	key := roleKey(userID, householdID)
	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		if cached == roleMiss {
			return RoleNone, nil
		}
		return Role(cached), nil
	}
	if !errors.Is(err, goredis.Nil) {
		c.logger.WarnContext(ctx, "directory cache read failed", "error", err)
	}

	role, err := c.next.RoleOf(ctx, userID, householdID)
	if err != nil {
		return RoleNone, err
	}
	value := string(role)
	if role == RoleNone {
		value = roleMiss
	}
	if err := c.redis.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "directory cache write failed", "error", err)
	}
	return role, nil
}
