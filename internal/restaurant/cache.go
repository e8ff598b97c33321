package restaurant

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// OwnerLookup resolves the owner of a restaurant.
type OwnerLookup interface {
	OwnerOf(ctx context.Context, restaurantID uint64) (uint64, error)
}

// CachedOwnerLookup serves owner ids from Redis and falls through to the
// wrapped lookup on a miss.  Redis errors are logged and treated as a
// miss, so a broken cache never fails an ownership check.
type CachedOwnerLookup struct {
	next   OwnerLookup
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    logrus.FieldLogger
}

// NewCachedOwnerLookup wraps next with a Redis cache.  When rdb is nil the
// lookup is returned unwrapped.
func NewCachedOwnerLookup(next OwnerLookup, rdb *redis.Client, ttl time.Duration, prefix string, log logrus.FieldLogger) OwnerLookup {
	if rdb == nil {
		return next
	}
	return &CachedOwnerLookup{next: next, rdb: rdb, ttl: ttl, prefix: prefix, log: log}
}

func (c *CachedOwnerLookup) OwnerOf(ctx context.Context, restaurantID uint64) (uint64, error) {
	key := fmt.Sprintf("%s:%d", c.prefix, restaurantID)
	if s, err := c.rdb.Get(ctx, key).Result(); err == nil {
		if owner, perr := strconv.ParseUint(s, 10, 64); perr == nil {
			return owner, nil
		}
	} else if err != redis.Nil {
		c.log.WithError(err).WithField("key", key).Warn("owner cache read failed")
	}

	owner, err := c.next.OwnerOf(ctx, restaurantID)
	if err != nil {
		return 0, err
	}
	if err := c.rdb.Set(ctx, key, strconv.FormatUint(owner, 10), c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("owner cache write failed")
	}
	return owner, nil
}
