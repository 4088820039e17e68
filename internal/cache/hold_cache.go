// Package cache holds the ephemeral seat hold records kept in Redis.
//
// A hold record is the key seat:lock:<seatID> whose value is the holder id
// and whose TTL is the hold window.  Records are advisory: MySQL stays the
// source of truth and a lost key only means the seat is reconciled back to
// AVAILABLE earlier than planned.
package cache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix is prepended to the seat id to build a hold key.
const KeyPrefix = "seat:lock:"

// expiredPattern matches keyevent notifications for expired keys in any db.
const expiredPattern = "__keyevent@*__:expired"

// ErrCacheUnavailable is returned by every method when no Redis client
// was configured.
var ErrCacheUnavailable = errors.New("hold cache unavailable")

// HoldCache wraps the Redis client used for hold records.  A nil client is
// allowed; all operations then fail with ErrCacheUnavailable so callers can
// fall back to the database.
type HoldCache struct {
	rdb *redis.Client
}

// NewHoldCache returns a HoldCache bound to rdb (which may be nil).
func NewHoldCache(rdb *redis.Client) *HoldCache {
	return &HoldCache{rdb: rdb}
}

// Key returns the hold key of a seat.
func Key(seatID uint64) string {
	return KeyPrefix + strconv.FormatUint(seatID, 10)
}

// SeatIDFromKey parses a hold key.  ok is false for foreign keys.
func SeatIDFromKey(key string) (uint64, bool) {
	if !strings.HasPrefix(key, KeyPrefix) {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(key, KeyPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Available reports whether a Redis client is configured.
func (c *HoldCache) Available() bool { return c != nil && c.rdb != nil }

// Hold installs the record with SET NX EX.  When a record already exists
// (left over from a crash between commit and key install) it is refreshed
// with SET XX EX and replaced reports true.
func (c *HoldCache) Hold(ctx context.Context, seatID uint64, holderID string, ttl time.Duration) (replaced bool, err error) {
	if !c.Available() {
		return false, ErrCacheUnavailable
	}
	key := Key(seatID)
	ok, err := c.rdb.SetNX(ctx, key, holderID, ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	if _, err := c.rdb.SetXX(ctx, key, holderID, ttl).Result(); err != nil {
		return true, err
	}
	return true, nil
}

// Exists reports whether the hold record of a seat is still present.
func (c *HoldCache) Exists(ctx context.Context, seatID uint64) (bool, error) {
	if !c.Available() {
		return false, ErrCacheUnavailable
	}
	n, err := c.rdb.Exists(ctx, Key(seatID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Release deletes the records of the given seats.  Missing keys are fine.
func (c *HoldCache) Release(ctx context.Context, seatIDs ...uint64) error {
	if !c.Available() {
		return ErrCacheUnavailable
	}
	if len(seatIDs) == 0 {
		return nil
	}
	keys := make([]string, len(seatIDs))
	for i, id := range seatIDs {
		keys[i] = Key(id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Remaining returns the time left on a hold.  ok is false when there is
// no record (or, defensively, a record without expiry).
func (c *HoldCache) Remaining(ctx context.Context, seatID uint64) (time.Duration, bool, error) {
	if !c.Available() {
		return 0, false, ErrCacheUnavailable
	}
	d, err := c.rdb.TTL(ctx, Key(seatID)).Result()
	if err != nil {
		return 0, false, err
	}
	if d < 0 {
		return 0, false, nil
	}
	return d, true, nil
}

// EnableExpiryEvents asks Redis to emit keyevent notifications for
// expired keys.  Managed Redis often forbids CONFIG; the error is returned
// for the caller to log.
func (c *HoldCache) EnableExpiryEvents(ctx context.Context) error {
	if !c.Available() {
		return ErrCacheUnavailable
	}
	return c.rdb.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err()
}

// SubscribeExpired streams the seat ids of expired hold records until ctx
// is cancelled.  Keys outside KeyPrefix are dropped.  go-redis reconnects
// the subscription on its own.
func (c *HoldCache) SubscribeExpired(ctx context.Context) (<-chan uint64, error) {
	if !c.Available() {
		return nil, ErrCacheUnavailable
	}
	sub := c.rdb.PSubscribe(ctx, expiredPattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan uint64)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				id, ok := SeatIDFromKey(m.Payload)
				if !ok {
					continue
				}
				select {
				case out <- id:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
