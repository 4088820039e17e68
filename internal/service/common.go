package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-reservation-engine/internal/broadcast"
	"github.com/iliyamo/seat-reservation-engine/internal/cache"
	"github.com/iliyamo/seat-reservation-engine/internal/model"
)

// installGrace covers the gap between the commit that marks a seat HELD
// and the installation of its hold record.  A seat held more recently than
// this is live even when the record is missing.
const installGrace = 5 * time.Second

// normalizeIDs drops zero and duplicate ids and sorts the rest.
func normalizeIDs(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id != 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// holdLive reports whether a HELD seat still has a live hold.  The record
// in the cache decides; when the cache cannot answer, the row's held_until
// does, and a hold with no known expiry is never taken away.
func holdLive(ctx context.Context, holds *cache.HoldCache, seat model.Seat, now time.Time, ttl time.Duration, log logrus.FieldLogger) bool {
	if seat.HeldUntil != nil && now.Before(seat.HeldUntil.Add(-ttl).Add(installGrace)) {
		return true
	}
	exists, err := holds.Exists(ctx, seat.ID)
	if err == nil {
		return exists
	}
	if !errors.Is(err, cache.ErrCacheUnavailable) {
		log.WithError(err).WithField("seat_id", seat.ID).Warn("hold cache check failed; using held_until")
	}
	return seat.HeldUntil == nil || now.Before(*seat.HeldUntil)
}

// releaseHold clears the hold records of ids.  It never changes seat rows;
// callers have already moved them to AVAILABLE or BOOKED.
func releaseHold(ctx context.Context, holds *cache.HoldCache, log logrus.FieldLogger, ids ...uint64) {
	if err := holds.Release(ctx, ids...); err != nil && !errors.Is(err, cache.ErrCacheUnavailable) {
		log.WithError(err).WithField("seat_ids", ids).Warn("release hold records failed")
	}
}

func publish(ctx context.Context, pub broadcast.Publisher, log logrus.FieldLogger, msg broadcast.Message) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, msg); err != nil {
		log.WithError(err).WithField("event", msg.Event).Warn("broadcast failed")
	}
}
