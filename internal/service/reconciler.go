package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-reservation-engine/internal/broadcast"
	"github.com/iliyamo/seat-reservation-engine/internal/cache"
	"github.com/iliyamo/seat-reservation-engine/internal/logging"
	"github.com/iliyamo/seat-reservation-engine/internal/model"
	"github.com/iliyamo/seat-reservation-engine/internal/repository"
)

// Reconciler returns HELD seats whose hold lapsed to AVAILABLE.  It is fed
// by Redis expiry notifications and by a periodic sweep; both go through
// ExpireIfStale, so a seat reached by both is released exactly once.
type Reconciler struct {
	seats        *repository.SeatRepo
	holds        *cache.HoldCache
	pub          broadcast.Publisher
	ttl          time.Duration
	notifyConfig bool
	log          logrus.FieldLogger
	now          func() time.Time
}

// NewReconciler wires a Reconciler.  When notifyConfig is set the listener
// enables keyevent notifications on the server before subscribing.
func NewReconciler(seats *repository.SeatRepo, holds *cache.HoldCache, pub broadcast.Publisher, ttl time.Duration, notifyConfig bool, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{
		seats:        seats,
		holds:        holds,
		pub:          pub,
		ttl:          ttl,
		notifyConfig: notifyConfig,
		log:          logging.Component(log, "reconciler"),
		now:          time.Now,
	}
}

// ExpireIfStale releases the seat when it is still HELD and its hold is no
// longer live.  It reports whether the seat was released.  Unknown seats,
// seats in another state and re-held seats are left alone.
func (r *Reconciler) ExpireIfStale(ctx context.Context, seatID uint64) (bool, error) {
	tx, err := r.seats.DB().BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	seat, err := r.seats.LockByIDTx(ctx, tx, seatID)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lock seat %d: %w", seatID, err)
	}
	if seat.Status != model.SeatHeld {
		return false, nil
	}
	if holdLive(ctx, r.holds, *seat, r.now().UTC(), r.ttl, r.log) {
		return false, nil
	}

	n, err := r.seats.MarkAvailableTx(ctx, tx, []uint64{seatID})
	if err != nil {
		return false, fmt.Errorf("mark available: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	committed = true
	if n == 0 {
		return false, nil
	}

	releaseHold(ctx, r.holds, r.log, seatID)
	r.log.WithFields(logrus.Fields{"seat_id": seatID, "holder_id": seat.HolderID}).Info("hold expired")
	publish(ctx, r.pub, r.log, broadcast.SeatMessage(broadcast.SeatReleased, seat.EventID, model.SeatAvailable, []uint64{seatID}))
	return true, nil
}

// ListenExpirations consumes expired-key notifications until ctx ends.
func (r *Reconciler) ListenExpirations(ctx context.Context) error {
	if r.notifyConfig {
		if err := r.holds.EnableExpiryEvents(ctx); err != nil {
			r.log.WithError(err).Warn("could not enable keyspace notifications; relying on sweep")
		}
	}
	expired, err := r.holds.SubscribeExpired(ctx)
	if err != nil {
		return fmt.Errorf("subscribe expirations: %w", err)
	}
	r.log.Info("listening for hold expirations")
	for id := range expired {
		if _, err := r.ExpireIfStale(ctx, id); err != nil {
			r.log.WithError(err).WithField("seat_id", id).Error("expire hold failed")
		}
	}
	return ctx.Err()
}

// Sweep walks every HELD seat and releases the ones without a live hold.
// Seats whose record still exists are skipped without a transaction.  It
// covers missed notifications and a Redis restart.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	held, err := r.seats.ListHeld(ctx)
	if err != nil {
		return 0, fmt.Errorf("list held seats: %w", err)
	}
	released := 0
	for _, h := range held {
		if ctx.Err() != nil {
			return released, ctx.Err()
		}
		if ok, err := r.holds.Exists(ctx, h.ID); err == nil && ok {
			continue
		}
		done, err := r.ExpireIfStale(ctx, h.ID)
		if err != nil {
			r.log.WithError(err).WithField("seat_id", h.ID).Error("sweep: expire hold failed")
			continue
		}
		if done {
			released++
		}
	}
	if released > 0 {
		r.log.WithField("released", released).Info("sweep released stale holds")
	}
	return released, nil
}
