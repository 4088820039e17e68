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

// Hold describes a successfully acquired set of seats.
type Hold struct {
	EventID   uint64
	SeatIDs   []uint64
	HolderID  string
	ExpiresAt time.Time
}

// HoldService places and releases temporary holds on seats.  The seat rows
// are authoritative; hold records in Redis only carry the expiry.
type HoldService struct {
	seats *repository.SeatRepo
	holds *cache.HoldCache
	pub   broadcast.Publisher
	ttl   time.Duration
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewHoldService wires a HoldService.  ttl is the hold window.
func NewHoldService(seats *repository.SeatRepo, holds *cache.HoldCache, pub broadcast.Publisher, ttl time.Duration, log logrus.FieldLogger) *HoldService {
	return &HoldService{
		seats: seats,
		holds: holds,
		pub:   pub,
		ttl:   ttl,
		log:   logging.Component(log, "holds"),
		now:   time.Now,
	}
}

// TTL returns the configured hold window.
func (s *HoldService) TTL() time.Duration { return s.ttl }

// AcquireHold holds every seat in seatIDs for holderID or none of them.
// Stale holds found on the way (row HELD, record gone) are released in the
// same transaction.  A conflict is reported as ErrSeatNotAvailable and is
// never retried.
func (s *HoldService) AcquireHold(ctx context.Context, seatIDs []uint64, holderID string) (*Hold, error) {
	ids := normalizeIDs(seatIDs)
	if len(ids) == 0 || holderID == "" {
		return nil, ErrInvalidRequest
	}
	now := s.now().UTC()

	tx, err := s.seats.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	seats, err := s.seats.LockByIDsTx(ctx, tx, ids)
	if err != nil {
		return nil, fmt.Errorf("lock seats: %w", err)
	}
	if len(seats) != len(ids) {
		return nil, ErrSeatsNotFound
	}
	eventID := seats[0].EventID

	var stale []uint64
	for i := range seats {
		if seats[i].EventID != eventID {
			return nil, ErrInvalidRequest
		}
		if seats[i].Status == model.SeatHeld && !holdLive(ctx, s.holds, seats[i], now, s.ttl, s.log) {
			stale = append(stale, seats[i].ID)
			seats[i].Status = model.SeatAvailable
		}
	}
	if len(stale) > 0 {
		if _, err := s.seats.MarkAvailableTx(ctx, tx, stale); err != nil {
			return nil, fmt.Errorf("release stale holds: %w", err)
		}
		s.log.WithField("seat_ids", stale).Info("released stale holds")
	}

	for _, seat := range seats {
		if !seat.Status.CanTransition(model.SeatHeld) {
			return nil, ErrSeatNotAvailable
		}
	}

	until := now.Add(s.ttl)
	if err := s.seats.MarkHeldTx(ctx, tx, ids, holderID, until); err != nil {
		return nil, fmt.Errorf("mark held: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true

	for _, id := range ids {
		replaced, err := s.holds.Hold(ctx, id, holderID, s.ttl)
		switch {
		case errors.Is(err, cache.ErrCacheUnavailable):
		case err != nil:
			s.log.WithError(err).WithField("seat_id", id).Warn("install hold record failed")
		case replaced:
			s.log.WithFields(logrus.Fields{"seat_id": id, "holder_id": holderID}).Warn("hold record already existed; refreshed")
		}
	}

	publish(ctx, s.pub, s.log, broadcast.SeatMessage(broadcast.SeatHeld, eventID, model.SeatHeld, ids))
	return &Hold{EventID: eventID, SeatIDs: ids, HolderID: holderID, ExpiresAt: until}, nil
}

// ReleaseHold deletes the hold records of the seats.  The rows are left to
// the commit path or the reconciler.
func (s *HoldService) ReleaseHold(ctx context.Context, seatIDs []uint64) error {
	return s.holds.Release(ctx, normalizeIDs(seatIDs)...)
}

// HoldRemaining returns the time left on a seat's hold; ok is false when
// the seat has no live hold record.
func (s *HoldService) HoldRemaining(ctx context.Context, seatID uint64) (time.Duration, bool, error) {
	return s.holds.Remaining(ctx, seatID)
}
