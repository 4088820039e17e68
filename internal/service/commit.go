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
	"github.com/iliyamo/seat-reservation-engine/internal/queue"
	"github.com/iliyamo/seat-reservation-engine/internal/repository"
)

// Commit sources recorded on the booking notification.
const (
	SourceWebhook = "webhook"
	SourceClient  = "client"
)

// BookingNotifier receives a notification per successful commit.
type BookingNotifier interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// CommitResult is the outcome of a commit.  AlreadyCommitted is set when
// the set had been booked before; nothing was changed in that case.
type CommitResult struct {
	EventID          uint64   `json:"event_id,omitempty"`
	SeatIDs          []uint64 `json:"seat_ids"`
	HolderID         string   `json:"-"`
	AlreadyCommitted bool     `json:"already_committed"`
	TotalAmountCents uint64   `json:"total_amount_cents,omitempty"`
}

// CommitService converts held seats into bookings.  Both the payment
// webhook and the client verification endpoint call Commit.
type CommitService struct {
	seats    *repository.SeatRepo
	bookings *repository.BookingRepo
	holds    *cache.HoldCache
	pub      broadcast.Publisher
	notifier BookingNotifier
	price    uint32
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewCommitService wires a CommitService.  notifier may be nil.
// pricePerSeat is the flat amount in cents reported per booked seat.
func NewCommitService(seats *repository.SeatRepo, bookings *repository.BookingRepo, holds *cache.HoldCache, pub broadcast.Publisher, notifier BookingNotifier, pricePerSeat uint32, log logrus.FieldLogger) *CommitService {
	return &CommitService{
		seats:    seats,
		bookings: bookings,
		holds:    holds,
		pub:      pub,
		notifier: notifier,
		price:    pricePerSeat,
		log:      logging.Component(log, "commit"),
		now:      time.Now,
	}
}

// Commit books every seat in seatIDs for holderID, or none.  Every seat
// must be HELD by holderID.  Committing a set that already has a confirmed
// booking succeeds without changes, so repeated payment callbacks are
// harmless.
func (s *CommitService) Commit(ctx context.Context, seatIDs []uint64, holderID, source string) (*CommitResult, error) {
	ids := normalizeIDs(seatIDs)
	if len(ids) == 0 || holderID == "" {
		return nil, ErrInvalidRequest
	}
	fields := logrus.Fields{"seat_ids": ids, "holder_id": holderID, "source": source}

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
	booked, err := s.bookings.AnyConfirmedTx(ctx, tx, ids)
	if err != nil {
		return nil, fmt.Errorf("check bookings: %w", err)
	}
	if booked {
		s.log.WithFields(fields).Info("seats already committed; ignoring")
		return &CommitResult{SeatIDs: ids, HolderID: holderID, AlreadyCommitted: true}, nil
	}
	if len(seats) != len(ids) {
		return nil, ErrSeatsNotFound
	}
	for _, seat := range seats {
		if seat.Status != model.SeatHeld {
			return nil, ErrNotLocked
		}
		if seat.HolderID != holderID {
			return nil, ErrNotOwner
		}
	}

	if _, err := s.seats.MarkBookedTx(ctx, tx, ids); err != nil {
		return nil, fmt.Errorf("mark booked: %w", err)
	}
	if err := s.bookings.CreateConfirmedTx(ctx, tx, holderID, ids); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrSeatNotAvailable
		}
		return nil, fmt.Errorf("insert bookings: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true

	eventID := seats[0].EventID
	res := &CommitResult{
		EventID:          eventID,
		SeatIDs:          ids,
		HolderID:         holderID,
		TotalAmountCents: uint64(len(ids)) * uint64(s.price),
	}
	s.log.WithFields(fields).Info("seats booked")

	releaseHold(ctx, s.holds, s.log, ids...)
	publish(ctx, s.pub, s.log, broadcast.SeatMessage(broadcast.SeatBooked, eventID, model.SeatBooked, ids))
	s.notify(ctx, res, seats, source)
	return res, nil
}

func (s *CommitService) notify(ctx context.Context, res *CommitResult, seats []model.Seat, source string) {
	if s.notifier == nil {
		return
	}
	labels := make([]string, len(seats))
	for i, seat := range seats {
		labels[i] = seat.Label()
	}
	ev := queue.BookingConfirmedEvent{
		HolderID:         res.HolderID,
		EventID:          res.EventID,
		SeatIDs:          res.SeatIDs,
		SeatLabels:       labels,
		TotalAmountCents: res.TotalAmountCents,
		Source:           source,
		ConfirmedAt:      s.now().UTC().Format(time.RFC3339),
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.notifier.PublishBookingConfirmed(nctx, ev); err != nil {
		s.log.WithError(err).Warn("booking notification failed")
	}
}
