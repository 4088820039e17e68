// Package harness runs the concurrency test: N synthetic actors race for M
// synthetic seats, each with exactly one attempt, and the database unique
// constraint alone decides the winners.  Runs live in their own tables and
// expire after a fixed lifetime.
package harness

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-reservation-engine/internal/broadcast"
	"github.com/iliyamo/seat-reservation-engine/internal/logging"
	"github.com/iliyamo/seat-reservation-engine/internal/model"
	"github.com/iliyamo/seat-reservation-engine/internal/repository"
)

// Limits and defaults of a run.
const (
	MaxActors     = 500
	MaxSeats      = 20
	DefaultActors = 50
	DefaultSeats  = 20
	SeatsPerRow   = 4
)

// Rows of the synthetic seat grid.
var Rows = []string{"A", "B", "C", "D", "E"}

// Store persists runs.  repository.TestRunRepo is the MySQL implementation.
type Store interface {
	CreateRun(ctx context.Context, run *model.TestRun) error
	CreateActors(ctx context.Context, runID string, actorIDs []string) error
	CreateSeats(ctx context.Context, runID string, seats []model.TestSeat) ([]model.TestSeat, error)
	AttemptLock(ctx context.Context, runID, actorID string, seat model.TestSeat) error
	CompleteRun(ctx context.Context, runID string) error
	GetRun(ctx context.Context, runID string) (*model.TestRun, int, error)
	ListBookings(ctx context.Context, runID string) ([]model.TestBooking, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ErrRunNotFound is returned for unknown or already expired runs.
var ErrRunNotFound = errors.New("test run not found")

// Plan is a prepared run with its actors and seats.
type Plan struct {
	Run    *model.TestRun
	Actors []string
	Seats  []model.TestSeat
}

// Attempt is the payload of the per-actor progress events.
type Attempt struct {
	RunID     string    `json:"test_run_id"`
	ActorID   string    `json:"user_id"`
	Seat      string    `json:"seat"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Harness prepares, executes and reports test runs.
type Harness struct {
	store Store
	pub   broadcast.Publisher
	ttl   time.Duration
	delay time.Duration
	log   logrus.FieldLogger
	now   func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Harness.  ttl is the lifetime of a run; delay is the pause
// between Start returning and the actors firing, which gives clients time
// to join the run's room.
func New(store Store, pub broadcast.Publisher, ttl, delay time.Duration, log logrus.FieldLogger) *Harness {
	return &Harness{
		store: store,
		pub:   pub,
		ttl:   ttl,
		delay: delay,
		log:   logging.Component(log, "harness"),
		now:   time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed makes seat selection deterministic.
func (h *Harness) Seed(seed int64) {
	h.mu.Lock()
	h.rnd = rand.New(rand.NewSource(seed))
	h.mu.Unlock()
}

func (h *Harness) pick(n int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rnd.Intn(n)
}

// Clamp bounds the requested sizes; zero means the default.
func Clamp(actors, seats int) (int, int) {
	if actors == 0 {
		actors = DefaultActors
	}
	if seats == 0 {
		seats = DefaultSeats
	}
	return min(max(actors, 1), MaxActors), min(max(seats, 1), MaxSeats)
}

// Grid lays out n seats row by row, SeatsPerRow per row.
func Grid(n int) []model.TestSeat {
	seats := make([]model.TestSeat, 0, n)
	for _, row := range Rows {
		for num := 1; num <= SeatsPerRow && len(seats) < n; num++ {
			seats = append(seats, model.TestSeat{RowLabel: row, SeatNumber: uint32(num)})
		}
	}
	return seats
}

// Prepare creates the run, its actors and its seat grid.
func (h *Harness) Prepare(ctx context.Context, actors, seats int) (*Plan, error) {
	actors, seats = Clamp(actors, seats)
	started := h.now().UTC().Truncate(time.Second)
	run := &model.TestRun{
		ID:          uuid.NewString(),
		Status:      model.TestRunRunning,
		TotalActors: actors,
		TotalSeats:  seats,
		StartedAt:   started,
		ExpiresAt:   started.Add(h.ttl),
	}
	if err := h.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	ids := make([]string, actors)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	if err := h.store.CreateActors(ctx, run.ID, ids); err != nil {
		return nil, fmt.Errorf("create actors: %w", err)
	}
	grid, err := h.store.CreateSeats(ctx, run.ID, Grid(seats))
	if err != nil {
		return nil, fmt.Errorf("create seats: %w", err)
	}
	return &Plan{Run: run, Actors: ids, Seats: grid}, nil
}

// Start prepares a run and executes it in the background.  The run keeps
// going after ctx ends; it is bounded by the run lifetime instead.
func (h *Harness) Start(ctx context.Context, actors, seats int) (*model.TestRun, error) {
	plan, err := h.Prepare(ctx, actors, seats)
	if err != nil {
		return nil, err
	}
	go func() {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.ttl)
		defer cancel()
		if h.delay > 0 {
			t := time.NewTimer(h.delay)
			defer t.Stop()
			select {
			case <-t.C:
			case <-bg.Done():
				return
			}
		}
		if _, err := h.Execute(bg, plan); err != nil {
			h.log.WithError(err).WithField("run_id", plan.Run.ID).Error("test run failed")
		}
	}()
	return plan.Run, nil
}

// Run prepares and executes a run synchronously.
func (h *Harness) Run(ctx context.Context, actors, seats int) (*Report, error) {
	plan, err := h.Prepare(ctx, actors, seats)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, plan)
}

// Execute fires every actor at once.  Each actor picks one seat uniformly
// at random and tries once; any error is a rejection.
func (h *Harness) Execute(ctx context.Context, plan *Plan) (*Report, error) {
	if len(plan.Seats) == 0 {
		return nil, fmt.Errorf("run %s has no seats", plan.Run.ID)
	}
	runID := plan.Run.ID
	room := broadcast.RunRoom(runID)
	log := h.log.WithField("run_id", runID)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	gate := make(chan struct{})
	for _, actor := range plan.Actors {
		seat := plan.Seats[h.pick(len(plan.Seats))]
		wg.Add(1)
		go func(actor string, seat model.TestSeat) {
			defer wg.Done()
			<-gate
			if h.attempt(ctx, room, runID, actor, seat, log) {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(actor, seat)
	}
	close(gate)
	wg.Wait()

	if err := h.store.CompleteRun(ctx, runID); err != nil {
		return nil, fmt.Errorf("complete run: %w", err)
	}
	plan.Run.Status = model.TestRunCompleted

	rep := newReport(plan.Run, len(plan.Actors), len(plan.Seats), succeeded)
	log.WithFields(logrus.Fields{"succeeded": rep.SuccessfulBookings, "failed": rep.FailedAttempts}).Info("test run completed")
	publish(ctx, h.pub, log, broadcast.Message{Event: broadcast.TestCompleted, Room: room, Data: rep})
	return rep, nil
}

func (h *Harness) attempt(ctx context.Context, room, runID, actor string, seat model.TestSeat, log logrus.FieldLogger) bool {
	label := seat.Label()
	ev := Attempt{RunID: runID, ActorID: actor, Seat: label, Timestamp: h.now().UTC()}
	publish(ctx, h.pub, log, broadcast.Message{Event: broadcast.UserAttempt, Room: room, Data: ev})

	err := h.store.AttemptLock(ctx, runID, actor, seat)
	ev.Timestamp = h.now().UTC()
	if err != nil {
		ev.Reason = "Seat already locked"
		if !errors.Is(err, repository.ErrDuplicate) {
			ev.Reason = "attempt failed"
			log.WithError(err).WithField("actor_id", actor).Warn("lock attempt failed")
		}
		publish(ctx, h.pub, log, broadcast.Message{Event: broadcast.LockRejected, Room: room, Data: ev})
		return false
	}
	publish(ctx, h.pub, log, broadcast.Message{Event: broadcast.LockAcquired, Room: room, Data: ev})
	publish(ctx, h.pub, log, broadcast.Message{Event: broadcast.BookingConfirmed, Room: room, Data: ev})
	return true
}

// CleanupExpired deletes every run past its expiry.
func (h *Harness) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := h.store.DeleteExpired(ctx, h.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		h.log.WithField("runs", n).Info("cleaned up expired test runs")
	}
	return n, nil
}

func publish(ctx context.Context, pub broadcast.Publisher, log logrus.FieldLogger, msg broadcast.Message) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, msg); err != nil {
		log.WithError(err).WithField("event", msg.Event).Debug("broadcast failed")
	}
}
