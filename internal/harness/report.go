package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/seat-reservation-engine/internal/model"
	"github.com/iliyamo/seat-reservation-engine/internal/repository"
)

// Status is the live view of a run.
type Status struct {
	RunID         string              `json:"test_run_id"`
	Status        model.TestRunStatus `json:"status"`
	TotalActors   int                 `json:"total_users"`
	TotalSeats    int                 `json:"total_seats"`
	LocksAcquired int                 `json:"locks_acquired"`
	LocksFailed   int                 `json:"locks_failed"`
	StartedAt     time.Time           `json:"started_at"`
	ExpiresAt     time.Time           `json:"expires_at"`
}

// Report is the outcome of a run.
type Report struct {
	RunID              string              `json:"test_run_id"`
	Status             model.TestRunStatus `json:"status"`
	TotalActors        int                 `json:"total_users"`
	TotalSeats         int                 `json:"total_seats"`
	SuccessfulBookings int                 `json:"successful_bookings"`
	FailedAttempts     int                 `json:"failed_attempts"`
	CollisionRate      string              `json:"collision_rate"`
	Bookings           []model.TestBooking `json:"bookings,omitempty"`
	StartedAt          time.Time           `json:"started_at"`
	ExpiresAt          time.Time           `json:"expires_at"`
}

// CollisionRate formats failed/actors as a percentage with one decimal.
func CollisionRate(failed, actors int) string {
	if actors <= 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(failed)/float64(actors)*100)
}

func newReport(run *model.TestRun, actors, seats, succeeded int) *Report {
	failed := actors - succeeded
	return &Report{
		RunID:              run.ID,
		Status:             run.Status,
		TotalActors:        actors,
		TotalSeats:         seats,
		SuccessfulBookings: succeeded,
		FailedAttempts:     failed,
		CollisionRate:      CollisionRate(failed, actors),
		StartedAt:          run.StartedAt,
		ExpiresAt:          run.ExpiresAt,
	}
}

func (h *Harness) load(ctx context.Context, runID string) (*model.TestRun, int, error) {
	run, booked, err := h.store.GetRun(ctx, runID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, 0, ErrRunNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	return run, booked, nil
}

// Status returns the progress of a run.
func (h *Harness) Status(ctx context.Context, runID string) (*Status, error) {
	run, booked, err := h.load(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &Status{
		RunID:         run.ID,
		Status:        run.Status,
		TotalActors:   run.TotalActors,
		TotalSeats:    run.TotalSeats,
		LocksAcquired: booked,
		LocksFailed:   run.TotalActors - booked,
		StartedAt:     run.StartedAt,
		ExpiresAt:     run.ExpiresAt,
	}, nil
}

// Report returns the outcome of a run with its winning bookings.
func (h *Harness) Report(ctx context.Context, runID string) (*Report, error) {
	run, booked, err := h.load(ctx, runID)
	if err != nil {
		return nil, err
	}
	bookings, err := h.store.ListBookings(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	rep := newReport(run, run.TotalActors, run.TotalSeats, booked)
	rep.Bookings = bookings
	return rep, nil
}
