package model

import "time"

// TestRunStatus tracks a concurrency test run.
type TestRunStatus string

const (
	TestRunRunning   TestRunStatus = "RUNNING"
	TestRunCompleted TestRunStatus = "COMPLETED"
)

// TestRun is an isolated namespace of synthetic seats, actors and bookings.
// All child rows are removed by cascade when the run is deleted.
type TestRun struct {
	ID          string        `json:"test_run_id"`
	Status      TestRunStatus `json:"status"`
	TotalActors int           `json:"total_users"`
	TotalSeats  int           `json:"total_seats"`
	StartedAt   time.Time     `json:"started_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
}

// TestSeat is a synthetic seat of a test run.
type TestSeat struct {
	ID         uint64
	RunID      string
	RowLabel   string
	SeatNumber uint32
}

// Label renders the seat as "B-3".
func (s TestSeat) Label() string {
	return s.RowLabel + "-" + itoa(s.SeatNumber)
}

// TestBooking is the record written by a winning actor.
type TestBooking struct {
	ActorID    string    `json:"virtual_user_id"`
	SeatRow    string    `json:"-"`
	SeatNumber uint32    `json:"-"`
	Seat       string    `json:"seat"`
	BookedAt   time.Time `json:"booked_at"`
}
