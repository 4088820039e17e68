package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/seat-reservation-engine/internal/model"
)

// TestRunRepo persists concurrency test namespaces.  Rows live in their
// own test_* tables and never touch production seats or bookings.
type TestRunRepo struct {
	db *sql.DB
}

// NewTestRunRepo returns a new TestRunRepo bound to the given database.
func NewTestRunRepo(db *sql.DB) *TestRunRepo { return &TestRunRepo{db: db} }

// CreateRun inserts the run header.
func (r *TestRunRepo) CreateRun(ctx context.Context, run *model.TestRun) error {
	const q = `INSERT INTO test_runs (id, status, total_actors, total_seats, started_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, run.ID, string(run.Status), run.TotalActors, run.TotalSeats, run.StartedAt.UTC(), run.ExpiresAt.UTC())
	return err
}

// CreateActors inserts the synthetic actors of a run in one statement.
func (r *TestRunRepo) CreateActors(ctx context.Context, runID string, actorIDs []string) error {
	if len(actorIDs) == 0 {
		return nil
	}
	query := `INSERT INTO test_actors (id, run_id) VALUES `
	args := make([]interface{}, 0, len(actorIDs)*2)
	for i, id := range actorIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, id, runID)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// CreateSeats inserts the synthetic seats and returns them with their
// generated ids.
func (r *TestRunRepo) CreateSeats(ctx context.Context, runID string, seats []model.TestSeat) ([]model.TestSeat, error) {
	if len(seats) == 0 {
		return nil, nil
	}
	query := `INSERT INTO test_seats (run_id, row_label, seat_number) VALUES `
	args := make([]interface{}, 0, len(seats)*3)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, runID, s.RowLabel, s.SeatNumber)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, run_id, row_label, seat_number FROM test_seats WHERE run_id = ? ORDER BY row_label, seat_number`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.TestSeat, 0, len(seats))
	for rows.Next() {
		var s model.TestSeat
		if err := rows.Scan(&s.ID, &s.RunID, &s.RowLabel, &s.SeatNumber); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AttemptLock inserts the seat lock and the booking in one transaction.
// The primary key on test_seat_locks.seat_id decides the winner; losers
// get ErrDuplicate and leave no rows behind.
func (r *TestRunRepo) AttemptLock(ctx context.Context, runID, actorID string, seat model.TestSeat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `INSERT INTO test_seat_locks (seat_id, actor_id) VALUES (?, ?)`, seat.ID, actorID); err != nil {
		return translate(err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO test_bookings (run_id, actor_id, seat_row, seat_number) VALUES (?, ?, ?, ?)`,
		runID, actorID, seat.RowLabel, seat.SeatNumber,
	); err != nil {
		return translate(err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// CompleteRun marks the run COMPLETED.
func (r *TestRunRepo) CompleteRun(ctx context.Context, runID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE test_runs SET status = 'COMPLETED' WHERE id = ?`, runID)
	return err
}

// GetRun loads a run header together with its booking count.
func (r *TestRunRepo) GetRun(ctx context.Context, runID string) (*model.TestRun, int, error) {
	const q = `SELECT r.id, r.status, r.total_actors, r.total_seats, r.started_at, r.expires_at,
	                  (SELECT COUNT(*) FROM test_bookings b WHERE b.run_id = r.id)
	           FROM test_runs r WHERE r.id = ?`
	var run model.TestRun
	var booked int
	err := r.db.QueryRowContext(ctx, q, runID).Scan(
		&run.ID, &run.Status, &run.TotalActors, &run.TotalSeats, &run.StartedAt, &run.ExpiresAt, &booked,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	return &run, booked, nil
}

// ListBookings returns the winning bookings of a run in booking order.
func (r *TestRunRepo) ListBookings(ctx context.Context, runID string) ([]model.TestBooking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT actor_id, seat_row, seat_number, booked_at FROM test_bookings WHERE run_id = ? ORDER BY booked_at, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.TestBooking, 0)
	for rows.Next() {
		var b model.TestBooking
		if err := rows.Scan(&b.ActorID, &b.SeatRow, &b.SeatNumber, &b.BookedAt); err != nil {
			return nil, err
		}
		b.Seat = model.TestSeat{RowLabel: b.SeatRow, SeatNumber: b.SeatNumber}.Label()
		result = append(result, b)
	}
	return result, rows.Err()
}

// DeleteExpired removes every run whose expiry has passed; child rows go
// with it through ON DELETE CASCADE.
func (r *TestRunRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM test_runs WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
