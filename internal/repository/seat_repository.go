package repository // repository defines data access for seats

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/seat-reservation-engine/internal/model"
)

// ErrSeatNotFound is returned when a seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// SeatRepo provides methods to work with seats in the database.  Every
// method that changes a seat's status takes the caller's transaction; the
// row locks taken by LockByIDsTx/LockByIDTx are what serializes competing
// acquirers, committers and reconcilers on the same rows.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// DB exposes the handle so services can open transactions.
func (r *SeatRepo) DB() *sql.DB { return r.db }

const seatColumns = `id, event_id, row_label, seat_number, status, holder_id, held_until`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSeat(sc rowScanner) (model.Seat, error) {
	var s model.Seat
	var holder sql.NullString
	var until sql.NullTime
	if err := sc.Scan(&s.ID, &s.EventID, &s.RowLabel, &s.SeatNumber, &s.Status, &holder, &until); err != nil {
		return s, err
	}
	s.HolderID = holder.String
	if until.Valid {
		t := until.Time.UTC()
		s.HeldUntil = &t
	}
	return s, nil
}

// LockByIDsTx selects the requested seats with a write lock.  Rows are
// locked in primary key order so overlapping requests cannot deadlock.
// Missing IDs are simply absent from the result; callers compare lengths.
func (r *SeatRepo) LockByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `SELECT ` + seatColumns + ` FROM seats WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]model.Seat, 0, len(ids))
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// LockByIDTx selects a single seat with a write lock.
func (r *SeatRepo) LockByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Seat, error) {
	q := `SELECT ` + seatColumns + ` FROM seats WHERE id = ? FOR UPDATE`
	s, err := scanSeat(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return &s, nil
}

// MarkHeldTx moves the seats to HELD for holderID until the given time.
func (r *SeatRepo) MarkHeldTx(ctx context.Context, tx *sql.Tx, ids []uint64, holderID string, until time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	q := `UPDATE seats SET status = 'HELD', holder_id = ?, held_until = ? WHERE id IN (` + placeholders(len(ids)) + `)`
	args := append([]interface{}{holderID, until.UTC()}, idArgs(ids)...)
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

// MarkAvailableTx releases HELD seats.  Seats in any other state are left
// untouched, so the update is safe to repeat.  It returns the number of
// rows changed.
func (r *SeatRepo) MarkAvailableTx(ctx context.Context, tx *sql.Tx, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := `UPDATE seats SET status = 'AVAILABLE', holder_id = NULL, held_until = NULL WHERE status = 'HELD' AND id IN (` + placeholders(len(ids)) + `)`
	res, err := tx.ExecContext(ctx, q, idArgs(ids)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkBookedTx turns HELD seats into BOOKED and clears the holder.  It
// returns the number of rows changed.
func (r *SeatRepo) MarkBookedTx(ctx context.Context, tx *sql.Tx, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := `UPDATE seats SET status = 'BOOKED', holder_id = NULL, held_until = NULL WHERE status = 'HELD' AND id IN (` + placeholders(len(ids)) + `)`
	res, err := tx.ExecContext(ctx, q, idArgs(ids)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// HeldSeat is the projection used by the reconciliation sweep.
type HeldSeat struct {
	ID        uint64
	HeldUntil *time.Time
}

// ListHeld returns every seat currently HELD, oldest hold first.
func (r *SeatRepo) ListHeld(ctx context.Context) ([]HeldSeat, error) {
	const q = `SELECT id, held_until FROM seats WHERE status = 'HELD' ORDER BY held_until, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []HeldSeat
	for rows.Next() {
		var h HeldSeat
		var until sql.NullTime
		if err := rows.Scan(&h.ID, &until); err != nil {
			return nil, err
		}
		if until.Valid {
			t := until.Time.UTC()
			h.HeldUntil = &t
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListByEvent retrieves all seats of an event ordered by row then number.
func (r *SeatRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE event_id = ? ORDER BY row_label, seat_number`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateGrid inserts a deterministic rows × perRow grid of AVAILABLE seats
// for an event in a single statement: rows are labelled in the given order
// and seats numbered from 1.
func (r *SeatRepo) CreateGrid(ctx context.Context, eventID uint64, rowLabels []string, perRow int) error {
	if len(rowLabels) == 0 || perRow <= 0 {
		return nil
	}
	query := `INSERT INTO seats (event_id, row_label, seat_number) VALUES `
	args := make([]interface{}, 0, len(rowLabels)*perRow*3)
	first := true
	for _, row := range rowLabels {
		for n := 1; n <= perRow; n++ {
			if !first {
				query += ","
			}
			first = false
			query += "(?, ?, ?)"
			args = append(args, eventID, row, n)
		}
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}
