package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/seat-reservation-engine/internal/model"
)

// BookingRepo provides access to the bookings table.  Bookings are only
// ever inserted, inside the same transaction that flips their seats to
// BOOKED.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// AnyConfirmedTx reports whether at least one seat in ids already has a
// confirmed booking.  Run it after the seats are locked so the answer
// cannot change before commit.
func (r *BookingRepo) AnyConfirmedTx(ctx context.Context, tx *sql.Tx, ids []uint64) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	q := `SELECT COUNT(*) FROM bookings WHERE status = 'CONFIRMED' AND seat_id IN (` + placeholders(len(ids)) + `)`
	var n int
	if err := tx.QueryRowContext(ctx, q, idArgs(ids)...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateConfirmedTx inserts one CONFIRMED booking per seat in a single
// statement.  A unique violation surfaces as ErrDuplicate.
func (r *BookingRepo) CreateConfirmedTx(ctx context.Context, tx *sql.Tx, holderID string, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `INSERT INTO bookings (seat_id, holder_id, status) VALUES `
	args := make([]interface{}, 0, len(seatIDs)*3)
	for i, sid := range seatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, sid, holderID, string(model.BookingConfirmed))
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return translate(err)
}

// ListByHolder returns the confirmed bookings of a holder, newest first,
// joined with seat and event details.
func (r *BookingRepo) ListByHolder(ctx context.Context, holderID string) ([]model.BookingDetail, error) {
	const q = `SELECT b.id, e.id, e.name, e.starts_at, s.id, s.row_label, s.seat_number, b.status, b.created_at
	           FROM bookings b
	           JOIN seats s ON s.id = b.seat_id
	           JOIN events e ON e.id = s.event_id
	           WHERE b.holder_id = ? AND b.status = 'CONFIRMED'
	           ORDER BY b.created_at DESC, b.id DESC`
	rows, err := r.db.QueryContext(ctx, q, holderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.BookingDetail, 0)
	for rows.Next() {
		var d model.BookingDetail
		var row string
		var num uint32
		if err := rows.Scan(&d.ID, &d.EventID, &d.EventName, &d.EventDate, &d.SeatID, &row, &num, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.SeatNumber = model.Seat{RowLabel: row, SeatNumber: num}.Label()
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
