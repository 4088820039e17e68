package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/seat-reservation-engine/internal/model"
)

// ErrEventNotFound is returned when an event lookup yields no rows.
var ErrEventNotFound = errors.New("event not found")

// EventRepo reads catalog events.  Create exists only for seeding demo data.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Create inserts an event and returns its id.
func (r *EventRepo) Create(ctx context.Context, name string, startsAt time.Time) (uint64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO events (name, starts_at) VALUES (?, ?)`, name, startsAt.UTC())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID retrieves an event by id.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRowContext(ctx, `SELECT id, name, starts_at FROM events WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.StartsAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &e, nil
}

// List returns all events ordered by date.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, starts_at FROM events ORDER BY starts_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Event, 0)
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.StartsAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
