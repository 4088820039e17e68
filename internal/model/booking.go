package model

import "time"

// BookingStatus of a booking row.  Only CONFIRMED is produced by the engine.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingRevoked   BookingStatus = "REVOKED"
)

// Booking is the permanent record of a committed seat.  There is at most
// one CONFIRMED booking per seat.  Rows are immutable once written.
type Booking struct {
	ID        uint64        `json:"id"`
	SeatID    uint64        `json:"seat_id"`
	HolderID  string        `json:"holder_id"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// BookingDetail joins a booking with its seat and event for listing.
type BookingDetail struct {
	ID         uint64        `json:"id"`
	EventID    uint64        `json:"event_id"`
	EventName  string        `json:"event_name"`
	EventDate  time.Time     `json:"date"`
	SeatID     uint64        `json:"seat_id"`
	SeatNumber string        `json:"seat_number"`
	Status     BookingStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}
