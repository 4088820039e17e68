package model

import (
	"strconv"
	"time"
)

// SeatStatus is the lifecycle state of a seat.  The only legal edges are
// AVAILABLE -> HELD -> BOOKED and HELD -> AVAILABLE; BOOKED is terminal.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatHeld      SeatStatus = "HELD"
	SeatBooked    SeatStatus = "BOOKED"
)

// CanTransition reports whether a seat may move from s to next.
func (s SeatStatus) CanTransition(next SeatStatus) bool {
	switch s {
	case SeatAvailable:
		return next == SeatHeld
	case SeatHeld:
		return next == SeatAvailable || next == SeatBooked
	}
	return false
}

// Seat describes a seat of an event.  Seats are uniquely identified by
// their event, row label and seat number.  HolderID and HeldUntil are set
// exactly when Status is HELD.
//
// Fields:
//
//	ID         – primary key identifier.
//	EventID    – event to which this seat belongs.
//	RowLabel   – letter or string designating the row.
//	SeatNumber – number of the seat within the row.
//	Status     – AVAILABLE, HELD or BOOKED.
//	HolderID   – identity of the actor holding the seat (empty unless HELD).
//	HeldUntil  – database-side expiry of the hold (nil unless HELD).
type Seat struct {
	ID         uint64     `json:"id"`
	EventID    uint64     `json:"event_id"`
	RowLabel   string     `json:"row"`
	SeatNumber uint32     `json:"number"`
	Status     SeatStatus `json:"status"`
	HolderID   string     `json:"-"`
	HeldUntil  *time.Time `json:"-"`
}

// Label renders the seat position, e.g. "C7".
func (s Seat) Label() string {
	return s.RowLabel + itoa(s.SeatNumber)
}

func itoa(n uint32) string { return strconv.FormatUint(uint64(n), 10) }
