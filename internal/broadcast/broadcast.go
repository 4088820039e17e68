// Package broadcast fans seat state changes and harness progress out to
// connected clients.  Delivery is fire-and-forget: messages are advisory
// and a client that missed one re-reads the seat snapshot.
package broadcast

import (
	"context"
	"errors"
	"strconv"

	"github.com/iliyamo/seat-reservation-engine/internal/model"
)

// Seat events.
const (
	SeatHeld     = "seat:held"
	SeatReleased = "seat:released"
	SeatBooked   = "seat:booked"
)

// Harness progress events.
const (
	UserAttempt      = "USER_ATTEMPT"
	LockAcquired     = "LOCK_ACQUIRED"
	BookingConfirmed = "BOOKING_CONFIRMED"
	LockRejected     = "LOCK_REJECTED"
	TestCompleted    = "TEST_COMPLETED"
)

// Message is one broadcast frame.  Room scopes delivery: seat events go to
// "event:<id>", harness events to "run:<id>".
type Message struct {
	Event string      `json:"event"`
	Room  string      `json:"room"`
	Data  interface{} `json:"data"`
}

// SeatChange is the payload of the seat events.
type SeatChange struct {
	SeatIDs []uint64         `json:"seat_ids"`
	Status  model.SeatStatus `json:"status"`
	EventID uint64           `json:"event_id"`
}

// Publisher delivers messages.  Implementations must not block on slow
// receivers.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// EventRoom is the room of an event's seat map.
func EventRoom(eventID uint64) string { return "event:" + strconv.FormatUint(eventID, 10) }

// RunRoom is the room of a harness run.
func RunRoom(runID string) string { return "run:" + runID }

// SeatMessage builds a seat event for the room of eventID.
func SeatMessage(event string, eventID uint64, status model.SeatStatus, seatIDs []uint64) Message {
	return Message{
		Event: event,
		Room:  EventRoom(eventID),
		Data:  SeatChange{SeatIDs: seatIDs, Status: status, EventID: eventID},
	}
}

// Multi publishes to every sink in order and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, msg Message) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(context.Context, Message) error { return nil }
