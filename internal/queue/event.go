// Package queue carries booking notifications over RabbitMQ: the durable
// booking.confirmed queue, its publisher and a consumer that appends each
// confirmation to a log file.
package queue

// BookingQueueName is the durable queue receiving BookingConfirmedEvent.
const BookingQueueName = "booking.confirmed"

// BookingConfirmedEvent is published once per successful commit.  It holds
// enough for downstream consumers to log, notify or aggregate without
// querying the seat store.
type BookingConfirmedEvent struct {
	HolderID         string   `json:"holder_id"`
	EventID          uint64   `json:"event_id"`
	SeatIDs          []uint64 `json:"seat_ids"`
	SeatLabels       []string `json:"seats"`
	TotalAmountCents uint64   `json:"total_amount_cents"`
	Source           string   `json:"source"`
	ConfirmedAt      string   `json:"confirmed_at"`
}
