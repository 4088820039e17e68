package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// CheckoutCompleted is the only event type the engine acts on.
const CheckoutCompleted = "checkout.session.completed"

// Event is the part of a provider callback the engine reads.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object Session `json:"object"`
	} `json:"data"`
}

// Session is a checkout session.  Metadata values are strings; seat_ids
// holds a JSON array.
type Session struct {
	ID            string            `json:"id"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

// Order is what the checkout was created for.
type Order struct {
	SeatIDs  []uint64
	HolderID string
	EventID  uint64
}

// ErrBadMetadata is returned when a paid session lacks usable metadata.
var ErrBadMetadata = errors.New("bad checkout metadata")

// ParseEvent decodes a callback body.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &ev, nil
}

// Paid reports whether ev is a completed and paid checkout.
func (ev *Event) Paid() bool {
	return ev.Type == CheckoutCompleted && ev.Data.Object.PaymentStatus == "paid"
}

// Order decodes the session metadata.
func (ev *Event) Order() (*Order, error) {
	md := ev.Data.Object.Metadata
	holder := md["holder_id"]
	if holder == "" {
		return nil, fmt.Errorf("%w: holder_id missing", ErrBadMetadata)
	}
	ids, err := parseSeatIDs(md["seat_ids"])
	if err != nil {
		return nil, err
	}
	o := &Order{SeatIDs: ids, HolderID: holder}
	if raw := md["event_id"]; raw != "" {
		o.EventID, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: event_id %q", ErrBadMetadata, raw)
		}
	}
	return o, nil
}

// parseSeatIDs accepts [1,2] as well as ["1","2"].
func parseSeatIDs(raw string) ([]uint64, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: seat_ids missing", ErrBadMetadata)
	}
	var items []json.Number
	var strs []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		if err := json.Unmarshal([]byte(raw), &strs); err != nil {
			return nil, fmt.Errorf("%w: seat_ids %q", ErrBadMetadata, raw)
		}
		for _, s := range strs {
			items = append(items, json.Number(s))
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: seat_ids empty", ErrBadMetadata)
	}
	ids := make([]uint64, 0, len(items))
	for _, n := range items {
		id, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("%w: seat id %q", ErrBadMetadata, n)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
