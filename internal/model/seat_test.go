package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeatTransitions(t *testing.T) {
	cases := []struct {
		from, to SeatStatus
		ok       bool
	}{
		{SeatAvailable, SeatHeld, true},
		{SeatHeld, SeatBooked, true},
		{SeatHeld, SeatAvailable, true},
		{SeatAvailable, SeatBooked, false},
		{SeatBooked, SeatAvailable, false},
		{SeatBooked, SeatHeld, false},
		{SeatAvailable, SeatAvailable, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "C7", Seat{RowLabel: "C", SeatNumber: 7}.Label())
	assert.Equal(t, "J10", Seat{RowLabel: "J", SeatNumber: 10}.Label())
	assert.Equal(t, "B-3", TestSeat{RowLabel: "B", SeatNumber: 3}.Label())
}
