package queue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLine(t *testing.T) {
	line := formatLine(BookingConfirmedEvent{
		HolderID:         "user-1",
		EventID:          4,
		SeatLabels:       []string{"A1", "A2"},
		TotalAmountCents: 60000,
		Source:           "webhook",
		ConfirmedAt:      "2026-01-24T20:00:00Z",
	})
	assert.Equal(t, "[2026-01-24T20:00:00Z] Booking confirmed | holder_id=user-1 | event_id=4 | source=webhook | total=60000 cents | seats=[A1,A2]\n", line)
	assert.Contains(t, formatLine(BookingConfirmedEvent{}), "seats=[]")
}

func TestHandleAppendsToLogFile(t *testing.T) {
	log, _ := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "logs", "booking.log")
	c := NewConsumer("amqp://unused", path, log)

	require.NoError(t, c.handle([]byte(`{"holder_id":"u1","event_id":1,"seats":["B3"],"source":"client"}`)))
	require.NoError(t, c.handle([]byte(`{"holder_id":"u2","event_id":1,"seats":["B4"],"source":"webhook"}`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "holder_id=u1")
	assert.Contains(t, string(data), "holder_id=u2")

	assert.Error(t, c.handle([]byte("not json")))
}
