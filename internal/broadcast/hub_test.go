package broadcast

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/iliyamo/seat-reservation-engine/internal/model"
)

func TestHubDeliversToRoomMembersOnly(t *testing.T) {
	log, _ := test.NewNullLogger()
	hub := NewHub(log)
	room := EventRoom(7)

	srv := httptest.NewServer(hub.Handler(room))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return hub.Subscribers(room) == 1 }, time.Second, 10*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, SeatMessage(SeatHeld, 8, model.SeatHeld, []uint64{1})))
	require.NoError(t, hub.Publish(ctx, SeatMessage(SeatHeld, 7, model.SeatHeld, []uint64{3, 4})))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got struct {
		Event string     `json:"event"`
		Room  string     `json:"room"`
		Data  SeatChange `json:"data"`
	}
	require.NoError(t, websocket.JSON.Receive(ws, &got))
	assert.Equal(t, SeatHeld, got.Event)
	assert.Equal(t, "event:7", got.Room)
	assert.Equal(t, []uint64{3, 4}, got.Data.SeatIDs)
	assert.Equal(t, model.SeatHeld, got.Data.Status)
	assert.Equal(t, uint64(7), got.Data.EventID)
}

func TestHubForgetsClosedConnections(t *testing.T) {
	log, _ := test.NewNullLogger()
	hub := NewHub(log)

	srv := httptest.NewServer(hub.Handler(RunRoom("r1")))
	defer srv.Close()

	ws, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), "", srv.URL)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Subscribers("run:r1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return hub.Subscribers("run:r1") == 0 }, time.Second, 10*time.Millisecond)
}

type failing struct{ err error }

func (f failing) Publish(context.Context, Message) error { return f.err }

type counting struct{ n int }

func (c *counting) Publish(context.Context, Message) error { c.n++; return nil }

func TestMultiPublishesToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("broker down")
	c := &counting{}
	m := Multi{failing{boom}, nil, c, Nop{}}

	err := m.Publish(context.Background(), Message{Event: TestCompleted, Room: RunRoom("x")})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, c.n)
}
