package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"
)

// sendBuffer is the per-connection backlog before the client is dropped.
const sendBuffer = 32

type client struct {
	send chan []byte
	once sync.Once
}

func (c *client) close() { c.once.Do(func() { close(c.send) }) }

// Hub is the in-process WebSocket publisher.  Each connection joins one
// room; Publish marshals once and hands the frame to every member.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
	log   logrus.FieldLogger
}

// NewHub returns an empty hub.
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{rooms: make(map[string]map[*client]struct{}), log: log}
}

// Publish implements Publisher.  A member whose buffer is full is
// disconnected instead of stalling the publisher.
func (h *Hub) Publish(_ context.Context, msg Message) error {
	frame, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.mu.RLock()
	var slow []*client
	for c := range h.rooms[msg.Room] {
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.WithField("room", msg.Room).Warn("dropping slow websocket client")
		h.leave(msg.Room, c)
	}
	return nil
}

// Subscribers returns the number of connections in room.
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) join(room string) *client {
	c := &client{send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) leave(room string, c *client) {
	h.mu.Lock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()
	c.close()
}

// Handler returns a websocket handler that subscribes the connection to
// room until either side closes it.  Inbound frames are ignored.
func (h *Hub) Handler(room string) websocket.Handler {
	return func(ws *websocket.Conn) {
		c := h.join(room)
		defer h.leave(room, c)

		done := make(chan struct{})
		go func() {
			defer close(done)
			var discard []byte
			for {
				if err := websocket.Message.Receive(ws, &discard); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case frame, ok := <-c.send:
				if !ok {
					_ = ws.Close()
					return
				}
				if err := websocket.Message.Send(ws, string(frame)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}
}
