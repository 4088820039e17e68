package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-reservation-engine/internal/broadcast"
)

// EventStream handles GET /v1/events/:id/ws.  The socket receives
// seat:held, seat:released and seat:booked for the event; the messages are
// hints and the seat snapshot stays authoritative.
func EventStream(hub *broadcast.Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := idParam(c, "id")
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
		}
		hub.Handler(broadcast.EventRoom(id)).ServeHTTP(c.Response(), c.Request())
		return nil
	}
}
