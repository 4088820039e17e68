package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-reservation-engine/internal/middleware"
	"github.com/iliyamo/seat-reservation-engine/internal/repository"
)

// CatalogHandler serves the read side: events, seat snapshots and the
// caller's bookings.
type CatalogHandler struct {
	events   *repository.EventRepo
	seats    *repository.SeatRepo
	bookings *repository.BookingRepo
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(events *repository.EventRepo, seats *repository.SeatRepo, bookings *repository.BookingRepo) *CatalogHandler {
	return &CatalogHandler{events: events, seats: seats, bookings: bookings}
}

// ListEvents handles GET /v1/events.
func (h *CatalogHandler) ListEvents(c echo.Context) error {
	events, err := h.events.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// EventSeats handles GET /v1/events/:id/seats.  The snapshot is read
// straight from MySQL; clients reconcile their view with it after
// reconnecting to the event socket.
func (h *CatalogHandler) EventSeats(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()
	ev, err := h.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	seats, err := h.seats.ListByEvent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"event": ev, "seats": seats})
}

// MyBookings handles GET /v1/bookings/me.
func (h *CatalogHandler) MyBookings(c echo.Context) error {
	holder := middleware.HolderID(c)
	if holder == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.bookings.ListByHolder(c.Request().Context(), holder)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}
