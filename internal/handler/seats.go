package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-reservation-engine/internal/logging"
	"github.com/iliyamo/seat-reservation-engine/internal/middleware"
	"github.com/iliyamo/seat-reservation-engine/internal/service"
)

// HoldManager is the part of service.HoldService used over HTTP.
type HoldManager interface {
	AcquireHold(ctx context.Context, seatIDs []uint64, holderID string) (*service.Hold, error)
	HoldRemaining(ctx context.Context, seatID uint64) (time.Duration, bool, error)
}

// Committer books held seats.  Implemented by service.CommitService.
type Committer interface {
	Commit(ctx context.Context, seatIDs []uint64, holderID, source string) (*service.CommitResult, error)
}

// SeatHandler serves the hold and booking endpoints.  All routes run
// behind JWTAuth; the holder is always the token subject.
type SeatHandler struct {
	holds  HoldManager
	commit Committer
	log    logrus.FieldLogger
}

// NewSeatHandler constructs a SeatHandler.
func NewSeatHandler(holds HoldManager, commit Committer, log logrus.FieldLogger) *SeatHandler {
	return &SeatHandler{holds: holds, commit: commit, log: logging.Component(log, "seats")}
}

type seatIDsRequest struct {
	SeatIDs []uint64 `json:"seat_ids"`
}

// Lock handles POST /v1/seats/lock.  Either every requested seat is held
// for the caller or none is.
func (h *SeatHandler) Lock(c echo.Context) error {
	holder := middleware.HolderID(c)
	if holder == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body seatIDsRequest
	if err := c.Bind(&body); err != nil || len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}

	hold, err := h.holds.AcquireHold(c.Request().Context(), body.SeatIDs, holder)
	if err != nil {
		return writeEngineError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"seat_ids":    hold.SeatIDs,
		"event_id":    hold.EventID,
		"expires_at":  hold.ExpiresAt,
		"ttl_seconds": int(time.Until(hold.ExpiresAt).Round(time.Second).Seconds()),
	})
}

// Book handles POST /v1/seats/book, the client side confirmation after a
// successful checkout.  It shares Commit with the payment webhook.
func (h *SeatHandler) Book(c echo.Context) error {
	holder := middleware.HolderID(c)
	if holder == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body seatIDsRequest
	if err := c.Bind(&body); err != nil || len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}

	res, err := h.commit.Commit(c.Request().Context(), body.SeatIDs, holder, service.SourceClient)
	if err != nil {
		return writeEngineError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":            "BOOKED",
		"seat_ids":          res.SeatIDs,
		"already_committed": res.AlreadyCommitted,
	})
}

// HoldTTL handles GET /v1/seats/lock/:seatId/ttl.
func (h *SeatHandler) HoldTTL(c echo.Context) error {
	seatID, ok := idParam(c, "seatId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	left, ok, err := h.holds.HoldRemaining(c.Request().Context(), seatID)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "hold cache unavailable"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no active hold"})
	}
	return c.JSON(http.StatusOK, echo.Map{"seat_id": seatID, "ttl_seconds": int(left.Seconds())})
}
