package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-reservation-engine/internal/broadcast"
	"github.com/iliyamo/seat-reservation-engine/internal/harness"
	"github.com/iliyamo/seat-reservation-engine/internal/logging"
)

// TestHandler exposes the concurrency test harness.
type TestHandler struct {
	h   *harness.Harness
	hub *broadcast.Hub
	log logrus.FieldLogger
}

// NewTestHandler constructs a TestHandler.  Progress events are streamed
// through hub.
func NewTestHandler(h *harness.Harness, hub *broadcast.Hub, log logrus.FieldLogger) *TestHandler {
	return &TestHandler{h: h, hub: hub, log: logging.Component(log, "test-api")}
}

// Start handles POST /v1/test/start.  Sizes are clamped, never rejected.
func (t *TestHandler) Start(c echo.Context) error {
	var body struct {
		TotalUsers int `json:"total_users"`
		TotalSeats int `json:"total_seats"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	run, err := t.h.Start(c.Request().Context(), body.TotalUsers, body.TotalSeats)
	if err != nil {
		t.log.WithError(err).Error("start test run failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start test"})
	}
	return c.JSON(http.StatusOK, run)
}

// Status handles GET /v1/test/:id/status.
func (t *TestHandler) Status(c echo.Context) error {
	st, err := t.h.Status(c.Request().Context(), c.Param("id"))
	if err != nil {
		return t.runError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Report handles GET /v1/test/:id/report.
func (t *TestHandler) Report(c echo.Context) error {
	rep, err := t.h.Report(c.Request().Context(), c.Param("id"))
	if err != nil {
		return t.runError(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

// Stream handles GET /v1/test/:id/ws, the run's progress events.
func (t *TestHandler) Stream(c echo.Context) error {
	t.hub.Handler(broadcast.RunRoom(c.Param("id"))).ServeHTTP(c.Response(), c.Request())
	return nil
}

func (t *TestHandler) runError(c echo.Context, err error) error {
	if errors.Is(err, harness.ErrRunNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "test not found"})
	}
	t.log.WithError(err).WithField("run_id", c.Param("id")).Error("load test run failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
