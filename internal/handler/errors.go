package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-reservation-engine/internal/service"
)

// engineError maps engine errors to a status and a stable error code.
func engineError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, service.ErrSeatsNotFound):
		return http.StatusNotFound, "SEATS_NOT_FOUND"
	case errors.Is(err, service.ErrSeatNotAvailable):
		return http.StatusConflict, "SEAT_NOT_AVAILABLE"
	case errors.Is(err, service.ErrNotLocked):
		return http.StatusConflict, "NOT_LOCKED"
	case errors.Is(err, service.ErrNotOwner):
		return http.StatusConflict, "NOT_OWNER"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func writeEngineError(c echo.Context, log logrus.FieldLogger, err error) error {
	status, code := engineError(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Path()).Error("request failed")
	}
	return c.JSON(status, echo.Map{"error": code})
}

// idParam parses a positive uint64 path parameter.
func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
