// Package service implements the reservation engine: seat holds, their
// reconciliation and the commit that turns a hold into a booking.
package service

import "errors"

// Business errors returned by the engine.  Handlers map them to HTTP
// statuses with errors.Is.
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrSeatsNotFound    = errors.New("seats not found")
	ErrSeatNotAvailable = errors.New("seat not available")
	ErrNotLocked        = errors.New("seat not locked")
	ErrNotOwner         = errors.New("seat locked by another holder")
)
