package model

import "time"

// Event is owned by the catalog; the engine only reads it.
type Event struct {
	ID       uint64    `json:"id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"date"`
}
