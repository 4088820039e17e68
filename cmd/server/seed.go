package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-reservation-engine/internal/repository"
)

var demoRows = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}

// seedDemo creates one event with a 10x10 grid unless events already exist.
func seedDemo(ctx context.Context, events *repository.EventRepo, seats *repository.SeatRepo, log logrus.FieldLogger) error {
	existing, err := events.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.WithField("events", len(existing)).Info("seed skipped; events exist")
		return nil
	}
	id, err := events.Create(ctx, "Demo Night", time.Now().UTC().Add(7*24*time.Hour).Truncate(time.Hour))
	if err != nil {
		return err
	}
	if err := seats.CreateGrid(ctx, id, demoRows, 10); err != nil {
		return err
	}
	log.WithField("event_id", id).Info("seeded demo event")
	return nil
}
