// Package worker runs background maintenance jobs on a fixed interval.
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one pass of a periodic task.
type Job func(ctx context.Context) error

// Periodic runs a Job every interval until its context is cancelled.
type Periodic struct {
	name     string
	interval time.Duration
	job      Job
	log      logrus.FieldLogger
}

// NewPeriodic returns a Periodic worker named name.
func NewPeriodic(name string, interval time.Duration, job Job, log logrus.FieldLogger) *Periodic {
	return &Periodic{
		name:     name,
		interval: interval,
		job:      job,
		log:      log.WithField("worker", name),
	}
}

// Start blocks, running the job once right away and then on every tick.
// A failing pass is logged and the next tick tries again.
func (w *Periodic) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithField("interval", w.interval.String()).Info("worker started")
	w.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Periodic) runOnce(ctx context.Context) {
	started := time.Now()
	if err := w.job(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.WithError(err).Error("worker pass failed")
		return
	}
	w.log.WithField("took", time.Since(started).String()).Debug("worker pass done")
}
