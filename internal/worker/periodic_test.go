package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodicRunsUntilCancelled(t *testing.T) {
	log, _ := test.NewNullLogger()
	var runs atomic.Int32
	w := NewPeriodic("count", 5*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestPeriodicRunsFirstPassImmediately(t *testing.T) {
	log, _ := test.NewNullLogger()
	ran := make(chan struct{}, 1)
	w := NewPeriodic("sweep", time.Hour, func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("first pass waited for the interval")
	}
}

func TestPeriodicLogsFailures(t *testing.T) {
	log, hook := test.NewNullLogger()
	w := NewPeriodic("fail", time.Hour, func(context.Context) error {
		return errors.New("db down")
	}, log)

	w.runOnce(context.Background())
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "fail", entry.Data["worker"])
}
