package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"pacecal/internal/importer"
	"pacecal/internal/tracker"
)

type countingSyncer struct {
	calls atomic.Int64
	err   error
}

func (c *countingSyncer) SyncFromSheet(ctx context.Context) (importer.Result, error) {
	c.calls.Add(1)
	if c.err != nil {
		return importer.Result{}, c.err
	}
	return importer.Result{Entries: 1, Days: 1}, nil
}

func TestStartStopLifecycle(t *testing.T) {
	ctx := context.Background()
	syncer := &countingSyncer{}
	w := NewSyncWorker(syncer, SyncWorkerConfig{Interval: time.Hour, SyncOnStart: true})

	if w.IsRunning() {
		t.Fatal("should not be running before Start")
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Start(ctx); err == nil {
		t.Fatal("second Start should fail while running")
	}

	waitFor(t, func() bool { return syncer.calls.Load() == 1 })

	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if w.IsRunning() {
		t.Fatal("should not be running after Stop")
	}
	// Stop on a stopped worker is a no-op.
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestPeriodicRefresh(t *testing.T) {
	ctx := context.Background()
	syncer := &countingSyncer{}
	w := NewSyncWorker(syncer, SyncWorkerConfig{Interval: 10 * time.Millisecond})

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = w.Stop(ctx) }()

	waitFor(t, func() bool { return syncer.calls.Load() >= 2 })
}

func TestFailuresDoNotStopTheLoop(t *testing.T) {
	ctx := context.Background()
	syncer := &countingSyncer{err: errors.New("feed unreachable")}
	w := NewSyncWorker(syncer, SyncWorkerConfig{Interval: 10 * time.Millisecond, SyncOnStart: true})

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = w.Stop(ctx) }()

	waitFor(t, func() bool { return syncer.calls.Load() >= 3 })
}

func TestMissingURLIsQuiet(t *testing.T) {
	ctx := context.Background()
	syncer := &countingSyncer{err: tracker.ErrNoSheetURL}
	w := NewSyncWorker(syncer, SyncWorkerConfig{Interval: time.Hour, SyncOnStart: true})

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return syncer.calls.Load() == 1 })
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestRestart(t *testing.T) {
	ctx := context.Background()
	syncer := &countingSyncer{}
	w := NewSyncWorker(syncer, SyncWorkerConfig{Interval: time.Hour, SyncOnStart: true})

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return syncer.calls.Load() == 1 })

	if err := w.Restart(ctx); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	defer func() { _ = w.Stop(ctx) }()

	// Restart runs the on-start refresh again.
	waitFor(t, func() bool { return syncer.calls.Load() == 2 })
	if !w.IsRunning() {
		t.Fatal("should be running after Restart")
	}
}

func TestContextCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	syncer := &countingSyncer{}
	w := NewSyncWorker(syncer, SyncWorkerConfig{Interval: time.Hour, SyncOnStart: true})

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return syncer.calls.Load() == 1 })

	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop after cancel: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
