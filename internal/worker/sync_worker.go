// Package worker runs the background feed sync: a quiet periodic refresh
// of the ledger from the configured sheet. Failures are logged, never
// surfaced to the UI; the next tick simply tries again.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pacecal/internal/importer"
	"pacecal/internal/tracker"
)

// SyncWorkerConfig holds configuration for the background sync worker.
type SyncWorkerConfig struct {
	// Interval is how often to refresh from the sheet (default: 15m).
	Interval time.Duration

	// SyncOnStart triggers a refresh immediately when the loop starts.
	SyncOnStart bool
}

// DefaultSyncWorkerConfig returns sensible defaults.
func DefaultSyncWorkerConfig() SyncWorkerConfig {
	return SyncWorkerConfig{
		Interval:    15 * time.Minute,
		SyncOnStart: true,
	}
}

// Syncer is what the worker drives; *tracker.Tracker satisfies it.
type Syncer interface {
	SyncFromSheet(ctx context.Context) (importer.Result, error)
}

// SyncWorker periodically re-imports the sheet feed into the ledger.
type SyncWorker struct {
	tracker Syncer
	config  SyncWorkerConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncWorker creates a new background sync worker.
func NewSyncWorker(tr Syncer, config SyncWorkerConfig) *SyncWorker {
	if config.Interval <= 0 {
		config.Interval = DefaultSyncWorkerConfig().Interval
	}
	return &SyncWorker{
		tracker: tr,
		config:  config,
	}
}

// Start begins the refresh loop. Returns an error if already running.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sync worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Sync worker started",
		"interval", w.config.Interval,
		"sync_on_start", w.config.SyncOnStart)

	return nil
}

// Stop gracefully stops the worker and waits for completion.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	return nil
}

// Restart stops and restarts the loop. Used when the sheet URL changes so
// the next refresh uses the new feed without waiting out the old ticker.
func (w *SyncWorker) Restart(ctx context.Context) error {
	if err := w.Stop(ctx); err != nil {
		return err
	}
	return w.Start(ctx)
}

// IsRunning returns whether the worker loop is currently active.
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *SyncWorker) runLoop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	if w.config.SyncOnStart {
		w.refresh(ctx)
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

// refresh runs one quiet sync pass. No sheet URL configured and an import
// already in flight are both normal, not errors.
func (w *SyncWorker) refresh(ctx context.Context) {
	res, err := w.tracker.SyncFromSheet(ctx)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "Background sheet sync completed",
			"entries", res.Entries,
			"days", res.Days)
	case errors.Is(err, tracker.ErrNoSheetURL):
		slog.DebugContext(ctx, "No sheet URL configured, skipping background sync")
	case errors.Is(err, importer.ErrSyncInProgress):
		slog.DebugContext(ctx, "Sync already in flight, skipping background sync")
	default:
		slog.WarnContext(ctx, "Background sheet sync failed", "error", err)
	}
}
