// Package tracker is the session controller: it owns the goal settings and
// the ledger store, with persistence injected rather than reached through
// globals. All KPI output is derived on demand from the two pieces of
// owned state; nothing derived is cached.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pacecal/internal/core"
	"pacecal/internal/importer"
	"pacecal/internal/ledger"
	"pacecal/internal/pacing"
)

var (
	ErrNoSheetURL  = errors.New("no sheet URL configured")
	ErrNoSuchEntry = errors.New("no entry at that position")
)

// Repository is the persistence port the tracker depends on. Loads fall
// back to defaults internally; saves may fail and the tracker treats its
// in-memory state as authoritative regardless.
type Repository interface {
	LoadSettings(ctx context.Context) core.Settings
	SaveSettings(ctx context.Context, s core.Settings) error
	LoadLedger(ctx context.Context) map[string][]core.Entry
	SaveLedger(ctx context.Context, days map[string][]core.Entry) error
}

type Tracker struct {
	repo  Repository
	store *ledger.Store
	imp   *importer.Importer

	mu       sync.RWMutex
	settings core.Settings
	source   importer.RowSource
}

// New loads persisted state and returns a ready controller. client backs
// the sheet importer's HTTP fetches.
func New(ctx context.Context, repo Repository, client *http.Client) *Tracker {
	t := &Tracker{
		repo:     repo,
		store:    ledger.New(repo),
		imp:      importer.New(client),
		settings: repo.LoadSettings(ctx),
	}
	t.store.Seed(repo.LoadLedger(ctx))
	return t
}

// Settings returns the current settings snapshot.
func (t *Tracker) Settings() core.Settings {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.settings
}

// UpdateSettings replaces the settings and persists them. Persistence
// failures are logged and swallowed; the in-memory settings win for the
// session. Returns the stored snapshot.
func (t *Tracker) UpdateSettings(ctx context.Context, s core.Settings) core.Settings {
	t.mu.Lock()
	t.settings = s
	t.mu.Unlock()
	if err := t.repo.SaveSettings(ctx, s); err != nil {
		slog.WarnContext(ctx, "Settings persist failed", "error", err)
	}
	return s
}

// Goal materializes the current goal definition.
func (t *Tracker) Goal() core.Goal {
	return t.Settings().Goal()
}

// SheetURL returns the configured feed URL, empty when none.
func (t *Tracker) SheetURL() string {
	return t.Settings().SheetURL
}

// Store exposes the ledger for read-side derivation.
func (t *Tracker) Store() *ledger.Store {
	return t.store
}

// EntriesFor lists a day's entries in display order.
func (t *Tracker) EntriesFor(day time.Time) []core.Entry {
	return t.store.EntriesFor(day)
}

// AddEntry validates one interactive entry and appends it to the day. The
// append happens inside the store's atomic update, so concurrent adds on
// the same day all land.
func (t *Tracker) AddEntry(ctx context.Context, day time.Time, label string, amount float64) (core.Entry, error) {
	entry, err := core.ValidateEntry(label, amount)
	if err != nil {
		return core.Entry{}, err
	}
	err = t.store.Update(ctx, day, func(list []core.Entry) ([]core.Entry, error) {
		return append(list, entry), nil
	})
	if err != nil {
		return core.Entry{}, err
	}
	return entry, nil
}

// UpdateEntry replaces the entry at index for the day. The index is checked
// against the list as it stands inside the atomic update, not a stale read.
func (t *Tracker) UpdateEntry(ctx context.Context, day time.Time, index int, label string, amount float64) (core.Entry, error) {
	entry, err := core.ValidateEntry(label, amount)
	if err != nil {
		return core.Entry{}, err
	}
	err = t.store.Update(ctx, day, func(list []core.Entry) ([]core.Entry, error) {
		if index < 0 || index >= len(list) {
			return nil, ErrNoSuchEntry
		}
		list[index] = entry
		return list, nil
	})
	if err != nil {
		return core.Entry{}, err
	}
	return entry, nil
}

// DeleteEntry removes the entry at index for the day. Deleting the last
// entry removes the day key entirely.
func (t *Tracker) DeleteEntry(ctx context.Context, day time.Time, index int) error {
	return t.store.Update(ctx, day, func(list []core.Entry) ([]core.Entry, error) {
		if index < 0 || index >= len(list) {
			return nil, ErrNoSuchEntry
		}
		return append(list[:index], list[index+1:]...), nil
	})
}

// Report derives the KPI report for a view month. Stateless: recomputed
// from settings and ledger on every call.
func (t *Tracker) Report(today time.Time, viewYear, viewMonth int) pacing.Report {
	return pacing.Compute(t.Goal(), t.store, today, viewYear, viewMonth)
}

// Schedule derives the day-by-day remaining-pace schedule.
func (t *Tracker) Schedule() map[string]float64 {
	return pacing.Schedule(t.Goal(), t.store)
}

// Syncing reports whether a sheet import is in flight.
func (t *Tracker) Syncing() bool {
	return t.imp.Syncing()
}

// UseSource installs a default row source (e.g. the authenticated Sheets
// API source) that SyncFromSheet prefers over the CSV feed URL.
func (t *Tracker) UseSource(src importer.RowSource) {
	t.mu.Lock()
	t.source = src
	t.mu.Unlock()
}

// SyncFromSheet imports the configured source — the installed row source
// when one is set, the CSV feed URL otherwise — and, on success, replaces
// the entire ledger with the imported data and persists it. On any failure
// the previous ledger is left untouched.
func (t *Tracker) SyncFromSheet(ctx context.Context) (importer.Result, error) {
	t.mu.RLock()
	src := t.source
	t.mu.RUnlock()
	if src != nil {
		return t.SyncFromSource(ctx, src)
	}

	url := t.SheetURL()
	if url == "" {
		return importer.Result{}, ErrNoSheetURL
	}
	days, res, err := t.imp.ImportURL(ctx, url)
	if err != nil {
		return importer.Result{}, err
	}
	t.store.ReplaceAll(ctx, days)
	return res, nil
}

// SyncFromSource imports from an explicit row source (e.g. the Sheets API
// source) with the same replace semantics.
func (t *Tracker) SyncFromSource(ctx context.Context, src importer.RowSource) (importer.Result, error) {
	days, res, err := t.imp.Import(ctx, src)
	if err != nil {
		return importer.Result{}, err
	}
	t.store.ReplaceAll(ctx, days)
	return res, nil
}
