// Package ledger holds the date-keyed collection of monetary entries that
// represents actual progress toward the goal. The in-memory mapping is the
// source of truth for the session; every mutation is written through to the
// injected persister, and write failures are swallowed so a full quota or a
// broken disk never loses the user's current session.
package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pacecal/internal/core"
)

// Persister stores the full ledger snapshot. The whole mapping is written on
// every mutation; the store is bounded by realistic calendar usage so the
// snapshot stays small.
type Persister interface {
	SaveLedger(ctx context.Context, days map[string][]core.Entry) error
}

// Store maps ISO day keys (YYYY-MM-DD) to ordered entry lists. Insertion
// order is display and edit order. A key is never present with an empty
// list; cleaning a day to nothing removes the key instead.
type Store struct {
	mu    sync.RWMutex
	days  map[string][]core.Entry
	saver Persister
}

// New returns an empty store. saver may be nil for derived or test stores.
func New(saver Persister) *Store {
	return &Store{days: make(map[string][]core.Entry), saver: saver}
}

// Seed loads a persisted snapshot, cleaning every entry on the way in so a
// hand-edited or stale snapshot cannot violate store invariants. Seeding
// does not write back.
func (s *Store) Seed(days map[string][]core.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.days = make(map[string][]core.Entry, len(days))
	for key, list := range days {
		if _, err := core.ParseDay(key); err != nil {
			continue
		}
		clean := normalize(list)
		if len(clean) > 0 {
			s.days[key] = clean
		}
	}
}

// EntriesFor returns a copy of the day's entries in insertion order, empty
// when the day has none.
func (s *Store) EntriesFor(day time.Time) []core.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.days[core.FormatDay(day)]
	out := make([]core.Entry, len(list))
	copy(out, list)
	return out
}

// Update is the mutation point for a single day: it hands mutate a copy of
// the day's current list and stores what comes back, all under the store
// lock, so concurrent read-modify-write sequences cannot lose entries. The
// result is normalized entry by entry; the cleaned list is stored when
// non-empty, otherwise the key is deleted. An error from mutate leaves the
// day untouched and is returned as is; otherwise the whole store is
// persisted afterwards.
func (s *Store) Update(ctx context.Context, day time.Time, mutate func([]core.Entry) ([]core.Entry, error)) error {
	key := core.FormatDay(day)
	s.mu.Lock()
	cur := s.days[key]
	cp := make([]core.Entry, len(cur))
	copy(cp, cur)
	next, err := mutate(cp)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	clean := normalize(next)
	if len(clean) > 0 {
		s.days[key] = clean
	} else {
		delete(s.days, key)
	}
	s.mu.Unlock()
	s.persist(ctx)
	return nil
}

// SetEntries replaces a day's list outright, with Update's normalization
// and deletion rules.
func (s *Store) SetEntries(ctx context.Context, day time.Time, list []core.Entry) {
	_ = s.Update(ctx, day, func([]core.Entry) ([]core.Entry, error) {
		return list, nil
	})
}

// ReplaceAll swaps the entire mapping for an imported one, normalizing every
// day, then persists. Used by the sheet importer, which replaces rather than
// merges.
func (s *Store) ReplaceAll(ctx context.Context, days map[string][]core.Entry) {
	s.mu.Lock()
	next := make(map[string][]core.Entry, len(days))
	for key, list := range days {
		if _, err := core.ParseDay(key); err != nil {
			continue
		}
		clean := normalize(list)
		if len(clean) > 0 {
			next[key] = clean
		}
	}
	s.days = next
	s.mu.Unlock()
	s.persist(ctx)
}

// TotalFor sums the day's amounts, 0 when absent.
func (s *Store) TotalFor(day time.Time) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	for _, e := range s.days[core.FormatDay(day)] {
		sum += e.Amount
	}
	return sum
}

// SumRange sums amounts across stored days falling inside
// [StartOfDay(start), EndOfDay(end)]. Absent bounds yield 0.
func (s *Store) SumRange(start, end time.Time) int64 {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	return s.SumOpenRange(start, end)
}

// SumOpenRange behaves like SumRange but treats a zero bound as unbounded
// on that side, summing every stored day beyond it.
func (s *Store) SumOpenRange(start, end time.Time) int64 {
	var lo, hi time.Time
	if !start.IsZero() {
		lo = core.StartOfDay(start)
	}
	if !end.IsZero() {
		hi = core.EndOfDay(end)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	for key, list := range s.days {
		d, err := core.ParseDay(key)
		if err != nil {
			continue
		}
		if !lo.IsZero() && d.Before(lo) {
			continue
		}
		if !hi.IsZero() && d.After(hi) {
			continue
		}
		for _, e := range list {
			sum += e.Amount
		}
	}
	return sum
}

// Snapshot returns a deep copy of the mapping, suitable for persistence or
// derivation without holding the lock.
func (s *Store) Snapshot() map[string][]core.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]core.Entry, len(s.days))
	for key, list := range s.days {
		cp := make([]core.Entry, len(list))
		copy(cp, list)
		out[key] = cp
	}
	return out
}

// DayCount returns the number of days with at least one entry.
func (s *Store) DayCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.days)
}

func (s *Store) persist(ctx context.Context) {
	if s.saver == nil {
		return
	}
	if err := s.saver.SaveLedger(ctx, s.Snapshot()); err != nil {
		// The in-memory store stays authoritative for the session.
		slog.WarnContext(ctx, "Ledger persist failed", "error", err)
	}
}

func normalize(list []core.Entry) []core.Entry {
	clean := make([]core.Entry, 0, len(list))
	for _, e := range list {
		if n, ok := core.NormalizeEntry(e.Label, float64(e.Amount)); ok {
			clean = append(clean, n)
		}
	}
	return clean
}
