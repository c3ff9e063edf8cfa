package storage

import (
	"context"
	"path/filepath"
	"testing"

	"pacecal/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "pacecal.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSettingsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	in := core.Settings{
		GoalName:   "Q1",
		GoalAmount: 1000,
		GoalStart:  "2024-01-01",
		GoalEnd:    "2024-01-05",
		Theme:      "light",
		Weekdays:   core.DefaultWeekdayMask(),
		SheetURL:   "https://example.com/feed.csv",
	}
	if err := repo.SaveSettings(ctx, in); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	out := repo.LoadSettings(ctx)
	if out != in {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestLoadSettingsMissingFallsBackToDefaults(t *testing.T) {
	repo := newTestRepo(t)
	got := repo.LoadSettings(context.Background())
	if got != core.DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestLoadCorruptValueFallsBackToDefaults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if _, err := repo.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)`, KeySettings, `{not json`); err != nil {
		t.Fatalf("seed corrupt row: %v", err)
	}
	got := repo.LoadSettings(ctx)
	if got != core.DefaultSettings() {
		t.Fatalf("corrupt value should fall back to defaults, got %+v", got)
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	in := map[string][]core.Entry{
		"2024-01-01": {{Label: "Sale", Amount: 150}, {Label: "Upsell", Amount: 50}},
		"2024-01-03": {{Label: "Sale", Amount: 25}},
	}
	if err := repo.SaveLedger(ctx, in); err != nil {
		t.Fatalf("SaveLedger: %v", err)
	}
	out := repo.LoadLedger(ctx)
	if len(out) != 2 {
		t.Fatalf("loaded %d days, want 2", len(out))
	}
	if out["2024-01-01"][1] != (core.Entry{Label: "Upsell", Amount: 50}) {
		t.Fatalf("entry mismatch: %+v", out["2024-01-01"])
	}
}

func TestSaveOverwrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if err := repo.Save(ctx, "k", map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, "k", map[string]int{"b": 2}); err != nil {
		t.Fatal(err)
	}
	var got map[string]int
	ok, err := repo.Load(ctx, "k", &got)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got["b"] != 2 || len(got) != 1 {
		t.Fatalf("got %v, want only b=2", got)
	}
}
