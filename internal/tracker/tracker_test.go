package tracker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"pacecal/internal/core"
)

type fakeRepo struct {
	mu           sync.Mutex
	settings     core.Settings
	ledger       map[string][]core.Entry
	savedLedger  map[string][]core.Entry
	saveSettings error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{settings: core.DefaultSettings(), ledger: map[string][]core.Entry{}}
}

func (f *fakeRepo) LoadSettings(ctx context.Context) core.Settings { return f.settings }

func (f *fakeRepo) SaveSettings(ctx context.Context, s core.Settings) error {
	if f.saveSettings != nil {
		return f.saveSettings
	}
	f.settings = s
	return nil
}

func (f *fakeRepo) LoadLedger(ctx context.Context) map[string][]core.Entry { return f.ledger }

func (f *fakeRepo) SaveLedger(ctx context.Context, days map[string][]core.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedLedger = days
	return nil
}

func day(s string) time.Time {
	d, err := core.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAddUpdateDeleteEntry(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	tr := New(ctx, repo, nil)
	d := day("2024-03-04")

	entry, err := tr.AddEntry(ctx, d, "  Big deal  ", 1500.4)
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if entry.Label != "Big deal" || entry.Amount != 1500 {
		t.Fatalf("entry = %+v", entry)
	}
	if _, err := tr.AddEntry(ctx, d, "Nope", -3); err == nil {
		t.Fatal("negative amount should be rejected")
	}

	if _, err := tr.AddEntry(ctx, d, "", 200); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	got := tr.EntriesFor(d)
	if len(got) != 2 || got[1].Label != core.DefaultLabel {
		t.Fatalf("entries = %+v", got)
	}

	if _, err := tr.UpdateEntry(ctx, d, 1, "Renamed", 250); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if got := tr.EntriesFor(d); got[1].Label != "Renamed" || got[1].Amount != 250 {
		t.Fatalf("entries after update = %+v", got)
	}
	if _, err := tr.UpdateEntry(ctx, d, 5, "x", 1); !errors.Is(err, ErrNoSuchEntry) {
		t.Fatalf("out-of-range update err = %v", err)
	}

	if err := tr.DeleteEntry(ctx, d, 0); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if err := tr.DeleteEntry(ctx, d, 0); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if got := tr.EntriesFor(d); len(got) != 0 {
		t.Fatalf("entries after deletes = %+v", got)
	}
	if _, ok := tr.Store().Snapshot()[core.FormatDay(d)]; ok {
		t.Fatal("empty day key should be removed")
	}
	if err := tr.DeleteEntry(ctx, d, 0); !errors.Is(err, ErrNoSuchEntry) {
		t.Fatalf("delete on empty day err = %v", err)
	}
}

func TestConcurrentAddEntriesAllLand(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	tr := New(ctx, repo, nil)
	d := day("2024-03-04")

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := tr.AddEntry(ctx, d, "Sale", 1); err != nil {
					t.Errorf("AddEntry: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := len(tr.EntriesFor(d)); got != workers*perWorker {
		t.Fatalf("stored %d entries after %d concurrent adds", got, workers*perWorker)
	}
	if tr.Store().TotalFor(d) != workers*perWorker {
		t.Fatalf("total = %d, want %d", tr.Store().TotalFor(d), workers*perWorker)
	}
}

func TestSettingsRoundTripAndPersistFailure(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	tr := New(ctx, repo, nil)

	s := tr.Settings()
	s.GoalName = "Q1 push"
	s.GoalAmount = 90000
	stored := tr.UpdateSettings(ctx, s)
	if stored.GoalName != "Q1 push" {
		t.Fatalf("stored = %+v", stored)
	}
	if repo.settings.GoalAmount != 90000 {
		t.Fatal("settings should persist through the repository")
	}

	// A failing save keeps the in-memory settings authoritative.
	repo.saveSettings = errors.New("disk gone")
	s.GoalAmount = 123
	tr.UpdateSettings(ctx, s)
	if tr.Settings().GoalAmount != 123 {
		t.Fatal("in-memory settings should win on persist failure")
	}
}

func TestReportDerivedFromOwnedState(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.settings.GoalStart = "2024-01-01"
	repo.settings.GoalEnd = "2024-01-05"
	repo.settings.GoalAmount = 1000
	repo.ledger = map[string][]core.Entry{
		"2024-01-01": {{Label: "Sale", Amount: 200}},
	}
	tr := New(ctx, repo, nil)

	rep := tr.Report(day("2024-01-02"), 2024, 1)
	if rep.Progress != 200 {
		t.Fatalf("progress = %v", rep.Progress)
	}
	if rep.RemainingGoal != 800 {
		t.Fatalf("remainingGoal = %v", rep.RemainingGoal)
	}

	sched := tr.Schedule()
	if len(sched) != 5 {
		t.Fatalf("schedule days = %d", len(sched))
	}
	if sched["2024-01-01"] != 200 {
		t.Fatalf("day-1 pace = %v", sched["2024-01-01"])
	}
}

func TestSyncFromSheetReplacesLedger(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Date,Label,Amount\n2024-01-10,Imported,400\n"))
	}))
	defer srv.Close()

	repo := newFakeRepo()
	repo.settings.SheetURL = srv.URL
	repo.ledger = map[string][]core.Entry{
		"2024-01-01": {{Label: "Manual", Amount: 99}},
	}
	tr := New(ctx, repo, srv.Client())

	res, err := tr.SyncFromSheet(ctx)
	if err != nil {
		t.Fatalf("SyncFromSheet: %v", err)
	}
	if res.Entries != 1 || res.Days != 1 {
		t.Fatalf("result = %+v", res)
	}
	snap := tr.Store().Snapshot()
	if _, ok := snap["2024-01-01"]; ok {
		t.Fatal("import replaces the ledger, it does not merge")
	}
	if snap["2024-01-10"][0].Amount != 400 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if repo.savedLedger == nil {
		t.Fatal("replacement should persist")
	}
}

func TestSyncFromSheetFailureLeavesLedger(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	repo := newFakeRepo()
	repo.settings.SheetURL = srv.URL
	repo.ledger = map[string][]core.Entry{
		"2024-01-01": {{Label: "Manual", Amount: 99}},
	}
	tr := New(ctx, repo, srv.Client())

	if _, err := tr.SyncFromSheet(ctx); err == nil {
		t.Fatal("expected fetch failure")
	}
	if tr.Store().TotalFor(day("2024-01-01")) != 99 {
		t.Fatal("failed sync must not touch the ledger")
	}
}

type stubSource struct {
	rows [][]string
}

func (s stubSource) Rows(ctx context.Context) ([][]string, error) { return s.rows, nil }

func TestSyncFromSheetPrefersInstalledSource(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	tr := New(ctx, repo, nil) // no sheet URL configured

	tr.UseSource(stubSource{rows: [][]string{
		{"Date", "Label", "Amount"},
		{"2024-01-10", "API row", "400"},
	}})

	res, err := tr.SyncFromSheet(ctx)
	if err != nil {
		t.Fatalf("SyncFromSheet: %v", err)
	}
	if res.Entries != 1 || res.Days != 1 {
		t.Fatalf("result = %+v", res)
	}
	if tr.Store().TotalFor(day("2024-01-10")) != 400 {
		t.Fatalf("snapshot = %+v", tr.Store().Snapshot())
	}
}

func TestSyncFromSheetWithoutURL(t *testing.T) {
	ctx := context.Background()
	tr := New(ctx, newFakeRepo(), nil)
	if _, err := tr.SyncFromSheet(ctx); !errors.Is(err, ErrNoSheetURL) {
		t.Fatalf("err = %v, want ErrNoSheetURL", err)
	}
}
