package importer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestFeedSourceFetchesCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("Date,Label,Amount\n2024-01-01,Sale,150\n"))
	}))
	defer srv.Close()

	src := &FeedSource{Client: srv.Client(), URL: srv.URL}
	rows, err := src.Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 || rows[1][2] != "150" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestFeedSourceRejectsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<!DOCTYPE html><html><body>Sign in</body></html>"))
	}))
	defer srv.Close()

	_, err := (&FeedSource{Client: srv.Client(), URL: srv.URL}).Rows(context.Background())
	if err == nil || !strings.Contains(err.Error(), "CSV") {
		t.Fatalf("expected CSV publishing error, got %v", err)
	}
}

func TestFeedSourceRejectsEmptyAndErrorBodies(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantSub string
	}{
		{"empty body", http.StatusOK, "   \n ", "empty"},
		{"not found", http.StatusNotFound, "nope", "status 404"},
		{"server error", http.StatusInternalServerError, "", "status 500"},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		_, err := (&FeedSource{Client: srv.Client(), URL: srv.URL}).Rows(context.Background())
		srv.Close()
		if err == nil || !strings.Contains(err.Error(), tc.wantSub) {
			t.Errorf("%s: err = %v, want substring %q", tc.name, err, tc.wantSub)
		}
	}
}

// blockingSource lets a test hold an import in flight.
type blockingSource struct {
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (b *blockingSource) Rows(ctx context.Context) ([][]string, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return [][]string{{"2024-01-01", "Sale", "100"}}, nil
}

func TestImportSingleFlight(t *testing.T) {
	imp := New(nil)
	src := &blockingSource{release: make(chan struct{}), started: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, _, err := imp.Import(context.Background(), src)
		done <- err
	}()
	<-src.started

	if !imp.Syncing() {
		t.Fatal("Syncing() should report true while in flight")
	}
	_, _, err := imp.ImportURL(context.Background(), "http://unused.invalid")
	if !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("second import err = %v, want ErrSyncInProgress", err)
	}

	close(src.release)
	if err := <-done; err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	if imp.Syncing() {
		t.Fatal("Syncing() should clear after completion")
	}

	// The flag resets even after failures, so a later import can proceed.
	if _, _, err := imp.Import(context.Background(), failingSource{}); err == nil {
		t.Fatal("expected failure from failing source")
	}
	if imp.Syncing() {
		t.Fatal("flag should clear after a failed import")
	}
}

type failingSource struct{}

func (failingSource) Rows(ctx context.Context) ([][]string, error) {
	return nil, errors.New("boom")
}

func TestImportURLEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Date,Label,Amount\n2024-01-01,Sale,150\n2024-01-02,,-5\n"))
	}))
	defer srv.Close()

	imp := New(srv.Client())
	days, res, err := imp.ImportURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ImportURL: %v", err)
	}
	if res.Entries != 1 || res.Days != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(days) != 1 {
		t.Fatalf("days = %+v", days)
	}
}
