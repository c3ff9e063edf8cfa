package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"pacecal/internal/core"
)

// ErrSyncInProgress rejects a second import while one is in flight. The
// caller is expected to surface an "already syncing" status, not queue.
var ErrSyncInProgress = errors.New("already syncing")

// RowSource yields the raw row matrix of a spreadsheet feed. The default
// source fetches the published CSV export; an authenticated source can read
// the same rows through the Sheets API.
type RowSource interface {
	Rows(ctx context.Context) ([][]string, error)
}

// Importer parses a feed and hands the normalized mapping to its sink.
// Only one import runs at a time.
type Importer struct {
	client *http.Client

	mu      sync.Mutex
	syncing bool
}

func New(client *http.Client) *Importer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Importer{client: client}
}

// Syncing reports whether an import is currently in flight.
func (i *Importer) Syncing() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.syncing
}

// Import reads rows from src and normalizes them into the ledger shape.
// A second call while one is in flight fails fast with ErrSyncInProgress.
func (i *Importer) Import(ctx context.Context, src RowSource) (map[string][]core.Entry, Result, error) {
	i.mu.Lock()
	if i.syncing {
		i.mu.Unlock()
		return nil, Result{}, ErrSyncInProgress
	}
	i.syncing = true
	i.mu.Unlock()
	defer func() {
		i.mu.Lock()
		i.syncing = false
		i.mu.Unlock()
	}()

	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, Result{}, err
	}
	return ParseRows(rows)
}

// ImportURL imports from a share or CSV URL over HTTP.
func (i *Importer) ImportURL(ctx context.Context, rawURL string) (map[string][]core.Entry, Result, error) {
	return i.Import(ctx, &FeedSource{Client: i.client, URL: rawURL})
}

// FeedSource fetches a published CSV feed over HTTP.
type FeedSource struct {
	Client *http.Client
	URL    string
}

// Rows fetches and decodes the feed, with descriptive failures for the
// usual misconfigurations: a non-OK response, an empty body, or an HTML
// page where CSV was expected (sheet not published as CSV).
func (f *FeedSource) Rows(ctx context.Context) ([][]string, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, NormalizeShareURL(f.URL), nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d; check that the sheet is shared publicly", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, errors.New("feed body is empty; is the sheet published?")
	}
	if looksLikeHTML(trimmed) {
		return nil, errors.New("feed returned an HTML page, not CSV; publish or export the sheet as CSV")
	}

	r := newCSVReader(trimmed)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse feed CSV: %w", err)
	}
	return rows, nil
}

func looksLikeHTML(body string) bool {
	lower := strings.ToLower(body)
	return strings.HasPrefix(lower, "<!doctype") ||
		strings.HasPrefix(lower, "<html") ||
		strings.Contains(lower, "<html")
}
