// Package storage persists the two pieces of durable state — the settings
// object and the ledger mapping — as JSON values in a SQLite-backed
// key-value table. Corrupt or missing values fall back to defaults instead
// of failing; the rest of the system treats in-memory state as
// authoritative for the session.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"pacecal/internal/core"

	_ "modernc.org/sqlite"
)

// Persisted keys. These are the only two rows the service writes.
const (
	KeySettings = "settings"
	KeyLedger   = "ledger"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load reads the JSON value stored under key into into. It returns false
// when the key is absent or the stored payload fails to decode; a corrupt
// value is logged and treated as missing so callers fall back to defaults.
func (r *Repository) Load(ctx context.Context, key string, into any) (bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), into); err != nil {
		slog.WarnContext(ctx, "Discarding corrupt persisted value", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

// Save upserts the JSON encoding of v under key.
func (r *Repository) Save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, string(raw))
	if err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

// LoadSettings returns the persisted settings, or the defaults when nothing
// usable is stored.
func (r *Repository) LoadSettings(ctx context.Context) core.Settings {
	s := core.DefaultSettings()
	ok, err := r.Load(ctx, KeySettings, &s)
	if err != nil {
		slog.WarnContext(ctx, "Settings load failed, using defaults", "error", err)
		return core.DefaultSettings()
	}
	if !ok {
		return core.DefaultSettings()
	}
	return s
}

// SaveSettings persists the settings object.
func (r *Repository) SaveSettings(ctx context.Context, s core.Settings) error {
	return r.Save(ctx, KeySettings, s)
}

// LoadLedger returns the persisted ledger mapping, empty when nothing
// usable is stored.
func (r *Repository) LoadLedger(ctx context.Context) map[string][]core.Entry {
	days := make(map[string][]core.Entry)
	ok, err := r.Load(ctx, KeyLedger, &days)
	if err != nil {
		slog.WarnContext(ctx, "Ledger load failed, starting empty", "error", err)
		return map[string][]core.Entry{}
	}
	if !ok {
		return map[string][]core.Entry{}
	}
	return days
}

// SaveLedger persists the full ledger mapping. Implements ledger.Persister.
func (r *Repository) SaveLedger(ctx context.Context, days map[string][]core.Entry) error {
	return r.Save(ctx, KeyLedger, days)
}
