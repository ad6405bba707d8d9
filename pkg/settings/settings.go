// Package settings persists user preferences such as the filename template
// across sessions.
package settings

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "modernc.org/sqlite"
)

// Known keys
const (
	KeyFilenameTemplate = "filename_template"
	KeySaveAs           = "save_as"
	KeyAnchor           = "anchor"
)

var knownKeys = map[string]string{
	KeyFilenameTemplate: "template used to name downloaded files",
	KeySaveAs:           "ask for a file name before each download (true/false)",
	KeyAnchor:           "where the download toolbar is placed (before-title, after-title, panel)",
}

// ErrUnknownKey is returned when setting a key outside the known set
var ErrUnknownKey = errors.New("unknown settings key")

// Store is a persistent string key-value store
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Keys returns the known keys with their descriptions, sorted by key
func Keys() []KeyInfo {
	out := make([]KeyInfo, 0, len(knownKeys))
	for k, d := range knownKeys {
		out = append(out, KeyInfo{Key: k, Description: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// KeyInfo describes one known key
type KeyInfo struct {
	Key         string
	Description string
}

// ValidKey reports whether key is a known setting
func ValidKey(key string) bool {
	_, ok := knownKeys[key]
	return ok
}

// GetOr returns the stored value for key, or def when it is missing or the
// store fails.
func GetOr(s Store, key, def string) string {
	if s == nil {
		return def
	}
	v, ok, err := s.Get(key)
	if err != nil || !ok {
		return def
	}
	return v
}

// SQLiteStore keeps settings in a single table of a SQLite database
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open creates or opens the settings database at path
func Open(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating settings directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening settings database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging settings database: %w", err)
	}
	return newStore(db, path)
}

// OpenMemory creates an in-memory store (useful for testing)
func OpenMemory() (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory settings database: %w", err)
	}
	// every pooled connection would otherwise get its own empty database
	db.SetMaxOpenConns(1)
	return newStore(db, ":memory:")
}

func newStore(db *sql.DB, path string) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running settings migrations: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// Get returns the stored value for key
func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under a known key
func (s *SQLiteStore) Set(key, value string) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	_, err := s.db.Exec(`
INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`, key, value)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting setting %s: %w", key, err)
	}
	return nil
}

// All returns every stored setting
func (s *SQLiteStore) All() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Path returns the database location
func (s *SQLiteStore) Path() string { return s.path }

// Close releases the database
func (s *SQLiteStore) Close() error { return s.db.Close() }

// MemoryStore is a process-local Store
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Overlay reads values from overrides before falling back to base. Writes
// go to base. It lets command-line flags win over stored settings for one
// run without persisting them.
type Overlay struct {
	base      Store
	overrides map[string]string
}

// NewOverlay creates an Overlay. Empty override values are ignored.
func NewOverlay(base Store, overrides map[string]string) *Overlay {
	o := &Overlay{base: base, overrides: make(map[string]string)}
	for k, v := range overrides {
		if v != "" {
			o.overrides[k] = v
		}
	}
	return o
}

func (o *Overlay) Get(key string) (string, bool, error) {
	if v, ok := o.overrides[key]; ok {
		return v, true, nil
	}
	return o.base.Get(key)
}

func (o *Overlay) Set(key, value string) error {
	return o.base.Set(key, value)
}
