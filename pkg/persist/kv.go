// Package persist keeps the local state in named key-value slots, either as
// JSON files under the config directory or as rows in a SQLite table.
package persist

import (
	"errors"
	"os"
	"path/filepath"
)

// Slot names. They match the keys the browser build kept in localStorage so
// an exported document can be dropped in unchanged.
const (
	KeyData          = "eisenhowerMatrixData"
	KeyCredential    = "github_token"
	KeySyncMeta      = "sync_meta"
	KeyCalendarIndex = "calendar_index"
	KeyInsights      = "insights"
)

const xdgAppName = "eisen"

var ErrCorrupt = errors.New("stored data is corrupt")

// KV is a durable string-keyed byte store.
type KV interface {
	// Get returns ok=false when the key has never been written.
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// DefaultDir returns ~/.config/eisen.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

// Open picks a backend by name: "sqlite" or anything else for files.
func Open(backend, dir string) (KV, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if backend == "sqlite" {
		return OpenSQLite(filepath.Join(dir, "eisen.db"))
	}
	return NewFileKV(dir)
}
