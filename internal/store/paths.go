package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DataDirName is the per-user directory holding the database and traces.
const DataDirName = ".seird"

// DefaultDBName is the database file inside the data directory.
const DefaultDBName = "history.db"

// DefaultDataDir returns ~/.seird.
func DefaultDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DataDirName), nil
}

// DefaultDBPath returns ~/.seird/history.db.
func DefaultDBPath() (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultDBName), nil
}

// Open returns a SQLite store for a non-empty path and an in-memory store
// otherwise.
func Open(path string) (HistoryStore, error) {
	if path == "" {
		return NewInMemoryHistoryStore(), nil
	}
	return NewSQLiteHistoryStore(path)
}
