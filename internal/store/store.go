// Package store is the durable local cache: settings, entity
// snapshots, and per-task seen timestamps in an embedded SQLite
// database with staged recovery from on-disk corruption.
package store

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

// Recovery reports which tier of the open cascade produced a usable
// store.
type Recovery int

const (
	// RecoveryNone means the primary file opened cleanly.
	RecoveryNone Recovery = iota
	// RecoveryRestored means the primary was corrupt and the backup
	// copy was restored.
	RecoveryRestored
	// RecoveryReset means both primary and backup were unusable and
	// the store started empty. Callers should alert the user that
	// local data was reset.
	RecoveryReset
)

// Store wraps the SQLite database. All mutations are serialized by a
// single connection; the sync engine is the sole writer of snapshots,
// and settings/seen-timestamp writes touch independent keys.
type Store struct {
	db *sql.DB
}

// Open opens the database at path with crash-safe recovery: the
// existing file is copied to a backup before opening; an integrity
// check failure falls back to restoring the backup, and failing that,
// to deleting the file and starting empty. Only when all three tiers
// fail is an error returned.
func Open(path string) (*Store, Recovery, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, RecoveryNone, fmt.Errorf("create db directory: %w", err)
	}

	backupPath := path + ".bak"
	if _, err := os.Stat(path); err == nil {
		// Keep the previous backup when the primary does not even
		// carry the SQLite header; copying it over would destroy the
		// only restorable copy.
		if _, err := os.Stat(backupPath); err != nil || looksLikeSQLite(path) {
			if err := copyFile(path, backupPath); err != nil {
				return nil, RecoveryNone, fmt.Errorf("back up database: %w", err)
			}
		}
	}

	store, err := open(path)
	if err == nil {
		return store, RecoveryNone, nil
	}
	firstErr := err

	// Tier two: restore the backup copy and reopen.
	if _, statErr := os.Stat(backupPath); statErr == nil {
		removeDatabase(path)
		if copyErr := copyFile(backupPath, path); copyErr == nil {
			if store, err := open(path); err == nil {
				return store, RecoveryRestored, nil
			}
		}
	}

	// Tier three: delete the corrupt file and start from empty.
	removeDatabase(path)
	store, err = open(path)
	if err != nil {
		return nil, RecoveryNone, fmt.Errorf("open after reset (first error: %v): %w", firstErr, err)
	}
	return store, RecoveryReset, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return open(":memory:")
}

func open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		db.Close()
		return nil, fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		db.Close()
		return nil, fmt.Errorf("integrity check failed: %s", result)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		kind       TEXT PRIMARY KEY,
		data       BLOB NOT NULL,
		fetched_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS seen_timestamps (
		task_gid    TEXT PRIMARY KEY,
		modified_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// Flush forces buffered writes to be durably committed. Called on
// shutdown so the last in-memory mutation is not lost.
func (s *Store) Flush() error {
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DefaultDBPath returns the per-user database location,
// e.g. ~/.config/asana-list/asana-list.db.
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "asana-list", "asana-list.db"), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// looksLikeSQLite reports whether the file starts with the SQLite
// header magic. A cheap probe, not an integrity check.
func looksLikeSQLite(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, 16)
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}
	return string(header) == "SQLite format 3\x00"
}

// removeDatabase deletes the database file and its WAL sidecars.
func removeDatabase(path string) {
	os.Remove(path)
	os.Remove(path + "-wal")
	os.Remove(path + "-shm")
}
