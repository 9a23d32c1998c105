package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avanrossum/asana-list/internal/asana"
)

// Snapshot kinds. One row per kind; each poll overwrites in place.
const (
	kindTasks    = "tasks"
	kindProjects = "projects"
	kindUsers    = "users"
)

// SaveTasks replaces the cached task snapshot.
func (s *Store) SaveTasks(tasks []asana.Task) error {
	return saveSnapshot(s, kindTasks, tasks)
}

// Tasks returns the cached task snapshot and its fetch time. A never-
// written snapshot returns nil with a zero time.
func (s *Store) Tasks() ([]asana.Task, time.Time, error) {
	return loadSnapshot[asana.Task](s, kindTasks)
}

// SaveProjects replaces the cached project snapshot.
func (s *Store) SaveProjects(projects []asana.Project) error {
	return saveSnapshot(s, kindProjects, projects)
}

// Projects returns the cached project snapshot and its fetch time.
func (s *Store) Projects() ([]asana.Project, time.Time, error) {
	return loadSnapshot[asana.Project](s, kindProjects)
}

// SaveUsers replaces the cached user snapshot.
func (s *Store) SaveUsers(users []asana.User) error {
	return saveSnapshot(s, kindUsers, users)
}

// Users returns the cached user snapshot and its fetch time.
func (s *Store) Users() ([]asana.User, time.Time, error) {
	return loadSnapshot[asana.User](s, kindUsers)
}

func saveSnapshot[T any](s *Store, kind string, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", kind, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO snapshots (kind, data, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(kind) DO UPDATE SET data = excluded.data, fetched_at = excluded.fetched_at`,
		kind, data, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save %s snapshot: %w", kind, err)
	}
	return nil
}

func loadSnapshot[T any](s *Store, kind string) ([]T, time.Time, error) {
	var data []byte
	var fetchedAt string
	err := s.db.QueryRow(`SELECT data, fetched_at FROM snapshots WHERE kind = ?`, kind).
		Scan(&data, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load %s snapshot: %w", kind, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode %s snapshot: %w", kind, err)
	}
	// fetched_at is diagnostic only; a bad value does not invalidate
	// the snapshot.
	fetched, _ := time.Parse(time.RFC3339, fetchedAt)
	return items, fetched, nil
}
