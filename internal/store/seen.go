package store

import (
	"fmt"
	"time"
)

// SeenTimestamps returns the modified-timestamp last observed for each
// task the user has opened. Tasks never opened have no entry.
func (s *Store) SeenTimestamps() (map[string]time.Time, error) {
	rows, err := s.db.Query(`SELECT task_gid, modified_at FROM seen_timestamps`)
	if err != nil {
		return nil, fmt.Errorf("read seen timestamps: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]time.Time)
	for rows.Next() {
		var gid, modified string
		if err := rows.Scan(&gid, &modified); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, modified)
		if err != nil {
			continue
		}
		seen[gid] = t
	}
	return seen, rows.Err()
}

// SetSeenTimestamp records that the user viewed a task's activity at
// the given modified timestamp. Called only from the activity view;
// entries persist indefinitely.
func (s *Store) SetSeenTimestamp(taskGID string, modifiedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO seen_timestamps (task_gid, modified_at) VALUES (?, ?)
		 ON CONFLICT(task_gid) DO UPDATE SET modified_at = excluded.modified_at`,
		taskGID, modifiedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("set seen timestamp for %s: %w", taskGID, err)
	}
	return nil
}
