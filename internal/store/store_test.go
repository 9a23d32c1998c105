package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avanrossum/asana-list/internal/asana"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewMemory()
	require.NoError(t, err, "failed to create test store")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrations(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"settings", "snapshots", "seen_timestamps"} {
		var count int
		err := s.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 1, count, "table %s not found", table)
	}
}

func TestOpenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cache.db")

	s, recovery, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, RecoveryNone, recovery)
	require.NoError(t, s.Apply(map[string]string{KeyTheme: "dark"}))
	require.NoError(t, s.Flush())
	require.NoError(t, s.Close())

	s2, recovery, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	require.Equal(t, RecoveryNone, recovery)

	value, err := s2.GetSetting(KeyTheme)
	require.NoError(t, err)
	require.Equal(t, "dark", value)

	_, err = os.Stat(path + ".bak")
	require.NoError(t, err, "reopening must leave a backup copy")
}

func TestOpenCorruptedFileResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a database"), 0o644))

	s, recovery, err := Open(path)
	require.NoError(t, err, "a corrupt file must never make Open fail outright")
	defer s.Close()
	require.Equal(t, RecoveryReset, recovery)

	tasks, _, err := s.Tasks()
	require.NoError(t, err)
	require.Empty(t, tasks)
}

func TestOpenRestoresBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	// First run writes data; second run creates the backup copy.
	s, _, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveTasks([]asana.Task{{GID: "1", Name: "Launch plan"}}))
	require.NoError(t, s.Flush())
	require.NoError(t, s.Close())

	s, _, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Clobber the primary. The backup still holds the good copy.
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	restored, recovery, err := Open(path)
	require.NoError(t, err)
	defer restored.Close()
	require.Equal(t, RecoveryRestored, recovery)

	tasks, _, err := restored.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "Launch plan", tasks[0].Name)
}

func TestFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, _, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetSeenTimestamp("42", time.Now()))
	require.NoError(t, s.Flush())
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	require.NoError(t, err)
	require.Contains(t, path, "asana-list")
}
