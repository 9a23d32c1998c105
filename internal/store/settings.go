package store

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Setting keys recognized by the settings surface. List-valued keys
// hold JSON arrays; scalars are stored as plain strings.
const (
	KeyTokenCiphertext     = "api_token_ciphertext"
	KeyPollInterval        = "poll_interval_minutes"
	KeyCurrentUser         = "current_user_gid"
	KeySelectedUsers       = "selected_user_gids"
	KeyShowOnlyMine        = "show_only_mine"
	KeyTaskIncludeNames    = "task_include_names"
	KeyTaskExcludeGIDs     = "task_exclude_gids"
	KeyTaskExcludeNames    = "task_exclude_names"
	KeyProjectIncludeNames = "project_include_names"
	KeyProjectExcludeGIDs  = "project_exclude_gids"
	KeyProjectExcludeNames = "project_exclude_names"
	KeyPinnedTasks         = "pinned_task_gids"
	KeyPinnedProjects      = "pinned_project_gids"
	KeyTheme               = "theme"
	KeyTaskSort            = "task_sort"
)

// DefaultPollIntervalMinutes applies when no interval has been saved.
const DefaultPollIntervalMinutes = 5

// Settings is the typed view over the flat key/value configuration
// record. The credential ciphertext is deliberately not part of this
// struct; it moves through TokenCiphertext/SetTokenCiphertext only.
type Settings struct {
	PollIntervalMinutes int
	CurrentUserGID      string
	SelectedUserGIDs    []string
	ShowOnlyMine        bool

	TaskIncludeNames    []string
	TaskExcludeGIDs     []string
	TaskExcludeNames    []string
	ProjectIncludeNames []string
	ProjectExcludeGIDs  []string
	ProjectExcludeNames []string

	PinnedTaskGIDs    []string
	PinnedProjectGIDs []string

	Theme    string
	TaskSort string
}

// Settings reads the current settings snapshot. Missing keys take
// their defaults; unrecognized keys are ignored.
func (s *Store) Settings() (Settings, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	defer rows.Close()

	raw := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, err
		}
		raw[key] = value
	}
	if err := rows.Err(); err != nil {
		return Settings{}, err
	}

	settings := Settings{PollIntervalMinutes: DefaultPollIntervalMinutes}
	if v, ok := raw[KeyPollInterval]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			settings.PollIntervalMinutes = n
		}
	}
	settings.CurrentUserGID = raw[KeyCurrentUser]
	settings.ShowOnlyMine = raw[KeyShowOnlyMine] == "true"
	settings.SelectedUserGIDs = decodeList(raw[KeySelectedUsers])
	settings.TaskIncludeNames = decodeList(raw[KeyTaskIncludeNames])
	settings.TaskExcludeGIDs = decodeList(raw[KeyTaskExcludeGIDs])
	settings.TaskExcludeNames = decodeList(raw[KeyTaskExcludeNames])
	settings.ProjectIncludeNames = decodeList(raw[KeyProjectIncludeNames])
	settings.ProjectExcludeGIDs = decodeList(raw[KeyProjectExcludeGIDs])
	settings.ProjectExcludeNames = decodeList(raw[KeyProjectExcludeNames])
	settings.PinnedTaskGIDs = decodeList(raw[KeyPinnedTasks])
	settings.PinnedProjectGIDs = decodeList(raw[KeyPinnedProjects])
	settings.Theme = raw[KeyTheme]
	settings.TaskSort = raw[KeyTaskSort]
	return settings, nil
}

// Apply upserts a batch of settings atomically: either every key in
// updates becomes visible together or none do. Keys not present in
// updates are untouched.
func (s *Store) Apply(updates map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin settings update: %w", err)
	}
	defer tx.Rollback()

	for key, value := range updates {
		_, err := tx.Exec(
			`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		)
		if err != nil {
			return fmt.Errorf("apply setting %q: %w", key, err)
		}
	}
	return tx.Commit()
}

// GetSetting reads a single raw setting value. Returns "" when unset.
func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// TokenCiphertext returns the sealed API token, or nil when no
// credential has been stored.
func (s *Store) TokenCiphertext() ([]byte, error) {
	encoded, err := s.GetSetting(KeyTokenCiphertext)
	if err != nil || encoded == "" {
		return nil, err
	}
	box, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode token ciphertext: %w", err)
	}
	return box, nil
}

// SetTokenCiphertext stores the sealed API token. The store never
// receives plaintext.
func (s *Store) SetTokenCiphertext(box []byte) error {
	return s.Apply(map[string]string{
		KeyTokenCiphertext: base64.StdEncoding.EncodeToString(box),
	})
}

// EncodeList renders a string list for a list-valued settings key.
func EncodeList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(values)
	return string(data)
}

func decodeList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
