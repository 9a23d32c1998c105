package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/avanrossum/asana-list/internal/asana"
	"github.com/avanrossum/asana-list/internal/store"
)

func newTestSession(t *testing.T, st *store.Store) *sdkmcp.ClientSession {
	t.Helper()

	server := NewServer(Config{Store: st})
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()

	ctx := context.Background()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return session
}

func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) json.RawMessage {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err, "CallTool %s failed", name)
	require.False(t, result.IsError, "Tool %s returned error", name)
	require.NotEmpty(t, result.Content, "Tool %s returned no content", name)

	for _, content := range result.Content {
		if textContent, ok := content.(*sdkmcp.TextContent); ok {
			return json.RawMessage(textContent.Text)
		}
	}
	t.Fatalf("Tool %s returned no text content", name)
	return nil
}

func TestListTasks(t *testing.T) {
	st, err := store.NewMemory()
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.SaveTasks([]asana.Task{
		{GID: "101", Name: "Review launch checklist"},
		{GID: "102", Name: "File expense report", Completed: true},
	}))

	session := newTestSession(t, st)

	raw := callTool(t, session, "list_tasks", nil)

	var result listTasksResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Tasks, 2)
	require.Equal(t, "101", result.Tasks[0].GID)
	require.NotEmpty(t, result.FetchedAt)
}

func TestListTasksEmptyCache(t *testing.T) {
	st, err := store.NewMemory()
	require.NoError(t, err)
	defer st.Close()

	session := newTestSession(t, st)

	raw := callTool(t, session, "list_tasks", nil)

	var result listTasksResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Empty(t, result.Tasks)
	require.Empty(t, result.FetchedAt)
}

func TestGetSettingsOmitsCredential(t *testing.T) {
	st, err := store.NewMemory()
	require.NoError(t, err)
	defer st.Close()

	ciphertext := []byte("sealed-credential-material")
	require.NoError(t, st.SetTokenCiphertext(ciphertext))
	require.NoError(t, st.Apply(map[string]string{
		store.KeyPollInterval: "15",
	}))

	session := newTestSession(t, st)

	raw := callTool(t, session, "get_settings", nil)
	require.NotContains(t, string(raw), "sealed-credential")

	var result settingsResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Equal(t, 15, result.Settings.PollIntervalMinutes)
}

func TestMarkTaskSeen(t *testing.T) {
	st, err := store.NewMemory()
	require.NoError(t, err)
	defer st.Close()

	session := newTestSession(t, st)

	modified := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	raw := callTool(t, session, "mark_task_seen", map[string]any{
		"task_gid":    "777",
		"modified_at": modified.Format(time.RFC3339),
	})

	var result markSeenResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Equal(t, "777", result.TaskGID)

	seen, err := st.SeenTimestamps()
	require.NoError(t, err)
	require.True(t, seen["777"].Equal(modified))
}

func TestMarkTaskSeenRequiresGID(t *testing.T) {
	st, err := store.NewMemory()
	require.NoError(t, err)
	defer st.Close()

	session := newTestSession(t, st)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "mark_task_seen",
		Arguments: map[string]any{"task_gid": ""},
	})
	require.NoError(t, err)
	require.True(t, result.IsError)
}
