// Package mcp exposes the cached snapshot to local MCP clients over
// stdio. The surface mirrors the read/update interface the UI shell
// consumes: cached entities, settings (credential redacted), and the
// single seen-timestamp write path. It never talks to the remote API.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/avanrossum/asana-list/internal/asana"
	"github.com/avanrossum/asana-list/internal/store"
)

// Config contains server configuration.
type Config struct {
	Store  *store.Store
	Logger *slog.Logger
}

// NewServer creates an MCP server with the read-only cache tools
// registered.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "asana-list",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: "Read-only view of the locally cached Asana tasks, projects, and users. Data freshness depends on the poll interval.",
		Logger:       cfg.Logger,
	})

	registerTools(server, cfg.Store)
	return server
}

type emptyParams struct{}

type listTasksResult struct {
	Tasks     []asana.Task `json:"tasks"`
	FetchedAt string       `json:"fetched_at,omitempty"`
}

type listProjectsResult struct {
	Projects  []asana.Project `json:"projects"`
	FetchedAt string          `json:"fetched_at,omitempty"`
}

type listUsersResult struct {
	Users []asana.User `json:"users"`
}

type settingsResult struct {
	Settings store.Settings `json:"settings"`
}

type markSeenParams struct {
	TaskGID    string `json:"task_gid"`
	ModifiedAt string `json:"modified_at,omitempty"` // RFC 3339; defaults to now
}

type markSeenResult struct {
	TaskGID    string `json:"task_gid"`
	ModifiedAt string `json:"modified_at"`
}

func registerTools(server *sdkmcp.Server, st *store.Store) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_tasks",
		Description: "List the cached tasks from the last completed poll",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, _ emptyParams) (*sdkmcp.CallToolResult, listTasksResult, error) {
		tasks, fetched, err := st.Tasks()
		if err != nil {
			return nil, listTasksResult{}, err
		}
		if tasks == nil {
			tasks = []asana.Task{}
		}
		return nil, listTasksResult{Tasks: tasks, FetchedAt: formatFetched(fetched)}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List the cached projects from the last completed poll",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, _ emptyParams) (*sdkmcp.CallToolResult, listProjectsResult, error) {
		projects, fetched, err := st.Projects()
		if err != nil {
			return nil, listProjectsResult{}, err
		}
		return nil, listProjectsResult{Projects: projects, FetchedAt: formatFetched(fetched)}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_users",
		Description: "List the cached workspace users",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, _ emptyParams) (*sdkmcp.CallToolResult, listUsersResult, error) {
		users, _, err := st.Users()
		if err != nil {
			return nil, listUsersResult{}, err
		}
		return nil, listUsersResult{Users: users}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_settings",
		Description: "Read the current settings (credential excluded)",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, _ emptyParams) (*sdkmcp.CallToolResult, settingsResult, error) {
		settings, err := st.Settings()
		if err != nil {
			return nil, settingsResult{}, err
		}
		for _, field := range []*[]string{
			&settings.SelectedUserGIDs,
			&settings.TaskIncludeNames,
			&settings.TaskExcludeGIDs,
			&settings.TaskExcludeNames,
			&settings.ProjectIncludeNames,
			&settings.ProjectExcludeGIDs,
			&settings.ProjectExcludeNames,
			&settings.PinnedTaskGIDs,
			&settings.PinnedProjectGIDs,
		} {
			if *field == nil {
				*field = []string{}
			}
		}
		return nil, settingsResult{Settings: settings}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "mark_task_seen",
		Description: "Record that the task's activity was viewed, clearing its new-activity flag",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, params markSeenParams) (*sdkmcp.CallToolResult, markSeenResult, error) {
		if params.TaskGID == "" {
			return nil, markSeenResult{}, fmt.Errorf("task_gid is required")
		}
		seenAt := time.Now().UTC()
		if params.ModifiedAt != "" {
			parsed, err := time.Parse(time.RFC3339, params.ModifiedAt)
			if err != nil {
				return nil, markSeenResult{}, fmt.Errorf("invalid modified_at: %w", err)
			}
			seenAt = parsed
		}
		if err := st.SetSeenTimestamp(params.TaskGID, seenAt); err != nil {
			return nil, markSeenResult{}, err
		}
		return nil, markSeenResult{
			TaskGID:    params.TaskGID,
			ModifiedAt: seenAt.Format(time.RFC3339),
		}, nil
	})
}

func formatFetched(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
