package asana

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// Field selections requested from the API. Kept in one place so every
// fetch of an entity type returns the same shape.
const (
	taskFields    = "name,assignee.name,assignee.email,completed,due_on,due_at,modified_at,created_at,num_subtasks,projects.name,memberships.project.name,memberships.section.name"
	projectFields = "name,archived,color,modified_at,owner.name,members.name,current_status.title,current_status.color"
	userFields    = "name,email,photo.image_60x60"
	storyFields   = "resource_subtype,text,created_at,created_by.name"
)

// Me returns the authenticated user and their workspaces.
func (c *Client) Me(ctx context.Context) (*Me, error) {
	var me Me
	query := url.Values{"opt_fields": {userFields + ",workspaces.name"}}
	if err := c.getOne(ctx, "/users/me", query, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// WorkspaceUsers returns all users in the workspace.
func (c *Client) WorkspaceUsers(ctx context.Context, workspaceGID string) ([]User, error) {
	query := url.Values{"opt_fields": {userFields}}
	return fetchAll[User](ctx, c, "/workspaces/"+workspaceGID+"/users", query)
}

// TasksForAssignee returns incomplete tasks the search endpoint reports
// for the given assignee. The search may over-broadly include tasks the
// user merely follows; callers that need strict assignment must
// re-filter on Assignee.GID.
func (c *Client) TasksForAssignee(ctx context.Context, workspaceGID, userGID string) ([]Task, error) {
	query := url.Values{
		"assignee.any": {userGID},
		"completed":    {"false"},
		"opt_fields":   {taskFields},
	}
	return fetchAll[Task](ctx, c, "/workspaces/"+workspaceGID+"/tasks/search", query)
}

// WorkspaceTasks returns all incomplete tasks in the workspace with no
// assignee constraint.
func (c *Client) WorkspaceTasks(ctx context.Context, workspaceGID string) ([]Task, error) {
	query := url.Values{
		"completed":  {"false"},
		"opt_fields": {taskFields},
	}
	return fetchAll[Task](ctx, c, "/workspaces/"+workspaceGID+"/tasks/search", query)
}

// ActiveProjects returns the workspace's non-archived projects.
func (c *Client) ActiveProjects(ctx context.Context, workspaceGID string) ([]Project, error) {
	query := url.Values{
		"workspace":  {workspaceGID},
		"archived":   {"false"},
		"opt_fields": {projectFields},
	}
	return fetchAll[Project](ctx, c, "/projects", query)
}

// TaskStories returns the activity entries (comments, system events)
// for a task. Fetched on demand by detail views, never during polling.
func (c *Client) TaskStories(ctx context.Context, taskGID string) ([]Story, error) {
	query := url.Values{"opt_fields": {storyFields}}
	return fetchAll[Story](ctx, c, "/tasks/"+taskGID+"/stories", query)
}

// VerifyCredential performs a lightweight who-am-I call. An invalid or
// missing token is the expected failure path and is reported as
// ok=false with detail rather than an error; err is reserved for
// transport and unexpected API failures.
func (c *Client) VerifyCredential(ctx context.Context) (ok bool, detail string, err error) {
	me, err := c.Me(ctx)
	switch {
	case err == nil:
		return true, fmt.Sprintf("authenticated as %s", me.Name), nil
	case errors.Is(err, ErrNoCredential):
		return false, "no credential configured", nil
	case IsAuthError(err):
		return false, "token rejected by Asana", nil
	default:
		return false, "", err
	}
}
