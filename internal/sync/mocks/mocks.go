// Package mocks provides a testify mock of the remote API surface for
// engine tests.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/avanrossum/asana-list/internal/asana"
)

// API is a mock for sync.API.
type API struct {
	mock.Mock
}

func (m *API) Me(ctx context.Context) (*asana.Me, error) {
	args := m.Called(ctx)
	if me, ok := args.Get(0).(*asana.Me); ok {
		return me, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) WorkspaceUsers(ctx context.Context, workspaceGID string) ([]asana.User, error) {
	args := m.Called(ctx, workspaceGID)
	if users, ok := args.Get(0).([]asana.User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) TasksForAssignee(ctx context.Context, workspaceGID, userGID string) ([]asana.Task, error) {
	args := m.Called(ctx, workspaceGID, userGID)
	if tasks, ok := args.Get(0).([]asana.Task); ok {
		return tasks, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) WorkspaceTasks(ctx context.Context, workspaceGID string) ([]asana.Task, error) {
	args := m.Called(ctx, workspaceGID)
	if tasks, ok := args.Get(0).([]asana.Task); ok {
		return tasks, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) ActiveProjects(ctx context.Context, workspaceGID string) ([]asana.Project, error) {
	args := m.Called(ctx, workspaceGID)
	if projects, ok := args.Get(0).([]asana.Project); ok {
		return projects, args.Error(1)
	}
	return nil, args.Error(1)
}
