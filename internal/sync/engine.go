// Package sync is the reconciliation loop that keeps the local cache
// consistent with the remote workspace under the configured filter
// policy. One engine runs per process; it is the sole writer of the
// cached entity snapshots.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/avanrossum/asana-list/internal/asana"
	"github.com/avanrossum/asana-list/internal/store"
)

// Polling cadence bounds. Reconfiguration outside this range is
// clamped, not rejected.
const (
	MinInterval = 1 * time.Minute
	MaxInterval = 60 * time.Minute
)

// API is the remote surface the engine consumes. Satisfied by
// *asana.Client; mocked in tests.
type API interface {
	Me(ctx context.Context) (*asana.Me, error)
	WorkspaceUsers(ctx context.Context, workspaceGID string) ([]asana.User, error)
	TasksForAssignee(ctx context.Context, workspaceGID, userGID string) ([]asana.Task, error)
	WorkspaceTasks(ctx context.Context, workspaceGID string) ([]asana.Task, error)
	ActiveProjects(ctx context.Context, workspaceGID string) ([]asana.Project, error)
}

// Config holds engine dependencies.
type Config struct {
	Client API
	Store  *store.Store
	Logger *slog.Logger
}

// Engine drives the periodic poll cycle. A cycle either completes or
// fails; there is no cancellation of an in-flight cycle, and two
// cycles never run concurrently.
type Engine struct {
	client API
	store  *store.Store
	logger *slog.Logger

	// guard is the re-entrance guard: a tick or manual refresh while
	// a cycle is in flight is a no-op.
	guard sync.Mutex

	events   chan Update
	refresh  chan struct{}
	interval chan time.Duration

	// workspaceGID caches the resolved workspace. The first workspace
	// the account reports is authoritative; multi-workspace accounts
	// are an explicit non-goal.
	workspaceGID string
}

// New creates an Engine. The store must be open; the engine takes no
// ownership of it.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client:   cfg.Client,
		store:    cfg.Store,
		logger:   logger,
		events:   make(chan Update, 1),
		refresh:  make(chan struct{}, 1),
		interval: make(chan time.Duration, 1),
	}
}

// Updates returns the single-consumer event channel. Publishing is
// newest-wins: if the subscriber lags, a stale pending update is
// replaced rather than blocking the engine.
func (e *Engine) Updates() <-chan Update {
	return e.events
}

// Refresh requests an immediate out-of-band cycle without disturbing
// the timer schedule. A no-op if a cycle is already in flight or a
// refresh is already queued.
func (e *Engine) Refresh() {
	select {
	case e.refresh <- struct{}{}:
	default:
	}
}

// SetInterval reschedules future ticks. The in-flight cycle, if any,
// is unaffected.
func (e *Engine) SetInterval(d time.Duration) {
	select {
	case <-e.interval:
	default:
	}
	e.interval <- ClampInterval(d)
}

// ClampInterval bounds a polling interval to the supported range.
func ClampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}

// Run polls immediately, then on every timer tick or refresh request
// until ctx is cancelled. Interval reconfiguration resets the ticker
// without losing the cached snapshot.
func (e *Engine) Run(ctx context.Context) {
	settings, err := e.store.Settings()
	if err != nil {
		e.logger.Error("reading settings", "error", err)
		settings = store.Settings{PollIntervalMinutes: store.DefaultPollIntervalMinutes}
	}

	ticker := time.NewTicker(ClampInterval(time.Duration(settings.PollIntervalMinutes) * time.Minute))
	defer ticker.Stop()

	e.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Poll(ctx)
		case <-e.refresh:
			e.Poll(ctx)
		case d := <-e.interval:
			ticker.Reset(d)
		}
	}
}

// Poll runs a single cycle unless one is already in flight, in which
// case it reports false without doing anything. Exactly one event is
// published per completed cycle.
func (e *Engine) Poll(ctx context.Context) bool {
	if !e.guard.TryLock() {
		return false
	}
	defer e.guard.Unlock()

	logger := e.logger.With("cycle", uuid.NewString())
	started := time.Now()

	tasks, projects, err := e.runCycle(ctx, logger)
	if err != nil {
		logger.Warn("poll cycle failed", "error", err, "elapsed", time.Since(started))
		e.publish(Update{Kind: UpdateError, Err: err.Error()})
		return true
	}

	logger.Info("poll cycle complete",
		"tasks", len(tasks),
		"projects", len(projects),
		"elapsed", time.Since(started),
	)
	e.publish(Update{Kind: UpdateData, Tasks: tasks, Projects: projects})
	return true
}

func (e *Engine) runCycle(ctx context.Context, logger *slog.Logger) ([]asana.Task, []asana.Project, error) {
	settings, err := e.store.Settings()
	if err != nil {
		return nil, nil, fmt.Errorf("reading settings: %w", err)
	}

	workspace, err := e.resolveWorkspace(ctx)
	if err != nil {
		return nil, nil, err
	}

	if err := e.ensureUserCache(ctx, workspace); err != nil {
		return nil, nil, err
	}

	tasks, err := e.fetchTasks(ctx, workspace, settings, logger)
	if err != nil {
		return nil, nil, err
	}

	projects, err := e.client.ActiveProjects(ctx, workspace)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching projects: %w", err)
	}

	tasks = FilterTasks(tasks, Policy{
		IncludeNames: settings.TaskIncludeNames,
		ExcludeGIDs:  settings.TaskExcludeGIDs,
		ExcludeNames: settings.TaskExcludeNames,
	})
	projects = FilterProjects(projects, Policy{
		IncludeNames: settings.ProjectIncludeNames,
		ExcludeGIDs:  settings.ProjectExcludeGIDs,
		ExcludeNames: settings.ProjectExcludeNames,
	})

	if err := e.store.SaveTasks(tasks); err != nil {
		return nil, nil, fmt.Errorf("persisting tasks: %w", err)
	}
	if err := e.store.SaveProjects(projects); err != nil {
		return nil, nil, fmt.Errorf("persisting projects: %w", err)
	}
	return tasks, projects, nil
}

// fetchTasks branches on the assignment-filter mode. Assignee-scoped
// fetches are strictly re-filtered client-side because the search
// endpoint also returns tasks the user merely follows.
func (e *Engine) fetchTasks(ctx context.Context, workspace string, settings store.Settings, logger *slog.Logger) ([]asana.Task, error) {
	switch {
	case settings.ShowOnlyMine && settings.CurrentUserGID != "":
		tasks, err := e.client.TasksForAssignee(ctx, workspace, settings.CurrentUserGID)
		if err != nil {
			return nil, fmt.Errorf("fetching tasks for current user: %w", err)
		}
		return OnlyAssignedTo(tasks, settings.CurrentUserGID), nil

	case len(settings.SelectedUserGIDs) > 0:
		return e.fetchSelectedUsers(ctx, workspace, settings.SelectedUserGIDs, logger)

	default:
		tasks, err := e.client.WorkspaceTasks(ctx, workspace)
		if err != nil {
			return nil, fmt.Errorf("fetching workspace tasks: %w", err)
		}
		return tasks, nil
	}
}

// fetchSelectedUsers fetches each selected user's tasks concurrently
// and merges them in selection order, first-seen-wins per GID.
func (e *Engine) fetchSelectedUsers(ctx context.Context, workspace string, selected []string, logger *slog.Logger) ([]asana.Task, error) {
	results := make([][]asana.Task, len(selected))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, userGID := range selected {
		group.Go(func() error {
			tasks, err := e.client.TasksForAssignee(groupCtx, workspace, userGID)
			if err != nil {
				return fmt.Errorf("fetching tasks for user %s: %w", userGID, err)
			}
			results[i] = tasks
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	merged := MergeTasks(results...)
	logger.Debug("merged multi-user fetch",
		"users", len(selected),
		"merged", len(merged),
	)
	return OnlyAssignedTo(merged, selected...), nil
}

// resolveWorkspace returns the account's first workspace. The result
// is cached for the life of the engine.
func (e *Engine) resolveWorkspace(ctx context.Context) (string, error) {
	if e.workspaceGID != "" {
		return e.workspaceGID, nil
	}
	me, err := e.client.Me(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving workspace: %w", err)
	}
	if len(me.Workspaces) == 0 {
		return "", fmt.Errorf("account has no workspaces")
	}
	e.workspaceGID = me.Workspaces[0].GID
	return e.workspaceGID, nil
}

// ensureUserCache populates the cached user set once. Users are cached
// indefinitely; there is no refresh policy beyond re-fetch-if-empty.
func (e *Engine) ensureUserCache(ctx context.Context, workspace string) error {
	cached, _, err := e.store.Users()
	if err != nil {
		return fmt.Errorf("reading user cache: %w", err)
	}
	if len(cached) > 0 {
		return nil
	}

	users, err := e.client.WorkspaceUsers(ctx, workspace)
	if err != nil {
		return fmt.Errorf("fetching users: %w", err)
	}
	if err := e.store.SaveUsers(users); err != nil {
		return fmt.Errorf("persisting users: %w", err)
	}
	return nil
}

// publish delivers an update without ever blocking the engine: if the
// buffer already holds an unconsumed update, the stale one is dropped
// in favor of the new one.
func (e *Engine) publish(update Update) {
	for {
		select {
		case e.events <- update:
			return
		default:
			select {
			case <-e.events:
			default:
			}
		}
	}
}
