package sync

import (
	"strings"

	"github.com/avanrossum/asana-list/internal/asana"
)

// Policy is the per-entity inclusion/exclusion filter. Patterns are
// literal case-insensitive substrings, never anchored or treated as
// regular expressions.
type Policy struct {
	IncludeNames []string
	ExcludeGIDs  []string
	ExcludeNames []string
}

// FilterTasks applies the policy to a task list.
func FilterTasks(tasks []asana.Task, policy Policy) []asana.Task {
	return applyPolicy(tasks,
		func(t asana.Task) string { return t.GID },
		func(t asana.Task) string { return t.Name },
		policy)
}

// FilterProjects applies the policy to a project list.
func FilterProjects(projects []asana.Project, policy Policy) []asana.Project {
	return applyPolicy(projects,
		func(p asana.Project) string { return p.GID },
		func(p asana.Project) string { return p.Name },
		policy)
}

// applyPolicy filters in fixed precedence: a non-empty include list is
// an opt-in allowlist, then GID exclusions, then name exclusions. The
// result depends only on list contents, not construction order.
func applyPolicy[T any](items []T, gid func(T) string, name func(T) string, policy Policy) []T {
	excludedGIDs := make(map[string]struct{}, len(policy.ExcludeGIDs))
	for _, g := range policy.ExcludeGIDs {
		excludedGIDs[g] = struct{}{}
	}

	var kept []T
	for _, item := range items {
		lowerName := strings.ToLower(name(item))
		if len(policy.IncludeNames) > 0 && !containsAny(lowerName, policy.IncludeNames) {
			continue
		}
		if _, excluded := excludedGIDs[gid(item)]; excluded {
			continue
		}
		if containsAny(lowerName, policy.ExcludeNames) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

func containsAny(lowerName string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(lowerName, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// OnlyAssignedTo retains tasks whose assignee GID exactly matches one
// of the given users. The search endpoint over-broadly returns tasks
// the user merely follows, so this strict client-side check is applied
// after every assignee-scoped fetch. Idempotent.
func OnlyAssignedTo(tasks []asana.Task, assignees ...string) []asana.Task {
	allowed := make(map[string]struct{}, len(assignees))
	for _, gid := range assignees {
		allowed[gid] = struct{}{}
	}

	var kept []asana.Task
	for _, task := range tasks {
		if task.Assignee == nil {
			continue
		}
		if _, ok := allowed[task.Assignee.GID]; ok {
			kept = append(kept, task)
		}
	}
	return kept
}

// MergeTasks concatenates per-user fetch results, deduplicating by GID
// with the first-encountered record winning. Groups are merged in the
// order given, so callers control precedence by ordering the groups.
func MergeTasks(groups ...[]asana.Task) []asana.Task {
	seen := make(map[string]struct{})
	var merged []asana.Task
	for _, group := range groups {
		for _, task := range group {
			if _, dup := seen[task.GID]; dup {
				continue
			}
			seen[task.GID] = struct{}{}
			merged = append(merged, task)
		}
	}
	return merged
}
