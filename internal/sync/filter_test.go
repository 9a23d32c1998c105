package sync_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avanrossum/asana-list/internal/asana"
	"github.com/avanrossum/asana-list/internal/sync"
)

func gids(tasks []asana.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.GID)
	}
	return out
}

func TestFilterPrecedence(t *testing.T) {
	items := []asana.Task{
		{GID: "1", Name: "Launch plan"},
		{GID: "42", Name: "Launch review"},
		{GID: "7", Name: "Other"},
	}
	policy := sync.Policy{
		IncludeNames: []string{"launch"},
		ExcludeGIDs:  []string{"42"},
	}

	// 42 matches the include list but is excluded by GID; 7 fails the
	// include list.
	filtered := sync.FilterTasks(items, policy)
	require.Equal(t, []string{"1"}, gids(filtered))
}

func TestFilterCaseInsensitive(t *testing.T) {
	items := []asana.Task{
		{GID: "1", Name: "LAUNCH Plan"},
		{GID: "2", Name: "internal cleanup"},
	}

	filtered := sync.FilterTasks(items, sync.Policy{IncludeNames: []string{"Launch"}})
	require.Equal(t, []string{"1"}, gids(filtered))

	filtered = sync.FilterTasks(items, sync.Policy{ExcludeNames: []string{"CLEANUP"}})
	require.Equal(t, []string{"1"}, gids(filtered))
}

func TestFilterEmptyPolicyKeepsAll(t *testing.T) {
	items := []asana.Task{{GID: "1", Name: "a"}, {GID: "2", Name: "b"}}
	require.Equal(t, []string{"1", "2"}, gids(sync.FilterTasks(items, sync.Policy{})))
}

func TestFilterListOrderIrrelevant(t *testing.T) {
	items := []asana.Task{
		{GID: "1", Name: "Launch plan"},
		{GID: "42", Name: "Launch review"},
		{GID: "7", Name: "Other launch"},
	}
	a := sync.Policy{
		IncludeNames: []string{"launch", "plan"},
		ExcludeGIDs:  []string{"42", "99"},
		ExcludeNames: []string{"other"},
	}
	b := sync.Policy{
		IncludeNames: []string{"plan", "launch"},
		ExcludeGIDs:  []string{"99", "42"},
		ExcludeNames: []string{"other"},
	}

	require.Equal(t, gids(sync.FilterTasks(items, a)), gids(sync.FilterTasks(items, b)),
		"result must depend only on list contents, not construction order")
}

func TestFilterProjects(t *testing.T) {
	projects := []asana.Project{
		{GID: "p1", Name: "Roadmap"},
		{GID: "p2", Name: "Archive sweep"},
	}
	filtered := sync.FilterProjects(projects, sync.Policy{ExcludeNames: []string{"archive"}})
	require.Len(t, filtered, 1)
	require.Equal(t, "p1", filtered[0].GID)
}

func TestOnlyAssignedTo(t *testing.T) {
	tasks := []asana.Task{
		{GID: "1", Name: "Mine", Assignee: &asana.User{GID: "u1"}},
		{GID: "2", Name: "Followed only", Assignee: &asana.User{GID: "u2"}},
		{GID: "3", Name: "Unassigned"},
	}

	filtered := sync.OnlyAssignedTo(tasks, "u1")
	require.Equal(t, []string{"1"}, gids(filtered))

	// Idempotent: re-filtering an already-filtered set changes nothing.
	require.Equal(t, filtered, sync.OnlyAssignedTo(filtered, "u1"))
}

func TestMergeTasksDeduplicates(t *testing.T) {
	first := []asana.Task{
		{GID: "1", Name: "from first fetch"},
		{GID: "2", Name: "only first"},
	}
	second := []asana.Task{
		{GID: "1", Name: "from second fetch"},
		{GID: "3", Name: "only second"},
	}

	merged := sync.MergeTasks(first, second)
	require.Equal(t, []string{"1", "2", "3"}, gids(merged))
	require.Equal(t, "from first fetch", merged[0].Name, "first-encountered record wins")
}
