package sync

import "github.com/avanrossum/asana-list/internal/asana"

// UpdateKind tags the outcome of a poll cycle.
type UpdateKind int

const (
	// UpdateData carries the freshly fetched and filtered sets.
	UpdateData UpdateKind = iota
	// UpdateError reports a failed cycle. The subscriber keeps
	// rendering the prior cached snapshot.
	UpdateError
)

// Update is the event published to the single subscriber after each
// completed cycle.
type Update struct {
	Kind     UpdateKind
	Tasks    []asana.Task
	Projects []asana.Project
	Err      string
}
