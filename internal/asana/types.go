package asana

import "time"

// Workspace is an Asana workspace reference.
type Workspace struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// User is an Asana user. Cached indefinitely once fetched.
type User struct {
	GID   string `json:"gid"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Photo *Photo `json:"photo,omitempty"`
}

// Photo holds the avatar variants we request.
type Photo struct {
	Image60 string `json:"image_60x60,omitempty"`
}

// Me is the authenticated user together with their workspaces.
type Me struct {
	User
	Workspaces []Workspace `json:"workspaces"`
}

// ProjectRef is a lightweight project reference as embedded in tasks.
type ProjectRef struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// Section is a column/section within a project.
type Section struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// Membership pairs a project with the section a task sits in.
type Membership struct {
	Project ProjectRef `json:"project"`
	Section *Section   `json:"section,omitempty"`
}

// Task is a remote-origin task. GID uniquely identifies it within a
// workspace; ModifiedAt is non-decreasing across polls for an unchanged
// task, which is what seen-timestamp comparison relies on.
type Task struct {
	GID         string       `json:"gid"`
	Name        string       `json:"name"`
	Assignee    *User        `json:"assignee,omitempty"`
	Completed   bool         `json:"completed"`
	DueOn       string       `json:"due_on,omitempty"` // date-only, YYYY-MM-DD
	DueAt       string       `json:"due_at,omitempty"` // full timestamp when the task has a time of day
	ModifiedAt  time.Time    `json:"modified_at"`
	CreatedAt   time.Time    `json:"created_at"`
	NumSubtasks int          `json:"num_subtasks"`
	Projects    []ProjectRef `json:"projects,omitempty"`
	Memberships []Membership `json:"memberships,omitempty"`
}

// ProjectStatus is a project's current status update headline.
type ProjectStatus struct {
	Title string `json:"title"`
	Color string `json:"color"`
}

// Project is an Asana project.
type Project struct {
	GID           string         `json:"gid"`
	Name          string         `json:"name"`
	Archived      bool           `json:"archived"`
	Color         string         `json:"color,omitempty"`
	ModifiedAt    time.Time      `json:"modified_at"`
	Owner         *User          `json:"owner,omitempty"`
	Members       []User         `json:"members,omitempty"`
	CurrentStatus *ProjectStatus `json:"current_status,omitempty"`
}

// Story is a task activity entry (comment, status change). Fetched
// lazily per task, never during a poll cycle.
type Story struct {
	GID       string    `json:"gid"`
	Type      string    `json:"resource_subtype"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy *User     `json:"created_by,omitempty"`
}
