package calsync

import (
	"fmt"
	"time"
)

// Push operations recorded in PushError.Op.
const (
	OpLookup = "lookup"
	OpCreate = "create"
	OpUpdate = "update"
)

// Conflict is a task whose remote copy changed after the local edit.
// The remote event is left untouched.
type Conflict struct {
	TaskID string
	Local  time.Time
	Remote time.Time
}

// PushError is a per-task failure that did not stop the push phase.
type PushError struct {
	TaskID string
	Op     string
	Err    error
}

func (e PushError) Error() string {
	return fmt.Sprintf("%s task %s: %v", e.Op, e.TaskID, e.Err)
}

func (e PushError) Unwrap() error {
	return e.Err
}

// PushReport summarizes one push phase.
type PushReport struct {
	Created   []string
	Updated   []string
	Conflicts []Conflict
	Errors    []PushError
	// Gone lists tasks with an ETag whose event lookup found nothing.
	Gone []string
	// Skipped counts tasks without a due date.
	Skipped int
}

// Result is the outcome of one sync cycle.
type Result struct {
	Start time.Time
	End   time.Time

	// RemoteChanges holds every event observed in the window.
	RemoteChanges []Change
	// RemoteDeleted lists local ids absent from the fetched uids, in the
	// caller's task order. Tasks due outside the window always appear here.
	RemoteDeleted []string
	// WindowDeleted is the subset of RemoteDeleted that is safe to act on:
	// tasks due inside the window that were seen remotely before (non-empty
	// ETag) and whose event a lookup by uid no longer finds.
	WindowDeleted []string

	Created    []string
	Updated    []string
	Conflicts  []Conflict
	PushErrors []PushError
}

// HasErrors reports whether any task failed to push.
func (r *Result) HasErrors() bool {
	return len(r.PushErrors) > 0
}

// ETagFor returns the ETag of the fetched change with the given uid.
func (r *Result) ETagFor(uid string) (string, bool) {
	for _, c := range r.RemoteChanges {
		if c.UID != "" && c.UID == uid {
			return c.ETag, true
		}
	}
	return "", false
}
