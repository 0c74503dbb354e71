package task

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a task does not exist.
	ErrNotFound = errors.New("task not found")
	// ErrInvalidStatus is returned when a status string is not recognized.
	ErrInvalidStatus = errors.New("invalid task status")
	// ErrInvalidPriority is returned when a priority string is not recognized.
	ErrInvalidPriority = errors.New("invalid task priority")
)

// Filter controls which tasks are returned by List. Zero values match everything.
type Filter struct {
	Status    Status
	ProjectID string
	Tag       string
	// DueBefore keeps tasks due strictly before the given time.
	DueBefore *time.Time
	// Search matches title or description, case-insensitive.
	Search string
	// OpenOnly excludes completed and canceled tasks.
	OpenOnly bool
}

// Update contains optional fields for a partial task update.
// Nil fields are not updated.
type Update struct {
	Title        *string
	Description  *string
	Status       *Status
	Priority     *Priority
	DueDate      *time.Time
	ClearDueDate bool
	CompletedAt  *time.Time
	// ClearCompletedAt resets the completion time. Ignored when CompletedAt is set.
	ClearCompletedAt bool
	Tags             *[]string
	ProjectID        *string
	ParentID         *string
	ETag             *string
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil && u.Priority == nil &&
		u.DueDate == nil && !u.ClearDueDate && u.CompletedAt == nil && !u.ClearCompletedAt &&
		u.Tags == nil && u.ProjectID == nil && u.ParentID == nil && u.ETag == nil
}

// Store defines the interface for task persistence.
type Store interface {
	// List returns tasks matching the filter ordered by due date, then creation time.
	List(ctx context.Context, filter Filter) ([]Task, error)

	// Get returns a task by ID.
	// Returns ErrNotFound if the task does not exist.
	Get(ctx context.Context, id string) (Task, error)

	// Create persists a new task. The store populates ID, Status, Priority,
	// CreatedAt and LastModified when they are unset.
	Create(ctx context.Context, t *Task) error

	// Update applies a partial update and stamps LastModified.
	// Returns ErrNotFound if the task does not exist.
	Update(ctx context.Context, id string, u Update) (Task, error)

	// Delete removes a task. It reports whether a row was removed.
	Delete(ctx context.Context, id string) (bool, error)
}
