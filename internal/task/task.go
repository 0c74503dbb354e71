// Package task defines the task domain model and the use cases built on top of it.
package task

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDeferred   Status = "deferred"
	StatusCanceled   Status = "canceled"
	StatusImportant  Status = "important"
	StatusQuestion   Status = "question"
	StatusInfo       Status = "info"
	StatusPartial    Status = "partial"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusDeferred,
	StatusCanceled,
	StatusImportant,
	StatusQuestion,
	StatusInfo,
	StatusPartial,
}

// ParseStatus converts a string into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Statuses, st) {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every valid priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// ParsePriority converts a string into a Priority. An empty string yields PriorityMedium.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityMedium, nil
	}
	p := Priority(s)
	if slices.Contains(Priorities, p) {
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

// Task is a single unit of work tracked locally.
type Task struct {
	ID           string
	Title        string
	Description  string
	Status       Status
	Priority     Priority
	DueDate      *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	Tags         []string
	ProjectID    string
	ParentID     string
	ETag         string
	LastModified *time.Time
	Metadata     map[string]string
}

// New returns a pending, medium priority task with a fresh id.
func New(title string) Task {
	return Task{
		ID:        NewID(),
		Title:     title,
		Status:    StatusPending,
		Priority:  PriorityMedium,
		CreatedAt: time.Now().UTC(),
	}
}

// NewID returns a random task identifier.
func NewID() string {
	return uuid.NewString()
}

// Syncable reports whether the task can be represented on a remote calendar.
func (t Task) Syncable() bool {
	return t.DueDate != nil
}

// IsOverdue reports whether the due date has passed and the task is still open.
func (t Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	if t.Status == StatusCompleted || t.Status == StatusCanceled {
		return false
	}
	return now.After(*t.DueDate)
}

// HasTag reports whether the task carries tag.
func (t Task) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// AddTag appends tag unless already present.
func (t *Task) AddTag(tag string) {
	if tag == "" || t.HasTag(tag) {
		return
	}
	t.Tags = append(t.Tags, tag)
}

// RemoveTag drops tag. Missing tags are ignored.
func (t *Task) RemoveTag(tag string) {
	t.Tags = slices.DeleteFunc(t.Tags, func(s string) bool { return s == tag })
}

// Complete marks the task completed at now.
func (t *Task) Complete(now time.Time) {
	t.Status = StatusCompleted
	t.CompletedAt = &now
}

// Reopen moves the task back to pending and clears the completion time.
func (t *Task) Reopen() {
	t.Status = StatusPending
	t.CompletedAt = nil
}

// SetStatus changes the status and keeps CompletedAt consistent with it.
func (t *Task) SetStatus(s Status, now time.Time) {
	t.Status = s
	switch {
	case s == StatusCompleted && t.CompletedAt == nil:
		t.CompletedAt = &now
	case s != StatusCompleted:
		t.CompletedAt = nil
	}
}
