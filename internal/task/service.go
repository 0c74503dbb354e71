package task

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Service implements the task use cases on top of a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a Service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// CreateParams holds the fields accepted when creating a task.
type CreateParams struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    Priority
	Tags        []string
	ProjectID   string
	ParentID    string
}

// Create stores a new pending task.
func (s *Service) Create(ctx context.Context, p CreateParams) (Task, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return Task{}, fmt.Errorf("title is required")
	}

	t := New(title)
	t.Description = p.Description
	t.DueDate = p.DueDate
	if p.Priority != "" {
		t.Priority = p.Priority
	}
	for _, tag := range p.Tags {
		t.AddTag(strings.TrimSpace(tag))
	}
	t.ProjectID = p.ProjectID
	t.ParentID = p.ParentID

	if err := s.store.Create(ctx, &t); err != nil {
		return Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	return t, nil
}

// Get returns a task by id.
func (s *Service) Get(ctx context.Context, id string) (Task, error) {
	return s.store.Get(ctx, id)
}

// List returns the tasks matching filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Task, error) {
	return s.store.List(ctx, filter)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id string, u Update) (Task, error) {
	if u.Status != nil {
		t, err := s.store.Get(ctx, id)
		if err != nil {
			return Task{}, err
		}
		// Route status changes through SetStatus so completed_at stays consistent.
		t.SetStatus(*u.Status, s.now())
		if t.CompletedAt != nil {
			u.CompletedAt = t.CompletedAt
		} else {
			u.ClearCompletedAt = true
		}
	}
	return s.store.Update(ctx, id, u)
}

// Delete removes a task. Returns ErrNotFound if nothing was removed.
func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Complete marks a task completed.
func (s *Service) Complete(ctx context.Context, id string) (Task, error) {
	return s.SetStatus(ctx, id, StatusCompleted)
}

// Reopen moves a task back to pending.
func (s *Service) Reopen(ctx context.Context, id string) (Task, error) {
	return s.SetStatus(ctx, id, StatusPending)
}

// SetStatus changes a task status, recording or clearing the completion time.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (Task, error) {
	return s.Update(ctx, id, Update{Status: &status})
}

// AddTag attaches tag to a task. Adding an existing tag is a no-op.
func (s *Service) AddTag(ctx context.Context, id, tag string) (Task, error) {
	return s.editTags(ctx, id, func(t *Task) { t.AddTag(strings.TrimSpace(tag)) })
}

// RemoveTag detaches tag from a task.
func (s *Service) RemoveTag(ctx context.Context, id, tag string) (Task, error) {
	return s.editTags(ctx, id, func(t *Task) { t.RemoveTag(strings.TrimSpace(tag)) })
}

func (s *Service) editTags(ctx context.Context, id string, edit func(*Task)) (Task, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}
	before := len(t.Tags)
	edit(&t)
	if len(t.Tags) == before {
		return t, nil
	}
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return s.store.Update(ctx, id, Update{Tags: &tags})
}

// Overdue returns open tasks whose due date has passed.
func (s *Service) Overdue(ctx context.Context) ([]Task, error) {
	now := s.now()
	return s.store.List(ctx, Filter{DueBefore: &now, OpenOnly: true})
}

// Search returns tasks whose title or description contains query.
func (s *Service) Search(ctx context.Context, query string) ([]Task, error) {
	return s.store.List(ctx, Filter{Search: query})
}
