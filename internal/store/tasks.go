package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/JohanCodinha/tuido/internal/task"
)

// TaskStore implements task.Store using SQLite.
type TaskStore struct {
	db  *DB
	now func() time.Time
}

var _ task.Store = (*TaskStore)(nil)

// NewTaskStore creates a new SQLite-backed task store.
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const taskColumns = `id, title, description, status, priority, due_date, completed_at,
       created_at, tags, project_id, parent_id, etag, last_modified, metadata`

// List returns tasks matching the filter, earliest due date first, undated tasks last.
func (s *TaskStore) List(ctx context.Context, f task.Filter) ([]task.Task, error) {
	var where []string
	var args []any

	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(tasks.tags) WHERE json_each.value = ?)")
		args = append(args, f.Tag)
	}
	if f.DueBefore != nil {
		where = append(where, "due_date IS NOT NULL AND due_date < ?")
		args = append(args, formatTime(*f.DueBefore))
	}
	if f.Search != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	if f.OpenOnly {
		where = append(where, "status NOT IN (?, ?)")
		args = append(args, string(task.StatusCompleted), string(task.StatusCanceled))
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY due_date IS NULL, due_date ASC, created_at ASC"

	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tasks, nil
}

// Get returns a task by ID. Returns task.ErrNotFound if not found.
func (s *TaskStore) Get(ctx context.Context, id string) (task.Task, error) {
	row := s.db.conn.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if IsNotFoundError(err) {
		return task.Task{}, task.ErrNotFound
	}
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

// Create inserts a new task, filling in defaults for unset fields.
func (s *TaskStore) Create(ctx context.Context, t *task.Task) error {
	now := s.now()
	if t.ID == "" {
		t.ID = task.NewID()
	}
	if t.Status == "" {
		t.Status = task.StatusPending
	}
	if t.Priority == "" {
		t.Priority = task.PriorityMedium
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.LastModified == nil {
		t.LastModified = &now
	}

	args, err := taskArgs(t)
	if err != nil {
		return err
	}

	_, err = s.db.conn.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// Upsert inserts t or replaces every column of an existing task with the same ID.
func (s *TaskStore) Upsert(ctx context.Context, t *task.Task) error {
	if t.ID == "" {
		return s.Create(ctx, t)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	if t.Status == "" {
		t.Status = task.StatusPending
	}
	if t.Priority == "" {
		t.Priority = task.PriorityMedium
	}
	if t.LastModified == nil {
		now := s.now()
		t.LastModified = &now
	}

	args, err := taskArgs(t)
	if err != nil {
		return err
	}

	_, err = s.db.conn.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			priority = excluded.priority,
			due_date = excluded.due_date,
			completed_at = excluded.completed_at,
			tags = excluded.tags,
			project_id = excluded.project_id,
			parent_id = excluded.parent_id,
			etag = excluded.etag,
			last_modified = excluded.last_modified,
			metadata = excluded.metadata
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert task: %w", err)
	}

	return nil
}

// Update applies the non-nil fields of u and stamps last_modified with the current time.
func (s *TaskStore) Update(ctx context.Context, id string, u task.Update) (task.Task, error) {
	var setClauses []string
	var args []any

	if u.Title != nil {
		setClauses = append(setClauses, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Description != nil {
		setClauses = append(setClauses, "description = ?")
		args = append(args, nullString(*u.Description))
	}
	if u.Status != nil {
		setClauses = append(setClauses, "status = ?")
		args = append(args, string(*u.Status))
	}
	if u.Priority != nil {
		setClauses = append(setClauses, "priority = ?")
		args = append(args, string(*u.Priority))
	}
	switch {
	case u.DueDate != nil:
		setClauses = append(setClauses, "due_date = ?")
		args = append(args, nullTime(u.DueDate))
	case u.ClearDueDate:
		setClauses = append(setClauses, "due_date = NULL")
	}
	switch {
	case u.CompletedAt != nil:
		setClauses = append(setClauses, "completed_at = ?")
		args = append(args, nullTime(u.CompletedAt))
	case u.ClearCompletedAt:
		setClauses = append(setClauses, "completed_at = NULL")
	}
	if u.Tags != nil {
		tagsJSON, err := json.Marshal(*u.Tags)
		if err != nil {
			return task.Task{}, fmt.Errorf("failed to marshal tags: %w", err)
		}
		setClauses = append(setClauses, "tags = ?")
		args = append(args, string(tagsJSON))
	}
	if u.ProjectID != nil {
		setClauses = append(setClauses, "project_id = ?")
		args = append(args, nullString(*u.ProjectID))
	}
	if u.ParentID != nil {
		setClauses = append(setClauses, "parent_id = ?")
		args = append(args, nullString(*u.ParentID))
	}
	if u.ETag != nil {
		setClauses = append(setClauses, "etag = ?")
		args = append(args, nullString(*u.ETag))
	}

	// Always stamp last_modified so the sync engine sees the local edit.
	setClauses = append(setClauses, "last_modified = ?")
	args = append(args, formatTime(s.now()), id)

	query := fmt.Sprintf(`
		UPDATE tasks
		SET %s
		WHERE id = ?
	`, strings.Join(setClauses, ", "))

	result, err := s.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to update task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return task.Task{}, task.ErrNotFound
	}

	return s.Get(ctx, id)
}

// Delete removes a task by ID and reports whether it existed.
func (s *TaskStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.conn.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// SetETag records the remote ETag of a synced task. It leaves last_modified
// alone so the next sync does not see a local edit.
func (s *TaskStore) SetETag(ctx context.Context, id, etag string) error {
	result, err := s.db.conn.ExecContext(ctx, "UPDATE tasks SET etag = ? WHERE id = ?", nullString(etag), id)
	if err != nil {
		return fmt.Errorf("failed to set etag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return task.ErrNotFound
	}
	return nil
}

// TagCount is a tag name with the number of tasks carrying it.
type TagCount struct {
	Name  string
	Count int
}

// TagCounts returns every tag in use, alphabetically.
func (s *TaskStore) TagCounts(ctx context.Context) ([]TagCount, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT json_each.value, COUNT(*)
		FROM tasks, json_each(tasks.tags)
		GROUP BY json_each.value
		ORDER BY json_each.value ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	counts := []TagCount{}
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		counts = append(counts, tc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return counts, nil
}

func taskArgs(t *task.Task) ([]any, error) {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	var metadata sql.NullString
	if len(t.Metadata) > 0 {
		data, err := json.Marshal(t.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	return []any{
		t.ID,
		t.Title,
		nullString(t.Description),
		string(t.Status),
		string(t.Priority),
		nullTime(t.DueDate),
		nullTime(t.CompletedAt),
		formatTime(t.CreatedAt),
		string(tagsJSON),
		nullString(t.ProjectID),
		nullString(t.ParentID),
		nullString(t.ETag),
		nullTime(t.LastModified),
		metadata,
	}, nil
}

// scanTask scans a row into a task.Task. A wrapped sql.ErrNoRows still satisfies IsNotFoundError.
func scanTask(s scanner) (task.Task, error) {
	var t task.Task
	var status, priority, createdAt string
	var description, dueDate, completedAt, tags, projectID, parentID, etag, lastModified, metadata sql.NullString

	err := s.Scan(
		&t.ID,
		&t.Title,
		&description,
		&status,
		&priority,
		&dueDate,
		&completedAt,
		&createdAt,
		&tags,
		&projectID,
		&parentID,
		&etag,
		&lastModified,
		&metadata,
	)
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to scan task: %w", err)
	}

	t.Description = description.String
	t.Status = task.Status(status)
	t.Priority = task.Priority(priority)
	t.ProjectID = projectID.String
	t.ParentID = parentID.String
	t.ETag = etag.String

	created, err := parseTime(sql.NullString{String: createdAt, Valid: true})
	if err != nil {
		return task.Task{}, err
	}
	if created != nil {
		t.CreatedAt = *created
	}
	if t.DueDate, err = parseTime(dueDate); err != nil {
		return task.Task{}, err
	}
	if t.CompletedAt, err = parseTime(completedAt); err != nil {
		return task.Task{}, err
	}
	if t.LastModified, err = parseTime(lastModified); err != nil {
		return task.Task{}, err
	}

	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &t.Tags); err != nil {
			return task.Task{}, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &t.Metadata); err != nil {
			return task.Task{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return t, nil
}
