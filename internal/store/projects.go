package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JohanCodinha/tuido/internal/task"
)

// ErrProjectNotFound is returned when a project does not exist.
var ErrProjectNotFound = errors.New("project not found")

// DefaultProjectColor is used when a project is created without a color.
const DefaultProjectColor = "blue"

// Project groups tasks. Projects nest through ParentID.
type Project struct {
	ID          string
	Name        string
	Description string
	Color       string
	CreatedAt   time.Time
	ParentID    string
	Metadata    map[string]string
}

// IsRoot reports whether the project has no parent.
func (p Project) IsRoot() bool {
	return p.ParentID == ""
}

// ProjectStore persists projects in SQLite.
type ProjectStore struct {
	db *DB
}

// NewProjectStore creates a new SQLite-backed project store.
func NewProjectStore(db *DB) *ProjectStore {
	return &ProjectStore{db: db}
}

const projectColumns = "id, name, description, color, created_at, parent_id, metadata"

// Create inserts a new project, assigning an ID, color and creation time when unset.
func (s *ProjectStore) Create(ctx context.Context, p *Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("project name is required")
	}
	if p.ID == "" {
		p.ID = task.NewID()
	}
	if p.Color == "" {
		p.Color = DefaultProjectColor
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	var metadata sql.NullString
	if len(p.Metadata) > 0 {
		data, err := json.Marshal(p.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID,
		p.Name,
		nullString(p.Description),
		p.Color,
		formatTime(p.CreatedAt),
		nullString(p.ParentID),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	return nil
}

// Get returns a project by ID. Returns ErrProjectNotFound if not found.
func (s *ProjectStore) Get(ctx context.Context, id string) (Project, error) {
	row := s.db.conn.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	p, err := scanProject(row)
	if IsNotFoundError(err) {
		return Project{}, ErrProjectNotFound
	}
	return p, err
}

// FindByName returns the first project with the given name, case-insensitive.
func (s *ProjectStore) FindByName(ctx context.Context, name string) (Project, error) {
	row := s.db.conn.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE name = ? COLLATE NOCASE ORDER BY created_at LIMIT 1", name)
	p, err := scanProject(row)
	if IsNotFoundError(err) {
		return Project{}, ErrProjectNotFound
	}
	return p, err
}

// List returns every project by name.
func (s *ProjectStore) List(ctx context.Context) ([]Project, error) {
	return s.query(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY name ASC")
}

// Roots returns projects without a parent.
func (s *ProjectStore) Roots(ctx context.Context) ([]Project, error) {
	return s.query(ctx, "SELECT "+projectColumns+" FROM projects WHERE parent_id IS NULL ORDER BY name ASC")
}

// Subprojects returns the direct children of parentID.
func (s *ProjectStore) Subprojects(ctx context.Context, parentID string) ([]Project, error) {
	return s.query(ctx, "SELECT "+projectColumns+" FROM projects WHERE parent_id = ? ORDER BY name ASC", parentID)
}

// Delete removes a project and detaches its tasks and subprojects.
func (s *ProjectStore) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete project: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, "UPDATE tasks SET project_id = NULL WHERE project_id = ?", id); err != nil {
		return false, fmt.Errorf("failed to detach tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE projects SET parent_id = NULL WHERE parent_id = ?", id); err != nil {
		return false, fmt.Errorf("failed to detach subprojects: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

func (s *ProjectStore) query(ctx context.Context, query string, args ...any) ([]Project, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return projects, nil
}

func scanProject(s scanner) (Project, error) {
	var p Project
	var createdAt string
	var description, parentID, metadata sql.NullString

	if err := s.Scan(&p.ID, &p.Name, &description, &p.Color, &createdAt, &parentID, &metadata); err != nil {
		return Project{}, fmt.Errorf("failed to scan project: %w", err)
	}

	p.Description = description.String
	p.ParentID = parentID.String

	created, err := parseTime(sql.NullString{String: createdAt, Valid: true})
	if err != nil {
		return Project{}, err
	}
	if created != nil {
		p.CreatedAt = *created
	}

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &p.Metadata); err != nil {
			return Project{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return p, nil
}
