// Package md provides markdown formatting and parsing for tasks, so a task can
// be edited as a plain file in a text editor.
package md

import (
	"bufio"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JohanCodinha/tuido/internal/codec"
	"github.com/JohanCodinha/tuido/internal/task"
)

const (
	delimiter          = "---"
	descriptionHeading = "## Description"
	dueLayout          = "2006-01-02 15:04"
)

var (
	// ErrMissingFrontmatter is returned when the document does not start with ---.
	ErrMissingFrontmatter = errors.New("missing frontmatter")
	// ErrIDMismatch is returned when the edited document belongs to another task.
	ErrIDMismatch = errors.New("document id does not match task")
)

// frontmatter holds the task fields stored as YAML above the title.
type frontmatter struct {
	ID         string   `yaml:"id"`
	Status     string   `yaml:"status"`
	Priority   string   `yaml:"priority"`
	Due        string   `yaml:"due"`
	Tags       []string `yaml:"tags,flow"`
	ProjectID  string   `yaml:"project_id,omitempty"`
	ParentID   string   `yaml:"parent_id,omitempty"`
	CreatedAt  string   `yaml:"created_at,omitempty"`
	ModifiedAt string   `yaml:"modified_at,omitempty"`
	ETag       string   `yaml:"etag,omitempty"`
}

// Document is a parsed task markdown file.
type Document struct {
	ID          string
	Status      string
	Priority    string
	Due         string
	Tags        []string
	ProjectID   string
	ParentID    string
	ETag        string
	Title       string
	Description string
}

// ToMarkdown converts a task to markdown with YAML frontmatter.
func ToMarkdown(t task.Task) string {
	fm := frontmatter{
		ID:        t.ID,
		Status:    string(t.Status),
		Priority:  string(t.Priority),
		Tags:      t.Tags,
		ProjectID: t.ProjectID,
		ParentID:  t.ParentID,
		ETag:      t.ETag,
	}
	if fm.Tags == nil {
		fm.Tags = []string{}
	}
	if t.DueDate != nil {
		fm.Due = t.DueDate.Local().Format(dueLayout)
	}
	if !t.CreatedAt.IsZero() {
		fm.CreatedAt = t.CreatedAt.UTC().Format(time.RFC3339)
	}
	if t.LastModified != nil {
		fm.ModifiedAt = t.LastModified.UTC().Format(time.RFC3339)
	}

	// Encoding a struct of strings cannot fail.
	data, _ := yaml.Marshal(fm)

	var b strings.Builder
	b.WriteString(delimiter + "\n")
	b.Write(data)
	b.WriteString(delimiter + "\n\n")
	b.WriteString("# " + t.Title + "\n\n")
	b.WriteString(descriptionHeading + "\n\n")
	if t.Description != "" {
		b.WriteString(strings.TrimRight(t.Description, "\n") + "\n")
	}
	return b.String()
}

// FromMarkdown parses markdown content back into a Document.
func FromMarkdown(content string) (*Document, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(content, delimiter+"\n") {
		return nil, ErrMissingFrontmatter
	}

	rest := strings.TrimPrefix(content, delimiter+"\n")
	end := strings.Index(rest, "\n"+delimiter+"\n")
	var raw, body string
	switch {
	case end >= 0:
		raw, body = rest[:end], rest[end+len(delimiter)+2:]
	case strings.HasSuffix(rest, "\n"+delimiter):
		raw = strings.TrimSuffix(rest, "\n"+delimiter)
	default:
		return nil, fmt.Errorf("%w: no closing ---", ErrMissingFrontmatter)
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(raw), &fm); err != nil {
		return nil, fmt.Errorf("malformed frontmatter: %w", err)
	}

	doc := &Document{
		ID:        fm.ID,
		Status:    fm.Status,
		Priority:  fm.Priority,
		Due:       fm.Due,
		Tags:      fm.Tags,
		ProjectID: fm.ProjectID,
		ParentID:  fm.ParentID,
		ETag:      fm.ETag,
	}
	doc.Title, doc.Description = parseBody(body)
	return doc, nil
}

// parseBody extracts the first "# " heading and the Description section. The
// section ends at the next "## " heading outside a code fence.
func parseBody(body string) (string, string) {
	var title string
	var desc []string
	inDesc, inFence := false, false

	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()

		if inDesc {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inFence = !inFence
			}
			if !inFence && strings.HasPrefix(line, "## ") {
				inDesc = false
				continue
			}
			desc = append(desc, line)
			continue
		}

		switch {
		case title == "" && strings.HasPrefix(line, "# "):
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
		case strings.TrimSpace(line) == descriptionHeading:
			inDesc = true
		}
	}

	return title, strings.Trim(strings.Join(desc, "\n"), "\n")
}

// DetectChanges compares an edited document with the task it was made from
// and returns the update to apply. Read-only fields (created_at, modified_at
// and etag) are ignored.
func DetectChanges(orig task.Task, doc *Document) (task.Update, error) {
	var u task.Update

	if doc.ID != orig.ID {
		return u, fmt.Errorf("%w: %q != %q", ErrIDMismatch, doc.ID, orig.ID)
	}

	if title := strings.TrimSpace(doc.Title); title != orig.Title {
		if title == "" {
			return u, fmt.Errorf("title cannot be empty")
		}
		u.Title = &title
	}

	if desc := strings.TrimRight(doc.Description, "\n"); desc != strings.TrimRight(orig.Description, "\n") {
		u.Description = &desc
	}

	if status, err := task.ParseStatus(doc.Status); err != nil {
		return u, err
	} else if status != orig.Status {
		u.Status = &status
	}

	if prio, err := task.ParsePriority(doc.Priority); err != nil {
		return u, err
	} else if prio != orig.Priority {
		u.Priority = &prio
	}

	switch due := strings.TrimSpace(doc.Due); {
	case due == "" && orig.DueDate != nil:
		u.ClearDueDate = true
	case due != "":
		parsed, err := codec.ParseDate(due)
		if err != nil {
			return u, fmt.Errorf("invalid due %q: %w", due, err)
		}
		if orig.DueDate == nil || !sameMinute(parsed, *orig.DueDate) {
			u.DueDate = &parsed
		}
	}

	tags := cleanTags(doc.Tags)
	if !slices.Equal(tags, cleanTags(orig.Tags)) {
		u.Tags = &tags
	}

	if doc.ProjectID != orig.ProjectID {
		u.ProjectID = &doc.ProjectID
	}
	if doc.ParentID != orig.ParentID {
		u.ParentID = &doc.ParentID
	}

	return u, nil
}

// sameMinute compares due dates at the precision the document shows.
func sameMinute(a, b time.Time) bool {
	return a.Truncate(time.Minute).Equal(b.Truncate(time.Minute))
}

func cleanTags(tags []string) []string {
	out := []string{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" && !slices.Contains(out, tag) {
			out = append(out, tag)
		}
	}
	return out
}
