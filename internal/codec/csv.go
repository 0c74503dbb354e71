// Package codec converts tasks to and from CSV and iCalendar files.
package codec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JohanCodinha/tuido/internal/task"
)

// CSVHeader is the column order written by WriteCSV and expected by ReadCSV.
var CSVHeader = []string{"id", "title", "description", "status", "due_date", "priority", "tags", "project_id", "parent_id"}

// WriteCSV writes tasks as CSV with a header row.
func WriteCSV(w io.Writer, tasks []task.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, t := range tasks {
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Format(time.RFC3339)
		}
		record := []string{
			t.ID,
			t.Title,
			t.Description,
			string(t.Status),
			due,
			string(t.Priority),
			strings.Join(t.Tags, ","),
			t.ProjectID,
			t.ParentID,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write task %s: %w", t.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses tasks from CSV. Columns are located by header name, so extra or
// reordered columns are tolerated; only "title" is required. Rows without an id
// get a fresh one.
func ReadCSV(r io.Reader) ([]task.Task, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []task.Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["title"]; !ok {
		return nil, fmt.Errorf("csv is missing the title column")
	}

	tasks := []task.Task{}
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		t, err := taskFromRecord(get)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		tasks = append(tasks, t)
	}

	return tasks, nil
}

func taskFromRecord(get func(string) string) (task.Task, error) {
	title := get("title")
	if title == "" {
		return task.Task{}, fmt.Errorf("title is empty")
	}

	t := task.New(title)
	if id := get("id"); id != "" {
		t.ID = id
	}
	t.Description = get("description")
	t.ProjectID = get("project_id")
	t.ParentID = get("parent_id")

	if s := get("status"); s != "" {
		st, err := task.ParseStatus(s)
		if err != nil {
			return task.Task{}, err
		}
		t.Status = st
	}

	p, err := task.ParsePriority(get("priority"))
	if err != nil {
		return task.Task{}, err
	}
	t.Priority = p

	if due := get("due_date"); due != "" {
		d, err := ParseDate(due)
		if err != nil {
			return task.Task{}, fmt.Errorf("invalid due_date %q: %w", due, err)
		}
		t.DueDate = &d
	}

	if tags := get("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			t.AddTag(strings.TrimSpace(tag))
		}
	}

	return t, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate accepts RFC3339 and the common ISO-8601 shapes. Values without an
// offset are read in the local zone.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}
