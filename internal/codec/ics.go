package codec

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/JohanCodinha/tuido/internal/task"
)

// ProductID identifies calendars produced by tuido.
const ProductID = "-//tuido//tuido//EN"

// untitled is used for imported events that carry no SUMMARY.
const untitled = "Untitled event"

// NewCalendar returns an empty VCALENDAR with the mandatory properties set.
func NewCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	return cal
}

// TaskEvent converts a task with a due date into a VEVENT stamped at stamp.
func TaskEvent(t task.Task, stamp time.Time) *ical.Event {
	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, t.ID)
	ev.Props.SetText(ical.PropSummary, t.Title)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	if t.DueDate != nil {
		ev.Props.SetDateTime(ical.PropDateTimeStart, t.DueDate.UTC())
	}
	if t.Description != "" {
		ev.Props.SetText(ical.PropDescription, t.Description)
	}
	if t.LastModified != nil {
		ev.Props.SetDateTime(ical.PropLastModified, t.LastModified.UTC())
	}
	return ev
}

// EncodeICS writes the tasks that have a due date as one VCALENDAR.
// It returns the number of events written.
func EncodeICS(w io.Writer, tasks []task.Task, stamp time.Time) (int, error) {
	cal := NewCalendar()
	n := 0
	for _, t := range tasks {
		if !t.Syncable() {
			continue
		}
		cal.Children = append(cal.Children, TaskEvent(t, stamp).Component)
		n++
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return 0, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return n, nil
}

// DecodeICS reads every VEVENT from r, across one or more VCALENDAR objects,
// and turns each into a new pending task.
func DecodeICS(r io.Reader) ([]task.Task, error) {
	dec := ical.NewDecoder(r)
	tasks := []task.Task{}

	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}

		for _, ev := range cal.Events() {
			t, err := EventTask(ev)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	}

	return tasks, nil
}

// EventTask maps a VEVENT onto a fresh task: SUMMARY becomes the title,
// DTSTART the due date and DESCRIPTION the description.
func EventTask(ev ical.Event) (task.Task, error) {
	summary, err := ev.Props.Text(ical.PropSummary)
	if err != nil {
		return task.Task{}, fmt.Errorf("invalid SUMMARY: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		summary = untitled
	}

	t := task.New(summary)

	start, err := ev.DateTimeStart(time.Local)
	if err != nil {
		return task.Task{}, fmt.Errorf("invalid DTSTART on %q: %w", summary, err)
	}
	if !start.IsZero() {
		t.DueDate = &start
	}

	desc, err := ev.Props.Text(ical.PropDescription)
	if err != nil {
		return task.Task{}, fmt.Errorf("invalid DESCRIPTION: %w", err)
	}
	t.Description = desc

	return t, nil
}
