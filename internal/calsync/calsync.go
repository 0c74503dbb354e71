// Package calsync reconciles the local task list with a remote calendar.
//
// A sync cycle runs three phases in order: fetch the remote events inside a
// window, push local tasks that carry a due date, and diff local ids against the
// fetched uids to report remote deletions. The package never touches the task
// store; callers decide what to persist from the returned Result.
package calsync

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidWindow is returned when the window start is after its end.
	ErrInvalidWindow = errors.New("invalid sync window: start is after end")
	// ErrEventNotFound is returned by Calendar.EventByUID when no event has the uid.
	ErrEventNotFound = errors.New("event not found")
	// ErrCalendarNotFound is returned when the configured target calendar does not exist.
	ErrCalendarNotFound = errors.New("calendar not found")
	// ErrSyncInProgress is returned when another process holds the sync lock.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// Client is an authenticated connection to a calendar service.
type Client interface {
	Calendars(ctx context.Context) ([]Calendar, error)
}

// Calendar is a single remote calendar collection.
type Calendar interface {
	Name() string
	// Search returns the events overlapping [start, end].
	Search(ctx context.Context, start, end time.Time) ([]Event, error)
	// EventByUID returns ErrEventNotFound when no event carries uid.
	EventByUID(ctx context.Context, uid string) (Event, error)
	CreateEvent(ctx context.Context, uid, summary string, start, stamp time.Time) error
}

// Event is a remote calendar event.
type Event interface {
	UID() string
	Summary() string
	Start() time.Time
	End() time.Time
	ETag() string
	LastModified() time.Time
	Update(ctx context.Context, summary string, start, stamp time.Time) error
}

// Change is a remote event observed during a fetch. Zero times mean the
// property was absent; an empty UID never matches a local task.
type Change struct {
	UID          string
	Summary      string
	Calendar     string
	Start        time.Time
	End          time.Time
	ETag         string
	LastModified time.Time
}

func changeFromEvent(calendar string, ev Event) Change {
	return Change{
		UID:          ev.UID(),
		Summary:      ev.Summary(),
		Calendar:     calendar,
		Start:        ev.Start(),
		End:          ev.End(),
		ETag:         ev.ETag(),
		LastModified: ev.LastModified(),
	}
}

// NullClient is a Client without calendars. Syncing against it is a no-op.
type NullClient struct{}

// Calendars returns no calendars.
func (NullClient) Calendars(context.Context) ([]Calendar, error) {
	return nil, nil
}
