package caldav

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"github.com/JohanCodinha/tuido/internal/calsync"
)

// Event is a VEVENT stored in a CalDAV calendar object.
type Event struct {
	client *Client
	path   string
	etag   string

	data   *ical.Calendar
	vevent *ical.Component

	uid          string
	summary      string
	start        time.Time
	end          time.Time
	lastModified time.Time
}

var _ calsync.Event = (*Event)(nil)

func (e *Event) UID() string             { return e.uid }
func (e *Event) Summary() string         { return e.summary }
func (e *Event) Start() time.Time        { return e.start }
func (e *Event) End() time.Time          { return e.end }
func (e *Event) ETag() string            { return e.etag }
func (e *Event) LastModified() time.Time { return e.lastModified }

// Path returns the calendar object path on the server.
func (e *Event) Path() string {
	return e.path
}

// parse reads the properties into the event. Fields that fail to parse are
// left zero and reported together.
func (e *Event) parse() error {
	ev := ical.Event{Component: e.vevent}
	var errs []error

	var err error
	if e.uid, err = ev.Props.Text(ical.PropUID); err != nil {
		errs = append(errs, fmt.Errorf("UID: %w", err))
	}
	if e.summary, err = ev.Props.Text(ical.PropSummary); err != nil {
		errs = append(errs, fmt.Errorf("SUMMARY: %w", err))
	}
	if e.start, err = ev.DateTimeStart(time.Local); err != nil {
		errs = append(errs, fmt.Errorf("DTSTART: %w", err))
	}
	if e.end, err = ev.DateTimeEnd(time.Local); err != nil {
		errs = append(errs, fmt.Errorf("DTEND: %w", err))
	}
	if e.lastModified, err = ev.Props.DateTime(ical.PropLastModified, time.UTC); err != nil {
		errs = append(errs, fmt.Errorf("LAST-MODIFIED: %w", err))
	}

	return errors.Join(errs...)
}

// Update rewrites the summary and start of the event, keeps its duration and
// stamps DTSTAMP and LAST-MODIFIED, then stores the object back in place.
func (e *Event) Update(ctx context.Context, summary string, start, stamp time.Time) error {
	props := e.vevent.Props

	duration := e.end.Sub(e.start)
	shiftEnd := props.Get(ical.PropDateTimeEnd) != nil && !e.start.IsZero() && duration >= 0

	props.SetText(ical.PropSummary, summary)
	props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	if shiftEnd {
		props.SetDateTime(ical.PropDateTimeEnd, start.Add(duration).UTC())
	}
	props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	props.SetDateTime(ical.PropLastModified, stamp.UTC())

	obj, err := e.client.dav.PutCalendarObject(ctx, e.path, e.data)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	e.summary = summary
	e.start = start
	if shiftEnd {
		e.end = start.Add(duration)
	}
	e.lastModified = stamp.UTC()
	if obj != nil && obj.ETag != "" {
		e.etag = obj.ETag
	}
	return nil
}
