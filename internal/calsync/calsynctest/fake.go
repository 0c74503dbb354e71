// Package calsynctest provides an in-memory calsync.Client for tests.
package calsynctest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JohanCodinha/tuido/internal/calsync"
)

// EventData is the stored state of a fake remote event.
type EventData struct {
	UID          string
	Summary      string
	Start        time.Time
	End          time.Time
	ETag         string
	LastModified time.Time
}

// Client is a fake calendar service holding named calendars.
type Client struct {
	mu        sync.Mutex
	calendars []*Calendar
	fail      failures
	// CalendarsCalls counts Calendars invocations.
	CalendarsCalls int
}

var _ calsync.Client = (*Client)(nil)

// NewClient creates a Client with one empty calendar per name.
func NewClient(names ...string) *Client {
	c := &Client{}
	for _, name := range names {
		c.calendars = append(c.calendars, newCalendar(name))
	}
	return c
}

// Calendars returns every calendar in creation order.
func (c *Client) Calendars(context.Context) ([]calsync.Calendar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CalendarsCalls++
	if err := c.fail.next(); err != nil {
		return nil, err
	}

	out := make([]calsync.Calendar, len(c.calendars))
	for i, cal := range c.calendars {
		out[i] = cal
	}
	return out, nil
}

// Calendar returns the calendar with the given name, or nil.
func (c *Client) Calendar(name string) *Calendar {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cal := range c.calendars {
		if cal.name == name {
			return cal
		}
	}
	return nil
}

// FailCalendars makes the next n Calendars calls return err.
func (c *Client) FailCalendars(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = failures{n: n, err: err}
}

// Calendar is a fake calendar collection.
type Calendar struct {
	name string

	mu     sync.Mutex
	events []*EventData
	seq    int

	searchFail failures
	lookupErr  map[string]error
	createErr  map[string]error
	updateErr  map[string]error

	// Write counters.
	Creates int
	Updates int
	// Searches counts Search invocations.
	Searches int
}

var _ calsync.Calendar = (*Calendar)(nil)

func newCalendar(name string) *Calendar {
	c := &Calendar{name: name}
	c.Reset()
	return c
}

// Name returns the calendar name.
func (c *Calendar) Name() string {
	return c.name
}

// AddEvent stores an event. An empty ETag is filled in.
func (c *Calendar) AddEvent(e EventData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.ETag == "" {
		e.ETag = c.nextETag()
	}
	c.events = append(c.events, &e)
}

// GetEvent returns a copy of the event with uid.
func (c *Calendar) GetEvent(uid string) (EventData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.find(uid); e != nil {
		return *e, true
	}
	return EventData{}, false
}

// RemoveEvent deletes the event with uid, as a remote user would.
func (c *Calendar) RemoveEvent(uid string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.events {
		if e.UID == uid {
			c.events = append(c.events[:i], c.events[i+1:]...)
			return
		}
	}
}

// Events returns copies of all stored events.
func (c *Calendar) Events() []EventData {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]EventData, len(c.events))
	for i, e := range c.events {
		out[i] = *e
	}
	return out
}

// Writes returns Creates + Updates.
func (c *Calendar) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Creates + c.Updates
}

// Reset clears events, counters and injected failures.
func (c *Calendar) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = nil
	c.seq = 0
	c.Creates, c.Updates, c.Searches = 0, 0, 0
	c.searchFail = failures{}
	c.lookupErr = map[string]error{}
	c.createErr = map[string]error{}
	c.updateErr = map[string]error{}
}

// FailSearch makes the next n Search calls return err.
func (c *Calendar) FailSearch(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchFail = failures{n: n, err: err}
}

// FailLookup makes EventByUID(uid) return err.
func (c *Calendar) FailLookup(uid string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookupErr[uid] = err
}

// FailCreate makes CreateEvent for uid return err.
func (c *Calendar) FailCreate(uid string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createErr[uid] = err
}

// FailUpdate makes Event.Update for uid return err.
func (c *Calendar) FailUpdate(uid string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateErr[uid] = err
}

// Search returns events whose start lies in [start, end].
func (c *Calendar) Search(ctx context.Context, start, end time.Time) ([]calsync.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Searches++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.searchFail.next(); err != nil {
		return nil, err
	}

	out := []calsync.Event{}
	for _, e := range c.events {
		if e.Start.Before(start) || e.Start.After(end) {
			continue
		}
		out = append(out, &Event{cal: c, data: *e})
	}
	return out, nil
}

// EventByUID returns calsync.ErrEventNotFound when no event has uid.
func (c *Calendar) EventByUID(ctx context.Context, uid string) (calsync.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := c.lookupErr[uid]; ok {
		return nil, err
	}
	if uid == "" {
		return nil, calsync.ErrEventNotFound
	}
	e := c.find(uid)
	if e == nil {
		return nil, calsync.ErrEventNotFound
	}
	return &Event{cal: c, data: *e}, nil
}

// CreateEvent stores a new one-hour event.
func (c *Calendar) CreateEvent(ctx context.Context, uid, summary string, start, stamp time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := c.createErr[uid]; ok {
		return err
	}
	if c.find(uid) != nil {
		return fmt.Errorf("event %s already exists", uid)
	}

	c.Creates++
	c.events = append(c.events, &EventData{
		UID:          uid,
		Summary:      summary,
		Start:        start,
		End:          start.Add(time.Hour),
		ETag:         c.nextETag(),
		LastModified: stamp,
	})
	return nil
}

func (c *Calendar) find(uid string) *EventData {
	if uid == "" {
		return nil
	}
	for _, e := range c.events {
		if e.UID == uid {
			return e
		}
	}
	return nil
}

func (c *Calendar) nextETag() string {
	c.seq++
	return fmt.Sprintf(`"%s-%d"`, c.name, c.seq)
}

// Event is a snapshot of a fake remote event.
type Event struct {
	cal  *Calendar
	data EventData
}

var _ calsync.Event = (*Event)(nil)

func (e *Event) UID() string             { return e.data.UID }
func (e *Event) Summary() string         { return e.data.Summary }
func (e *Event) Start() time.Time        { return e.data.Start }
func (e *Event) End() time.Time          { return e.data.End }
func (e *Event) ETag() string            { return e.data.ETag }
func (e *Event) LastModified() time.Time { return e.data.LastModified }

// Update writes summary, start and stamp back to the calendar.
func (e *Event) Update(ctx context.Context, summary string, start, stamp time.Time) error {
	c := e.cal
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := c.updateErr[e.data.UID]; ok {
		return err
	}
	stored := c.find(e.data.UID)
	if stored == nil {
		return calsync.ErrEventNotFound
	}

	c.Updates++
	duration := stored.End.Sub(stored.Start)
	stored.Summary = summary
	stored.Start = start
	stored.End = start.Add(duration)
	stored.LastModified = stamp
	stored.ETag = c.nextETag()
	e.data = *stored
	return nil
}

type failures struct {
	n   int
	err error
}

func (f *failures) next() error {
	if f.n <= 0 {
		return nil
	}
	f.n--
	return f.err
}
