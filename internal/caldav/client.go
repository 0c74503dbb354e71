// Package caldav adapts a CalDAV server to the calsync interfaces.
package caldav

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	dav "github.com/emersion/go-webdav/caldav"
	"github.com/rs/zerolog"

	"github.com/JohanCodinha/tuido/internal/calsync"
	"github.com/JohanCodinha/tuido/internal/codec"
	"github.com/JohanCodinha/tuido/internal/logger"
	"github.com/JohanCodinha/tuido/internal/task"
)

const defaultTimeout = 30 * time.Second

// Options configures the connection to a CalDAV server.
type Options struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

// davClient is the subset of the go-webdav CalDAV client used here.
type davClient interface {
	FindCurrentUserPrincipal(ctx context.Context) (string, error)
	FindCalendarHomeSet(ctx context.Context, principal string) (string, error)
	FindCalendars(ctx context.Context, calendarHomeSet string) ([]dav.Calendar, error)
	QueryCalendar(ctx context.Context, calendar string, query *dav.CalendarQuery) ([]dav.CalendarObject, error)
	PutCalendarObject(ctx context.Context, path string, cal *ical.Calendar) (*dav.CalendarObject, error)
}

// Client is a calsync.Client backed by a CalDAV server.
type Client struct {
	dav davClient
	log zerolog.Logger
}

var _ calsync.Client = (*Client)(nil)

// New creates a CalDAV client. No request is made until Calendars is called.
func New(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.New("caldav url is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var hc webdav.HTTPClient = &http.Client{Timeout: timeout}
	if opts.Username != "" {
		hc = webdav.HTTPClientWithBasicAuth(hc, opts.Username, opts.Password)
	}

	c, err := dav.NewClient(hc, opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	return newClient(c), nil
}

func newClient(c davClient) *Client {
	return &Client{dav: c, log: logger.Component("caldav")}
}

// Calendars discovers the event calendars of the authenticated user.
func (c *Client) Calendars(ctx context.Context) ([]calsync.Calendar, error) {
	principal, err := c.dav.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find principal: %w", err)
	}

	home, err := c.dav.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar home set: %w", err)
	}

	found, err := c.dav.FindCalendars(ctx, home)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	calendars := make([]calsync.Calendar, 0, len(found))
	for _, cal := range found {
		if len(cal.SupportedComponentSet) > 0 && !slices.Contains(cal.SupportedComponentSet, "VEVENT") {
			c.log.Debug().Str("path", cal.Path).Msg("skipping calendar without events")
			continue
		}
		name := cal.Name
		if name == "" {
			name = path.Base(strings.TrimSuffix(cal.Path, "/"))
		}
		calendars = append(calendars, &Calendar{client: c, path: cal.Path, name: name})
	}

	return calendars, nil
}

// Calendar is one CalDAV calendar collection.
type Calendar struct {
	client *Client
	path   string
	name   string
}

// Name returns the display name of the calendar.
func (c *Calendar) Name() string {
	return c.name
}

// Path returns the collection path on the server.
func (c *Calendar) Path() string {
	return c.path
}

// Search returns the events overlapping [start, end].
func (c *Calendar) Search(ctx context.Context, start, end time.Time) ([]calsync.Event, error) {
	objects, err := c.client.dav.QueryCalendar(ctx, c.path, rangeQuery(start, end))
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	events := make([]calsync.Event, 0, len(objects))
	for _, obj := range objects {
		ev, ok := c.event(obj)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// EventByUID returns calsync.ErrEventNotFound when no event carries uid.
func (c *Calendar) EventByUID(ctx context.Context, uid string) (calsync.Event, error) {
	objects, err := c.client.dav.QueryCalendar(ctx, c.path, uidQuery(uid))
	if err != nil {
		return nil, fmt.Errorf("failed to look up event: %w", err)
	}

	// text-match is a substring match.
	for _, obj := range objects {
		ev, ok := c.event(obj)
		if ok && ev.UID() == uid {
			return ev, nil
		}
	}
	return nil, calsync.ErrEventNotFound
}

// CreateEvent stores a new event at <calendar>/<uid>.ics.
func (c *Calendar) CreateEvent(ctx context.Context, uid, summary string, start, stamp time.Time) error {
	t := task.Task{ID: uid, Title: summary, DueDate: &start, LastModified: &stamp}

	cal := codec.NewCalendar()
	cal.Children = append(cal.Children, codec.TaskEvent(t, stamp).Component)

	if _, err := c.client.dav.PutCalendarObject(ctx, objectPath(c.path, uid), cal); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (c *Calendar) event(obj dav.CalendarObject) (*Event, bool) {
	if obj.Data == nil {
		return nil, false
	}
	vevent := primaryEvent(obj.Data)
	if vevent == nil {
		return nil, false
	}

	ev := &Event{client: c.client, path: obj.Path, etag: obj.ETag, data: obj.Data, vevent: vevent}
	if err := ev.parse(); err != nil {
		c.client.log.Warn().Err(err).Str("path", obj.Path).Msg("ignoring malformed event properties")
	}
	return ev, true
}

func rangeQuery(start, end time.Time) *dav.CalendarQuery {
	return &dav.CalendarQuery{
		CompRequest: dav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: dav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []dav.CompFilter{{
				Name:  ical.CompEvent,
				Start: start.UTC(),
				End:   end.UTC(),
			}},
		},
	}
}

func uidQuery(uid string) *dav.CalendarQuery {
	return &dav.CalendarQuery{
		CompRequest: dav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: dav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []dav.CompFilter{{
				Name: ical.CompEvent,
				Props: []dav.PropFilter{{
					Name:      ical.PropUID,
					TextMatch: &dav.TextMatch{Text: uid},
				}},
			}},
		},
	}
}

func objectPath(collection, uid string) string {
	return strings.TrimSuffix(collection, "/") + "/" + url.PathEscape(uid) + ".ics"
}

// primaryEvent returns the master VEVENT of a calendar object, skipping
// recurrence overrides.
func primaryEvent(cal *ical.Calendar) *ical.Component {
	var first *ical.Component
	for _, child := range cal.Children {
		if child.Name != ical.CompEvent {
			continue
		}
		if child.Props.Get(ical.PropRecurrenceID) == nil {
			return child
		}
		if first == nil {
			first = child
		}
	}
	return first
}
