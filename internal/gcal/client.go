// Package gcal provides a Google Calendar backend for calsync.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/JohanCodinha/tuido/internal/calsync"
	"github.com/JohanCodinha/tuido/internal/logger"
)

const (
	// APITimeout bounds each API call.
	APITimeout = 30 * time.Second

	// PageSize is the number of items requested per page.
	PageSize = 250

	// defaultDuration is used for events created from tasks, which have no end.
	defaultDuration = time.Hour

	dateLayout = "2006-01-02"
)

// Client implements calsync.Client using the Google Calendar API.
type Client struct {
	svc     *calendar.Service
	timeout time.Duration
	log     zerolog.Logger
}

var _ calsync.Client = (*Client)(nil)

// New creates a client authorized with the stored OAuth token.
func New(ctx context.Context, credentialsFile, tokenFile string, timeout time.Duration) (*Client, error) {
	httpClient, err := HTTPClient(ctx, credentialsFile, tokenFile)
	if err != nil {
		return nil, err
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return newClient(svc, timeout), nil
}

// NewWithBaseURL creates a client against a custom endpoint (for testing).
func NewWithBaseURL(ctx context.Context, httpClient *http.Client, baseURL string) (*Client, error) {
	svc, err := calendar.NewService(ctx,
		option.WithHTTPClient(httpClient),
		option.WithEndpoint(baseURL+"/"),
	)
	if err != nil {
		return nil, err
	}
	return newClient(svc, APITimeout), nil
}

func newClient(svc *calendar.Service, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = APITimeout
	}
	return &Client{svc: svc, timeout: timeout, log: logger.Component("gcal")}
}

// Calendars returns the calendars on the user's list, primary first.
func (c *Client) Calendars(ctx context.Context) ([]calsync.Calendar, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var entries []*calendar.CalendarListEntry
	err := c.svc.CalendarList.List().MaxResults(PageSize).Pages(ctx, func(resp *calendar.CalendarList) error {
		entries = append(entries, resp.Items...)
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Primary && !entries[j].Primary
	})

	calendars := make([]calsync.Calendar, 0, len(entries))
	for _, e := range entries {
		name := e.SummaryOverride
		if name == "" {
			name = e.Summary
		}
		calendars = append(calendars, &Calendar{client: c, id: e.Id, name: name})
	}
	return calendars, nil
}

// Calendar is one Google calendar.
type Calendar struct {
	client *Client
	id     string
	name   string
}

// Name returns the calendar title.
func (c *Calendar) Name() string {
	return c.name
}

// ID returns the calendar id.
func (c *Calendar) ID() string {
	return c.id
}

// Search returns the single events overlapping [start, end].
func (c *Calendar) Search(ctx context.Context, start, end time.Time) ([]calsync.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, c.client.timeout)
	defer cancel()

	call := c.client.svc.Events.List(c.id).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		ShowDeleted(false).
		MaxResults(PageSize)

	var events []calsync.Event
	err := call.Pages(ctx, func(resp *calendar.Events) error {
		for _, item := range resp.Items {
			events = append(events, c.event(item))
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return events, nil
}

// EventByUID returns calsync.ErrEventNotFound when no event carries uid.
func (c *Calendar) EventByUID(ctx context.Context, uid string) (calsync.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, c.client.timeout)
	defer cancel()

	resp, err := c.client.svc.Events.List(c.id).ICalUID(uid).ShowDeleted(false).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}
	for _, item := range resp.Items {
		if item.ICalUID == uid && item.RecurringEventId == "" {
			return c.event(item), nil
		}
	}
	return nil, calsync.ErrEventNotFound
}

// CreateEvent imports a one-hour event carrying uid as its iCalendar UID.
// Google assigns its own modification time; stamp is not stored.
func (c *Calendar) CreateEvent(ctx context.Context, uid, summary string, start, _ time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, c.client.timeout)
	defer cancel()

	ev := &calendar.Event{
		ICalUID: uid,
		Summary: summary,
		Start:   eventTime(start),
		End:     eventTime(start.Add(defaultDuration)),
	}
	if _, err := c.client.svc.Events.Import(c.id, ev).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	return nil
}

func (c *Calendar) event(item *calendar.Event) *Event {
	ev := &Event{
		cal:     c,
		id:      item.Id,
		uid:     item.ICalUID,
		summary: item.Summary,
		etag:    item.Etag,
	}

	var err error
	if ev.start, err = parseEventTime(item.Start); err != nil {
		c.client.log.Warn().Err(err).Str("event", item.Id).Msg("invalid start")
	}
	if ev.end, err = parseEventTime(item.End); err != nil {
		c.client.log.Warn().Err(err).Str("event", item.Id).Msg("invalid end")
	}
	if item.Updated != "" {
		if ev.updated, err = time.Parse(time.RFC3339, item.Updated); err != nil {
			c.client.log.Warn().Err(err).Str("event", item.Id).Msg("invalid updated time")
		}
	}
	return ev
}

// Event is a Google Calendar event.
type Event struct {
	cal     *Calendar
	id      string
	uid     string
	summary string
	start   time.Time
	end     time.Time
	etag    string
	updated time.Time
}

var _ calsync.Event = (*Event)(nil)

func (e *Event) UID() string             { return e.uid }
func (e *Event) Summary() string         { return e.summary }
func (e *Event) Start() time.Time        { return e.start }
func (e *Event) End() time.Time          { return e.end }
func (e *Event) ETag() string            { return e.etag }
func (e *Event) LastModified() time.Time { return e.updated }

// Update patches the summary and start, keeping the event duration.
func (e *Event) Update(ctx context.Context, summary string, start, _ time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, e.cal.client.timeout)
	defer cancel()

	duration := defaultDuration
	if !e.start.IsZero() && e.end.After(e.start) {
		duration = e.end.Sub(e.start)
	}

	patch := &calendar.Event{
		Summary: summary,
		Start:   eventTime(start),
		End:     eventTime(start.Add(duration)),
	}
	updated, err := e.cal.client.svc.Events.Patch(e.cal.id, e.id, patch).Context(ctx).Do()
	if code := statusCode(err); code == http.StatusNotFound || code == http.StatusGone {
		return fmt.Errorf("%w: %v", calsync.ErrEventNotFound, err)
	}
	if err != nil {
		return wrapError(err)
	}

	*e = *e.cal.event(updated)
	return nil
}

func eventTime(t time.Time) *calendar.EventDateTime {
	return &calendar.EventDateTime{DateTime: t.Format(time.RFC3339)}
}

// parseEventTime reads either a timed or an all-day value. All-day dates are
// midnight local time.
func parseEventTime(dt *calendar.EventDateTime) (time.Time, error) {
	switch {
	case dt == nil:
		return time.Time{}, nil
	case dt.DateTime != "":
		return time.Parse(time.RFC3339, dt.DateTime)
	case dt.Date != "":
		return time.ParseInLocation(dateLayout, dt.Date, time.Local)
	default:
		return time.Time{}, nil
	}
}

// ErrUnauthorized is returned when the stored token is rejected.
var ErrUnauthorized = errors.New("google token expired or revoked (run: tuido auth google)")

func wrapError(err error) error {
	if statusCode(err) == http.StatusUnauthorized {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return err
}

func statusCode(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
