package gcal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/calendar/v3"
)

// MockServer provides a fake Google Calendar API for testing
type MockServer struct {
	*httptest.Server
	mu        sync.RWMutex
	calendars []*calendar.CalendarListEntry
	events    map[string]map[string]*calendar.Event // calendar id -> event id -> event
	seq       int
	failures  []int

	// PageSize limits items per list response.
	PageSize int
	// Now stamps imported and patched events.
	Now func() time.Time

	Imports int
	Patches int
}

// NewMockServer creates a mock Google Calendar API server
func NewMockServer() *MockServer {
	m := &MockServer{
		events:   make(map[string]map[string]*calendar.Event),
		PageSize: 100,
		Now:      func() time.Time { return time.Now().UTC() },
	}

	mux := http.NewServeMux()

	// GET /users/me/calendarList
	mux.HandleFunc("/users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		if m.injectFailure(w) {
			return
		}
		m.handleCalendarList(w, r)
	})

	mux.HandleFunc("/calendars/", func(w http.ResponseWriter, r *http.Request) {
		if m.injectFailure(w) {
			return
		}

		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/calendars/"), "/")
		if len(parts) < 2 || parts[1] != "events" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		calID := parts[0]

		switch {
		case len(parts) == 2 && r.Method == http.MethodGet:
			m.handleListEvents(w, r, calID)
		case len(parts) == 3 && parts[2] == "import" && r.Method == http.MethodPost:
			m.handleImport(w, r, calID)
		case len(parts) == 3 && r.Method == http.MethodPatch:
			m.handlePatch(w, r, calID, parts[2])
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	m.Server = httptest.NewServer(mux)
	return m
}

// AddCalendar adds a calendar to the user's list
func (m *MockServer) AddCalendar(id, summary string, primary bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calendars = append(m.calendars, &calendar.CalendarListEntry{Id: id, Summary: summary, Primary: primary})
	if m.events[id] == nil {
		m.events[id] = make(map[string]*calendar.Event)
	}
}

// AddEvent stores an event, assigning an id and etag when missing
func (m *MockServer) AddEvent(calID string, ev *calendar.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.Id == "" {
		ev.Id = m.nextID()
	}
	if ev.Etag == "" {
		ev.Etag = m.nextETag()
	}
	if m.events[calID] == nil {
		m.events[calID] = make(map[string]*calendar.Event)
	}
	m.events[calID][ev.Id] = ev
}

// GetEventByUID retrieves an event (for test assertions)
func (m *MockServer) GetEventByUID(calID, uid string) *calendar.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ev := range m.events[calID] {
		if ev.ICalUID == uid {
			return ev
		}
	}
	return nil
}

// DeleteEventByUID removes an event, as a user would in the web UI
func (m *MockServer) DeleteEventByUID(calID, uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ev := range m.events[calID] {
		if ev.ICalUID == uid {
			delete(m.events[calID], id)
		}
	}
}

// FailNext makes the next requests fail with the given status codes, in order
func (m *MockServer) FailNext(codes ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, codes...)
}

// Reset clears all calendars, events and counters
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calendars = nil
	m.events = make(map[string]map[string]*calendar.Event)
	m.failures = nil
	m.Imports, m.Patches = 0, 0
}

func (m *MockServer) injectFailure(w http.ResponseWriter) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.failures) == 0 {
		return false
	}
	code := m.failures[0]
	m.failures = m.failures[1:]
	writeError(w, code, http.StatusText(code))
	return true
}

func (m *MockServer) handleCalendarList(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	items := append([]*calendar.CalendarListEntry(nil), m.calendars...)
	m.mu.RUnlock()

	page, next := paginate(len(items), m.PageSize, r.URL.Query().Get("pageToken"))
	writeJSON(w, &calendar.CalendarList{Items: items[page.start:page.end], NextPageToken: next})
}

func (m *MockServer) handleListEvents(w http.ResponseWriter, r *http.Request, calID string) {
	q := r.URL.Query()

	m.mu.RLock()
	stored, ok := m.events[calID]
	if !ok {
		m.mu.RUnlock()
		writeError(w, http.StatusNotFound, "calendar not found")
		return
	}

	var items []*calendar.Event
	for _, ev := range stored {
		if uid := q.Get("iCalUID"); uid != "" && ev.ICalUID != uid {
			continue
		}
		if !overlaps(ev, q.Get("timeMin"), q.Get("timeMax")) {
			continue
		}
		items = append(items, ev)
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		return eventStart(items[i]).Before(eventStart(items[j]))
	})

	page, next := paginate(len(items), m.PageSize, q.Get("pageToken"))
	writeJSON(w, &calendar.Events{Items: items[page.start:page.end], NextPageToken: next})
}

func (m *MockServer) handleImport(w http.ResponseWriter, r *http.Request, calID string) {
	var ev calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if ev.ICalUID == "" || ev.Start == nil || ev.End == nil {
		writeError(w, http.StatusBadRequest, "iCalUID, start and end are required")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events[calID] == nil {
		writeError(w, http.StatusNotFound, "calendar not found")
		return
	}

	for _, existing := range m.events[calID] {
		if existing.ICalUID == ev.ICalUID {
			ev.Id = existing.Id
		}
	}
	if ev.Id == "" {
		ev.Id = m.nextID()
	}
	ev.Etag = m.nextETag()
	ev.Updated = m.Now().Format(time.RFC3339)
	m.events[calID][ev.Id] = &ev
	m.Imports++

	writeJSON(w, &ev)
}

func (m *MockServer) handlePatch(w http.ResponseWriter, r *http.Request, calID, eventID string) {
	var patch calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[calID][eventID]
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	if patch.Summary != "" {
		ev.Summary = patch.Summary
	}
	if patch.Start != nil {
		ev.Start = patch.Start
	}
	if patch.End != nil {
		ev.End = patch.End
	}
	ev.Etag = m.nextETag()
	ev.Updated = m.Now().Format(time.RFC3339)
	m.Patches++

	writeJSON(w, ev)
}

func (m *MockServer) nextID() string {
	m.seq++
	return fmt.Sprintf("ev%d", m.seq)
}

func (m *MockServer) nextETag() string {
	m.seq++
	return fmt.Sprintf(`"%d"`, m.seq)
}

type pageRange struct{ start, end int }

func paginate(total, size int, token string) (pageRange, string) {
	start, _ := strconv.Atoi(token)
	if start > total {
		start = total
	}
	if size <= 0 {
		size = total
	}
	end := min(start+size, total)

	next := ""
	if end < total {
		next = strconv.Itoa(end)
	}
	return pageRange{start, end}, next
}

func eventStart(ev *calendar.Event) time.Time {
	t, _ := parseEventTime(ev.Start)
	return t
}

func overlaps(ev *calendar.Event, timeMin, timeMax string) bool {
	start := eventStart(ev)
	end, _ := parseEventTime(ev.End)
	if end.IsZero() {
		end = start
	}
	if timeMax != "" {
		if upper, err := time.Parse(time.RFC3339, timeMax); err == nil && !start.Before(upper) {
			return false
		}
	}
	if timeMin != "" {
		if lower, err := time.Parse(time.RFC3339, timeMin); err == nil && !end.After(lower) {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
}
