package gcal

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"

	"github.com/JohanCodinha/tuido/internal/calsync"
	"github.com/JohanCodinha/tuido/internal/task"
)

var mockNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, m *MockServer) *Client {
	t.Helper()
	m.Now = func() time.Time { return mockNow }

	c, err := NewWithBaseURL(context.Background(), m.Client(), m.URL)
	if err != nil {
		t.Fatalf("NewWithBaseURL() unexpected error: %v", err)
	}
	return c
}

func firstCalendar(t *testing.T, c *Client) calsync.Calendar {
	t.Helper()
	cals, err := c.Calendars(context.Background())
	if err != nil {
		t.Fatalf("Calendars() unexpected error: %v", err)
	}
	if len(cals) == 0 {
		t.Fatal("Calendars() returned no calendars")
	}
	return cals[0]
}

// =============================================================================
// Calendar List Tests
// =============================================================================

// TestCalendars_PrimaryFirst tests that paging is followed and the primary calendar leads
func TestCalendars_PrimaryFirst(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.PageSize = 1

	m.AddCalendar("holidays", "Holidays", false)
	m.AddCalendar("alice", "Alice", true)
	m.AddCalendar("work", "Work", false)

	cals, err := newTestClient(t, m).Calendars(context.Background())
	if err != nil {
		t.Fatalf("Calendars() unexpected error: %v", err)
	}

	var names []string
	for _, c := range cals {
		names = append(names, c.Name())
	}
	want := []string{"Alice", "Holidays", "Work"}
	if len(names) != len(want) {
		t.Fatalf("Calendars() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Calendars()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

// TestCalendars_Unauthorized tests 401 mapping to ErrUnauthorized
func TestCalendars_Unauthorized(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.FailNext(http.StatusUnauthorized)

	_, err := newTestClient(t, m).Calendars(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Calendars() error = %v, want ErrUnauthorized", err)
	}
}

// =============================================================================
// Event Tests
// =============================================================================

// TestSearch_Window tests that only overlapping events are returned and mapped
func TestSearch_Window(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.PageSize = 1
	m.AddCalendar("work", "Work", true)

	m.AddEvent("work", &calendar.Event{
		ICalUID: "t1",
		Summary: "Standup",
		Start:   &calendar.EventDateTime{DateTime: "2025-06-03T09:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2025-06-03T09:15:00Z"},
		Updated: "2025-06-01T08:00:00Z",
	})
	m.AddEvent("work", &calendar.Event{
		ICalUID: "t2",
		Summary: "Holiday",
		Start:   &calendar.EventDateTime{Date: "2025-06-05"},
		End:     &calendar.EventDateTime{Date: "2025-06-06"},
	})
	m.AddEvent("work", &calendar.Event{
		ICalUID: "later",
		Start:   &calendar.EventDateTime{DateTime: "2025-07-20T09:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2025-07-20T10:00:00Z"},
	})

	cal := firstCalendar(t, newTestClient(t, m))
	events, err := cal.Search(context.Background(),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Search() returned %d events, want 2", len(events))
	}

	standup := events[0]
	if standup.UID() != "t1" || standup.Summary() != "Standup" {
		t.Errorf("first event = %q/%q, want t1/Standup", standup.UID(), standup.Summary())
	}
	if want := time.Date(2025, 6, 3, 9, 15, 0, 0, time.UTC); !standup.End().Equal(want) {
		t.Errorf("End() = %v, want %v", standup.End(), want)
	}
	if want := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC); !standup.LastModified().Equal(want) {
		t.Errorf("LastModified() = %v, want %v", standup.LastModified(), want)
	}
	if standup.ETag() == "" {
		t.Error("ETag() is empty")
	}

	allDay := events[1]
	if want := time.Date(2025, 6, 5, 0, 0, 0, 0, time.Local); !allDay.Start().Equal(want) {
		t.Errorf("all-day Start() = %v, want %v", allDay.Start(), want)
	}
}

// TestEventByUID_NotFound tests that a missing uid maps to ErrEventNotFound
func TestEventByUID_NotFound(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.AddCalendar("work", "Work", true)

	cal := firstCalendar(t, newTestClient(t, m))
	_, err := cal.EventByUID(context.Background(), "missing")
	if !errors.Is(err, calsync.ErrEventNotFound) {
		t.Errorf("EventByUID() error = %v, want ErrEventNotFound", err)
	}
}

// TestCreateAndUpdate tests import followed by patch
func TestCreateAndUpdate(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.AddCalendar("work", "Work", true)

	cal := firstCalendar(t, newTestClient(t, m))
	ctx := context.Background()
	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	if err := cal.CreateEvent(ctx, "t1", "Write report", start, mockNow); err != nil {
		t.Fatalf("CreateEvent() unexpected error: %v", err)
	}

	created := m.GetEventByUID("work", "t1")
	if created == nil {
		t.Fatal("event t1 was not imported")
	}
	if created.Summary != "Write report" {
		t.Errorf("Summary = %q, want %q", created.Summary, "Write report")
	}
	if created.End.DateTime != "2025-06-10T10:00:00Z" {
		t.Errorf("End = %q, want one hour after start", created.End.DateTime)
	}

	ev, err := cal.EventByUID(ctx, "t1")
	if err != nil {
		t.Fatalf("EventByUID() unexpected error: %v", err)
	}

	moved := time.Date(2025, 6, 11, 14, 0, 0, 0, time.UTC)
	if err := ev.Update(ctx, "Write final report", moved, mockNow); err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}

	if ev.Summary() != "Write final report" {
		t.Errorf("Summary() after update = %q", ev.Summary())
	}
	if !ev.Start().Equal(moved) {
		t.Errorf("Start() after update = %v, want %v", ev.Start(), moved)
	}
	if got := m.GetEventByUID("work", "t1").End.DateTime; got != "2025-06-11T15:00:00Z" {
		t.Errorf("End after update = %q, want duration kept", got)
	}
	if m.Imports != 1 || m.Patches != 1 {
		t.Errorf("Imports/Patches = %d/%d, want 1/1", m.Imports, m.Patches)
	}
}

// TestUpdate_DeletedRemotely tests 404 on patch maps to ErrEventNotFound
func TestUpdate_DeletedRemotely(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.AddCalendar("work", "Work", true)
	m.AddEvent("work", &calendar.Event{
		ICalUID: "t1",
		Start:   &calendar.EventDateTime{DateTime: "2025-06-03T09:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2025-06-03T10:00:00Z"},
	})

	cal := firstCalendar(t, newTestClient(t, m))
	ev, err := cal.EventByUID(context.Background(), "t1")
	if err != nil {
		t.Fatalf("EventByUID() unexpected error: %v", err)
	}

	m.DeleteEventByUID("work", "t1")

	err = ev.Update(context.Background(), "x", time.Now(), time.Now())
	if !errors.Is(err, calsync.ErrEventNotFound) {
		t.Errorf("Update() error = %v, want ErrEventNotFound", err)
	}
}

// TestReconcilerAgainstMock runs a full cycle through the calsync engine
func TestReconcilerAgainstMock(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.AddCalendar("work", "Work", true)
	m.AddEvent("work", &calendar.Event{
		ICalUID: "remote-only",
		Summary: "Dentist",
		Start:   &calendar.EventDateTime{DateTime: "2025-06-04T09:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2025-06-04T10:00:00Z"},
	})

	r := calsync.New(newTestClient(t, m), calsync.Config{Now: func() time.Time { return mockNow }})

	due := time.Date(2025, 6, 6, 9, 0, 0, 0, time.UTC)
	res, err := r.Sync(context.Background(),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		[]task.Task{{ID: "local", Title: "Pay rent", DueDate: &due}})
	if err != nil {
		t.Fatalf("Sync() unexpected error: %v", err)
	}

	if len(res.RemoteChanges) != 1 || res.RemoteChanges[0].UID != "remote-only" {
		t.Errorf("RemoteChanges = %+v, want the dentist event", res.RemoteChanges)
	}
	if len(res.Created) != 1 || res.Created[0] != "local" {
		t.Errorf("Created = %v, want [local]", res.Created)
	}
	if m.GetEventByUID("work", "local") == nil {
		t.Error("local task was not pushed")
	}
}

// =============================================================================
// Token Tests
// =============================================================================

// TestTokenRoundTrip tests saving and loading the OAuth token file
func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")

	if _, err := LoadToken(path); !errors.Is(err, ErrNoToken) {
		t.Errorf("LoadToken() on missing file error = %v, want ErrNoToken", err)
	}

	tok := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}
	if err := SaveToken(path, tok); err != nil {
		t.Fatalf("SaveToken() unexpected error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() unexpected error: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("token mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken() unexpected error: %v", err)
	}
	if loaded.RefreshToken != "refresh" {
		t.Errorf("RefreshToken = %q, want %q", loaded.RefreshToken, "refresh")
	}
}

// TestOAuthConfig tests reading installed-app credentials
func TestOAuthConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	creds := `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret",` +
		`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",` +
		`"redirect_uris":["http://localhost"]}}`
	if err := os.WriteFile(path, []byte(creds), 0o600); err != nil {
		t.Fatal(err)
	}

	conf, err := OAuthConfig(path)
	if err != nil {
		t.Fatalf("OAuthConfig() unexpected error: %v", err)
	}
	if conf.ClientID != "id.apps.googleusercontent.com" {
		t.Errorf("ClientID = %q", conf.ClientID)
	}
	if len(conf.Scopes) != 1 || conf.Scopes[0] != calendar.CalendarScope {
		t.Errorf("Scopes = %v, want calendar scope", conf.Scopes)
	}

	if _, err := OAuthConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("OAuthConfig() on missing file expected error")
	}
}
