//go:build integration

// Package integration contains end-to-end sync tests against calendar servers.
// Run with: go test -tags=integration ./internal/integration/...
package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/JohanCodinha/tuido/internal/caldav"
	"github.com/JohanCodinha/tuido/internal/calsync"
	"github.com/JohanCodinha/tuido/internal/gcal"
	"github.com/JohanCodinha/tuido/internal/store"
	"github.com/JohanCodinha/tuido/internal/task"
)

func openStore(t *testing.T) *store.TaskStore {
	t.Helper()
	db, err := store.InitDB(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewTaskStore(db)
}

func seed(t *testing.T, s *store.TaskStore, id, title string, due, modified time.Time) {
	t.Helper()
	tk := task.New(title)
	tk.ID = id
	tk.DueDate = &due
	tk.LastModified = &modified
	if err := s.Upsert(context.Background(), &tk); err != nil {
		t.Fatalf("failed to seed %s: %v", id, err)
	}
}

// syncStore runs one cycle over every stored task and records the etags seen.
func syncStore(t *testing.T, rec *calsync.Reconciler, s *store.TaskStore, start, end time.Time) *calsync.Result {
	t.Helper()
	ctx := context.Background()

	tasks, err := s.List(ctx, task.Filter{})
	if err != nil {
		t.Fatalf("failed to list tasks: %v", err)
	}
	res, err := rec.Sync(ctx, start, end, tasks)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	for _, tk := range tasks {
		if etag, ok := res.ETagFor(tk.ID); ok {
			if err := s.SetETag(ctx, tk.ID, etag); err != nil {
				t.Fatalf("failed to set etag for %s: %v", tk.ID, err)
			}
		}
	}
	return res
}

// TestE2E_GoogleCalendarSync tests create, update, conflict, idempotence and
// remote deletion against the Google Calendar mock
func TestE2E_GoogleCalendarSync(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	start, end := now.Add(-24*time.Hour), now.Add(7*24*time.Hour)

	m := gcal.NewMockServer()
	defer m.Close()
	m.Now = func() time.Time { return now.Add(time.Minute) }
	m.AddCalendar("me", "Me", true)

	m.AddEvent("me", &calendar.Event{
		ICalUID: "t2",
		Summary: "Old title",
		Start:   &calendar.EventDateTime{DateTime: now.Add(24 * time.Hour).Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: now.Add(25 * time.Hour).Format(time.RFC3339)},
		Updated: now.Add(-2 * time.Hour).Format(time.RFC3339),
	})
	m.AddEvent("me", &calendar.Event{
		ICalUID: "t3",
		Summary: "Edited on the phone",
		Start:   &calendar.EventDateTime{DateTime: now.Add(72 * time.Hour).Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: now.Add(73 * time.Hour).Format(time.RFC3339)},
		Updated: now.Add(-time.Hour).Format(time.RFC3339),
	})

	s := openStore(t)
	seed(t, s, "t1", "Pay rent", now.Add(24*time.Hour), now.Add(-time.Hour))
	seed(t, s, "t2", "New title", now.Add(48*time.Hour), now.Add(-time.Hour))
	seed(t, s, "t3", "Desk copy", now.Add(72*time.Hour), now.Add(-3*time.Hour))

	client, err := gcal.NewWithBaseURL(context.Background(), m.Client(), m.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	conflictDir := filepath.Join(t.TempDir(), "conflicts")
	rec := calsync.New(client, calsync.Config{
		Retry:       calsync.Retry{Attempts: 2, InitialWait: time.Millisecond},
		ConflictDir: conflictDir,
		LockFile:    filepath.Join(t.TempDir(), "sync.lock"),
	})

	// First cycle
	res := syncStore(t, rec, s, start, end)

	if len(res.Created) != 1 || res.Created[0] != "t1" {
		t.Errorf("Created = %v, want [t1]", res.Created)
	}
	if len(res.Updated) != 1 || res.Updated[0] != "t2" {
		t.Errorf("Updated = %v, want [t2]", res.Updated)
	}
	if len(res.Conflicts) != 1 || res.Conflicts[0].TaskID != "t3" {
		t.Errorf("Conflicts = %v, want t3", res.Conflicts)
	}
	if ev := m.GetEventByUID("me", "t2"); ev == nil || ev.Summary != "New title" {
		t.Errorf("t2 was not pushed: %+v", ev)
	}
	if ev := m.GetEventByUID("me", "t3"); ev == nil || ev.Summary != "Edited on the phone" {
		t.Errorf("t3 remote edit was overwritten: %+v", ev)
	}

	backups, _ := filepath.Glob(filepath.Join(conflictDir, "task_t3_*.ics"))
	if len(backups) != 1 {
		t.Fatalf("expected one conflict backup, got %v", backups)
	}
	data, err := os.ReadFile(backups[0])
	if err != nil {
		t.Fatalf("failed to read backup: %v", err)
	}
	if !strings.Contains(string(data), "SUMMARY:Desk copy") {
		t.Errorf("backup does not hold the local copy:\n%s", data)
	}

	// Second cycle writes nothing new.
	res = syncStore(t, rec, s, start, end)
	if len(res.Created)+len(res.Updated) != 0 {
		t.Errorf("second sync wrote: created %v updated %v", res.Created, res.Updated)
	}
	if m.Imports != 1 || m.Patches != 1 {
		t.Errorf("Imports/Patches = %d/%d, want 1/1", m.Imports, m.Patches)
	}
	stored, err := s.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("failed to get t1: %v", err)
	}
	if stored.ETag == "" {
		t.Errorf("t1 etag was not recorded")
	}

	// The user deletes t1 in the calendar.
	m.DeleteEventByUID("me", "t1")
	res = syncStore(t, rec, s, start, end)

	if len(res.RemoteDeleted) != 1 || res.RemoteDeleted[0] != "t1" {
		t.Errorf("RemoteDeleted = %v, want [t1]", res.RemoteDeleted)
	}
	if len(res.WindowDeleted) != 1 || res.WindowDeleted[0] != "t1" {
		t.Errorf("WindowDeleted = %v, want [t1]", res.WindowDeleted)
	}
	if m.Imports != 1 {
		t.Errorf("t1 was recreated, Imports = %d", m.Imports)
	}
}

// TestE2E_CalDAVServer tests a create/update round trip against a real CalDAV
// server. Set TUIDO_CALDAV_URL, TUIDO_CALDAV_USER and TUIDO_CALDAV_PASSWORD to
// run it; it writes one event to the first calendar.
func TestE2E_CalDAVServer(t *testing.T) {
	url := os.Getenv("TUIDO_CALDAV_URL")
	if url == "" {
		t.Skip("TUIDO_CALDAV_URL not set")
	}

	client, err := caldav.New(caldav.Options{
		URL:      url,
		Username: os.Getenv("TUIDO_CALDAV_USER"),
		Password: os.Getenv("TUIDO_CALDAV_PASSWORD"),
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	start, end := now.Add(-time.Hour), now.Add(48*time.Hour)
	id := task.NewID()

	s := openStore(t)
	seed(t, s, id, "tuido integration test", now.Add(24*time.Hour), now)

	rec := calsync.New(client, calsync.Config{Retry: calsync.Retry{Attempts: 3, InitialWait: 200 * time.Millisecond}})

	res := syncStore(t, rec, s, start, end)
	if len(res.Created) != 1 || res.Created[0] != id {
		t.Fatalf("Created = %v, want [%s]; errors %v", res.Created, id, res.PushErrors)
	}

	res = syncStore(t, rec, s, start, end)
	if _, ok := res.ETagFor(id); !ok {
		t.Errorf("created event %s was not fetched back", id)
	}
	if len(res.Created)+len(res.Updated) != 0 {
		t.Errorf("second sync wrote: created %v updated %v", res.Created, res.Updated)
	}

	title := "tuido integration test (edited)"
	if _, err := s.Update(context.Background(), id, task.Update{Title: &title}); err != nil {
		t.Fatalf("failed to edit task: %v", err)
	}
	res = syncStore(t, rec, s, start, end)
	if len(res.Updated) != 1 {
		t.Errorf("Updated = %v, want [%s]; errors %v", res.Updated, id, res.PushErrors)
	}
}
