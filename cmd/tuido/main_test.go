package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/api/calendar/v3"

	"github.com/JohanCodinha/tuido/internal/calsync"
	"github.com/JohanCodinha/tuido/internal/config"
	"github.com/JohanCodinha/tuido/internal/gcal"
	"github.com/JohanCodinha/tuido/internal/task"
)

// testEnv is an isolated config and database for one test.
type testEnv struct {
	dir    string
	config string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`database: %q
log:
  level: warn
sync:
  backend: none
  lock_file: %q
  conflict_dir: %q
`, filepath.Join(dir, "tasks.db"), filepath.Join(dir, "sync.lock"), filepath.Join(dir, "conflicts"))

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return &testEnv{dir: dir, config: path}
}

// run executes the CLI and returns stdout, stderr and the exit code.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", e.config}, args...)
	code := Execute(context.Background(), full, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

// mustRun executes the CLI and fails the test on a non-zero exit code.
func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, code := e.run(t, args...)
	if code != 0 {
		t.Fatalf("tuido %s exited %d\nstdout: %s\nstderr: %s", strings.Join(args, " "), code, stdout, stderr)
	}
	return stdout
}

// addTask creates a task and returns its short id.
func (e *testEnv) addTask(t *testing.T, args ...string) string {
	t.Helper()
	out := e.mustRun(t, append([]string{"add"}, args...)...)
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "created" {
		t.Fatalf("unexpected add output %q", out)
	}
	return fields[1]
}

func (e *testEnv) app(t *testing.T) *app {
	t.Helper()
	cfg, err := config.Load(e.config)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	opts := &rootOptions{cfg: cfg, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	a, err := opts.open()
	if err != nil {
		t.Fatalf("failed to open app: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

// =============================================================================
// Task Command Tests
// =============================================================================

// TestAddAndList tests that added tasks show up in list
func TestAddAndList(t *testing.T) {
	env := newTestEnv(t)

	env.addTask(t, "Buy", "milk", "--tag", "errand", "--priority", "high")
	env.addTask(t, "Pay rent", "--due", "2025-07-01")

	out := env.mustRun(t, "list")
	for _, want := range []string{"Buy milk", "Pay rent", "errand", "high", "2025-07-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

// TestAdd_InvalidInput tests that bad flags are rejected without creating a task
func TestAdd_InvalidInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name        string
		args        []string
		errContains string
	}{
		{name: "bad priority", args: []string{"add", "x", "--priority", "someday"}, errContains: "invalid task priority"},
		{name: "bad due", args: []string{"add", "x", "--due", "soon"}, errContains: "invalid due date"},
		{name: "unknown project", args: []string{"add", "x", "--project", "nope"}, errContains: "project not found"},
		{name: "no title", args: []string{"add"}, errContains: "requires at least 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := env.run(t, tt.args...)
			if code == 0 {
				t.Fatalf("expected non-zero exit code")
			}
			if !strings.Contains(stderr, tt.errContains) {
				t.Errorf("stderr = %q, want it to contain %q", stderr, tt.errContains)
			}
		})
	}

	if out := env.mustRun(t, "list", "--all"); !strings.Contains(out, "no tasks") {
		t.Errorf("expected no tasks, got:\n%s", out)
	}
}

// TestDoneAndReopen tests status changes and default hiding of completed tasks
func TestDoneAndReopen(t *testing.T) {
	env := newTestEnv(t)
	id := env.addTask(t, "Write report")

	out := env.mustRun(t, "done", id)
	if !strings.Contains(out, "completed") {
		t.Errorf("done output = %q", out)
	}
	if out := env.mustRun(t, "list"); !strings.Contains(out, "no tasks") {
		t.Errorf("completed task should be hidden:\n%s", out)
	}
	if out := env.mustRun(t, "list", "--status", "completed"); !strings.Contains(out, "Write report") {
		t.Errorf("--status completed should show the task:\n%s", out)
	}
	if out := env.mustRun(t, "show", id); !strings.Contains(out, "Completed:") {
		t.Errorf("show should include completion time:\n%s", out)
	}

	env.mustRun(t, "reopen", id)
	out = env.mustRun(t, "show", id)
	if !strings.Contains(out, "Status:      pending") || strings.Contains(out, "Completed:") {
		t.Errorf("reopened task:\n%s", out)
	}
}

// TestStatus tests setting an arbitrary status
func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	id := env.addTask(t, "Research")

	env.mustRun(t, "status", id, "in_progress")
	if out := env.mustRun(t, "show", id); !strings.Contains(out, "in_progress") {
		t.Errorf("show output:\n%s", out)
	}

	_, stderr, code := env.run(t, "status", id, "sleeping")
	if code == 0 || !strings.Contains(stderr, "invalid task status") {
		t.Errorf("invalid status: code %d, stderr %q", code, stderr)
	}
}

// TestEdit tests partial updates
func TestEdit(t *testing.T) {
	env := newTestEnv(t)
	id := env.addTask(t, "Draft", "--due", "2025-07-01", "-d", "first pass")

	env.mustRun(t, "edit", id, "--title", "Final draft", "--clear-due")

	out := env.mustRun(t, "show", id)
	if !strings.Contains(out, "Title:       Final draft") {
		t.Errorf("title not updated:\n%s", out)
	}
	if strings.Contains(out, "Due:") {
		t.Errorf("due date not cleared:\n%s", out)
	}
	if !strings.Contains(out, "first pass") {
		t.Errorf("description should be untouched:\n%s", out)
	}

	_, stderr, code := env.run(t, "edit", id)
	if code == 0 || !strings.Contains(stderr, "nothing to change") {
		t.Errorf("empty edit: code %d, stderr %q", code, stderr)
	}

	_, stderr, code = env.run(t, "edit", id, "--due", "2025-07-01", "--clear-due")
	if code == 0 {
		t.Errorf("--due with --clear-due should fail, stderr %q", stderr)
	}
}

// TestShowMarkdown tests the markdown rendering of a task
func TestShowMarkdown(t *testing.T) {
	env := newTestEnv(t)
	id := env.addTask(t, "Renew passport", "--due", "2026-01-12 09:30", "-t", "admin")

	out := env.mustRun(t, "show", id, "--markdown")
	for _, want := range []string{"---\n", "status: pending", "due: 2026-01-12 09:30", "tags: [admin]", "# Renew passport", "## Description"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

// withEditor replaces the editor for one test
func withEditor(t *testing.T, edit func(content string) string) {
	t.Helper()
	prev := openEditor
	t.Cleanup(func() { openEditor = prev })

	openEditor = func(_ *cobra.Command, path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(path, []byte(edit(string(data))), 0o600)
	}
}

// TestEditInEditor tests applying changes made in the editor
func TestEditInEditor(t *testing.T) {
	env := newTestEnv(t)
	id := env.addTask(t, "Renew passport", "--due", "2026-01-12")

	withEditor(t, func(content string) string {
		content = strings.Replace(content, "# Renew passport", "# Renew passport and ID", 1)
		content = strings.Replace(content, "priority: medium", "priority: urgent", 1)
		return content + "Bring two photos.\n"
	})

	out := env.mustRun(t, "edit", id, "--editor")
	if !strings.Contains(out, "updated") {
		t.Errorf("edit output = %q", out)
	}

	out = env.mustRun(t, "show", id)
	for _, want := range []string{"Renew passport and ID", "Priority:    urgent", "Bring two photos."} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

// TestEditInEditor_NoChanges tests that an untouched file changes nothing
func TestEditInEditor_NoChanges(t *testing.T) {
	env := newTestEnv(t)
	id := env.addTask(t, "Untouched")
	withEditor(t, func(content string) string { return content })

	if out := env.mustRun(t, "edit", id, "-e"); !strings.Contains(out, "no changes") {
		t.Errorf("edit output = %q", out)
	}
}

// TestEditInEditor_InvalidEdit tests that a bad edit leaves the task alone
func TestEditInEditor_InvalidEdit(t *testing.T) {
	env := newTestEnv(t)
	id := env.addTask(t, "Keep me")
	withEditor(t, func(content string) string {
		return strings.Replace(content, "status: pending", "status: someday", 1)
	})

	_, stderr, code := env.run(t, "edit", id, "--editor")
	if code == 0 || !strings.Contains(stderr, "invalid task status") {
		t.Errorf("code %d, stderr %q", code, stderr)
	}
	if out := env.mustRun(t, "show", id); !strings.Contains(out, "Status:      pending") {
		t.Errorf("task should be unchanged:\n%s", out)
	}
}

// TestRm tests deletion and unknown ids
func TestRm(t *testing.T) {
	env := newTestEnv(t)
	id := env.addTask(t, "Temporary")

	env.mustRun(t, "rm", id)

	_, stderr, code := env.run(t, "show", id)
	if code == 0 || !strings.Contains(stderr, "task not found") {
		t.Errorf("show after rm: code %d, stderr %q", code, stderr)
	}
}

// TestTags tests tag add/rm and the tag summary
func TestTags(t *testing.T) {
	env := newTestEnv(t)
	id := env.addTask(t, "Garden", "-t", "home")
	env.addTask(t, "Groceries", "-t", "home")

	out := env.mustRun(t, "tag", "add", id, "outside", "home")
	if !strings.Contains(out, "[home, outside]") {
		t.Errorf("tag add output = %q", out)
	}

	out = env.mustRun(t, "tags")
	if !strings.Contains(out, "home (2)") || !strings.Contains(out, "outside (1)") {
		t.Errorf("tags output:\n%s", out)
	}

	env.mustRun(t, "tag", "rm", id, "home")
	if out := env.mustRun(t, "list", "--tag", "home"); strings.Contains(out, "Garden") {
		t.Errorf("Garden should no longer be tagged home:\n%s", out)
	}
}

// =============================================================================
// Project Command Tests
// =============================================================================

// TestProjects tests project creation, nesting, filtering and deletion
func TestProjects(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun(t, "project", "add", "Home")
	env.mustRun(t, "project", "add", "Garden", "--parent", "home", "--color", "green")

	out := env.mustRun(t, "project", "list")
	if !strings.Contains(out, "Home [blue]") || !strings.Contains(out, "  Garden [green]") {
		t.Errorf("project tree:\n%s", out)
	}

	env.addTask(t, "Plant tomatoes", "--project", "Garden")
	env.addTask(t, "Unrelated")

	out = env.mustRun(t, "list", "--project", "garden")
	if !strings.Contains(out, "Plant tomatoes") || strings.Contains(out, "Unrelated") {
		t.Errorf("project filter:\n%s", out)
	}

	env.mustRun(t, "project", "rm", "Garden")
	out = env.mustRun(t, "list")
	if !strings.Contains(out, "Plant tomatoes") {
		t.Errorf("tasks should survive project deletion:\n%s", out)
	}
}

// =============================================================================
// Import/Export Tests
// =============================================================================

// TestExportImportCSV tests moving tasks between databases through CSV
func TestExportImportCSV(t *testing.T) {
	src := newTestEnv(t)
	src.addTask(t, "Pay rent", "--due", "2025-07-01", "-t", "home")
	id := src.addTask(t, "Call mom")
	src.mustRun(t, "done", id)

	file := filepath.Join(src.dir, "tasks.csv")
	out := src.mustRun(t, "export", "csv", file)
	if !strings.Contains(out, "exported 2 tasks") {
		t.Errorf("export output = %q", out)
	}

	dst := newTestEnv(t)
	if out := dst.mustRun(t, "import", "csv", file); !strings.Contains(out, "imported 2 tasks") {
		t.Errorf("import output = %q", out)
	}
	// Rows keep their ids, so a second import replaces instead of duplicating.
	dst.mustRun(t, "import", "csv", file)

	out = dst.mustRun(t, "list", "--all")
	if strings.Count(out, "Pay rent") != 1 || strings.Count(out, "Call mom") != 1 {
		t.Errorf("imported list:\n%s", out)
	}
	if !strings.Contains(out, "completed") {
		t.Errorf("status should survive the round trip:\n%s", out)
	}
}

// TestExportImportICS tests iCalendar export of dated tasks and import as new tasks
func TestExportImportICS(t *testing.T) {
	src := newTestEnv(t)
	src.addTask(t, "Dentist", "--due", "2025-07-01 09:30")
	src.addTask(t, "Someday")

	out := src.mustRun(t, "export", "ics", "-")
	if !strings.Contains(out, "BEGIN:VEVENT") || !strings.Contains(out, "SUMMARY:Dentist") {
		t.Errorf("ics output:\n%s", out)
	}
	if strings.Contains(out, "Someday") {
		t.Errorf("undated tasks should not be exported:\n%s", out)
	}

	file := filepath.Join(src.dir, "tasks.ics")
	if err := os.WriteFile(file, []byte(out), 0o644); err != nil {
		t.Fatalf("failed to write ics: %v", err)
	}

	dst := newTestEnv(t)
	dst.mustRun(t, "import", "ics", file)
	dst.mustRun(t, "import", "ics", file)

	out = dst.mustRun(t, "list")
	if strings.Count(out, "Dentist") != 2 {
		t.Errorf("each ics import should create new tasks:\n%s", out)
	}
}

// TestExport_UnknownFormat tests format validation
func TestExport_UnknownFormat(t *testing.T) {
	env := newTestEnv(t)
	_, stderr, code := env.run(t, "export", "json", "-")
	if code == 0 || !strings.Contains(stderr, "unknown format") {
		t.Errorf("code %d, stderr %q", code, stderr)
	}
}

// =============================================================================
// Sync Tests
// =============================================================================

// TestSync_NoBackend tests that sync without a backend is a harmless no-op
func TestSync_NoBackend(t *testing.T) {
	env := newTestEnv(t)
	env.addTask(t, "Pay rent", "--due", "2025-07-01")

	out := env.mustRun(t, "sync", "--from", "2025-06-01", "--to", "2025-08-01")
	if !strings.Contains(out, "sync backend is none") {
		t.Errorf("sync output:\n%s", out)
	}
	if !strings.Contains(out, "0 created") {
		t.Errorf("nothing should be pushed:\n%s", out)
	}
}

// TestSync_InvalidWindow tests window validation
func TestSync_InvalidWindow(t *testing.T) {
	env := newTestEnv(t)
	_, stderr, code := env.run(t, "sync", "--from", "2025-08-01", "--to", "2025-06-01")
	if code == 0 || !strings.Contains(stderr, "invalid sync window") {
		t.Errorf("code %d, stderr %q", code, stderr)
	}
}

// TestSyncWith_GoogleMock tests the full cycle: push, etag bookkeeping and
// applying a remote deletion
func TestSyncWith_GoogleMock(t *testing.T) {
	m := gcal.NewMockServer()
	defer m.Close()
	m.AddCalendar("me", "Me", true)
	// Updated has second precision; keep it clearly after the local edit.
	m.Now = func() time.Time { return time.Now().UTC().Add(time.Minute) }

	ctx := context.Background()
	client, err := gcal.NewWithBaseURL(ctx, m.Client(), m.URL)
	if err != nil {
		t.Fatalf("NewWithBaseURL() error: %v", err)
	}

	env := newTestEnv(t)
	a := env.app(t)

	due := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	created, err := a.svc.Create(ctx, task.CreateParams{Title: "Pay rent", DueDate: &due})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// First cycle imports the event.
	res, err := a.syncWith(ctx, client, syncRequest{})
	if err != nil {
		t.Fatalf("first sync error: %v", err)
	}
	if len(res.Created) != 1 || res.Created[0] != created.ID {
		t.Fatalf("Created = %v, want [%s]", res.Created, created.ID)
	}
	if m.GetEventByUID("me", created.ID) == nil {
		t.Fatalf("event was not imported")
	}

	// Second cycle sees it remotely and records the etag without writing.
	res, err = a.syncWith(ctx, client, syncRequest{})
	if err != nil {
		t.Fatalf("second sync error: %v", err)
	}
	if len(res.Created)+len(res.Updated) != 0 || len(res.Conflicts) != 0 {
		t.Errorf("second sync wrote: created %v updated %v conflicts %v", res.Created, res.Updated, res.Conflicts)
	}
	stored, err := a.svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if stored.ETag == "" {
		t.Errorf("etag was not recorded")
	}

	// The event is deleted in the calendar UI.
	m.DeleteEventByUID("me", created.ID)

	res, err = a.syncWith(ctx, client, syncRequest{applyDeletions: true})
	if err != nil {
		t.Fatalf("third sync error: %v", err)
	}
	if len(res.WindowDeleted) != 1 || res.WindowDeleted[0] != created.ID {
		t.Errorf("WindowDeleted = %v, want [%s]", res.WindowDeleted, created.ID)
	}
	if len(res.Created) != 0 {
		t.Errorf("deleted event should not be recreated, Created = %v", res.Created)
	}
	if _, err := a.svc.Get(ctx, created.ID); err == nil {
		t.Errorf("task should have been deleted locally")
	}
	if m.Imports != 1 {
		t.Errorf("Imports = %d, want 1", m.Imports)
	}
}

// TestSyncWith_EventMovedOutsideWindow tests that applying deletions keeps a
// task whose event still exists outside the sync window
func TestSyncWith_EventMovedOutsideWindow(t *testing.T) {
	m := gcal.NewMockServer()
	defer m.Close()
	m.AddCalendar("me", "Me", true)
	m.Now = func() time.Time { return time.Now().UTC().Add(time.Minute) }

	ctx := context.Background()
	client, err := gcal.NewWithBaseURL(ctx, m.Client(), m.URL)
	if err != nil {
		t.Fatalf("NewWithBaseURL() error: %v", err)
	}

	env := newTestEnv(t)
	a := env.app(t)

	due := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	created, err := a.svc.Create(ctx, task.CreateParams{Title: "Dentist", DueDate: &due})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := a.syncWith(ctx, client, syncRequest{}); err != nil {
			t.Fatalf("sync %d error: %v", i+1, err)
		}
	}

	// The event is rescheduled far ahead in the calendar UI.
	far := time.Now().UTC().AddDate(1, 0, 0).Truncate(time.Hour)
	old := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)
	m.DeleteEventByUID("me", created.ID)
	m.AddEvent("me", &calendar.Event{
		ICalUID: created.ID,
		Summary: "Dentist",
		Start:   &calendar.EventDateTime{DateTime: far.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: far.Add(time.Hour).Format(time.RFC3339)},
		Updated: old,
	})

	title := "Dentist (moved back)"
	if _, err := a.svc.Update(ctx, created.ID, task.Update{Title: &title}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	res, err := a.syncWith(ctx, client, syncRequest{applyDeletions: true})
	if err != nil {
		t.Fatalf("sync error: %v", err)
	}
	if len(res.WindowDeleted) != 0 {
		t.Errorf("WindowDeleted = %v, want none", res.WindowDeleted)
	}
	if len(res.Updated) != 1 || res.Updated[0] != created.ID {
		t.Errorf("Updated = %v, want [%s]", res.Updated, created.ID)
	}
	if _, err := a.svc.Get(ctx, created.ID); err != nil {
		t.Errorf("task should still exist: %v", err)
	}
	if ev := m.GetEventByUID("me", created.ID); ev == nil || ev.Summary != title {
		t.Errorf("remote event was not updated: %+v", ev)
	}
}

// TestNewCalendarClient tests backend selection
func TestNewCalendarClient(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	client, err := newCalendarClient(ctx, cfg)
	if err != nil {
		t.Fatalf("none backend error: %v", err)
	}
	if _, ok := client.(calsync.NullClient); !ok {
		t.Errorf("none backend client = %T, want calsync.NullClient", client)
	}

	cfg.Sync.Backend = config.BackendCalDAV
	cfg.CalDAV.URL = "https://dav.example.com/"
	cfg.CalDAV.Username = "me"
	if _, err := newCalendarClient(ctx, cfg); err != nil {
		t.Errorf("caldav backend error: %v", err)
	}

	cfg.Sync.Backend = config.BackendGoogle
	cfg.Google.CredentialsFile = filepath.Join(t.TempDir(), "missing.json")
	if _, err := newCalendarClient(ctx, cfg); err == nil {
		t.Errorf("google backend without credentials should fail")
	}
}

// =============================================================================
// Root Command Tests
// =============================================================================

// TestResolveTask_Prefix tests id prefix lookup and ambiguity
func TestResolveTask_Prefix(t *testing.T) {
	env := newTestEnv(t)
	a := env.app(t)
	ctx := context.Background()

	for _, id := range []string{"abc-1", "abc-2", "xyz-1"} {
		tk := task.New("task " + id)
		tk.ID = id
		if err := a.tasks.Create(ctx, &tk); err != nil {
			t.Fatalf("Create(%s) error: %v", id, err)
		}
	}

	if got, err := resolveTask(ctx, a, "xyz"); err != nil || got.ID != "xyz-1" {
		t.Errorf("resolveTask(xyz) = %q, %v", got.ID, err)
	}
	if got, err := resolveTask(ctx, a, "abc-2"); err != nil || got.ID != "abc-2" {
		t.Errorf("resolveTask(abc-2) = %q, %v", got.ID, err)
	}
	if _, err := resolveTask(ctx, a, "abc"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("resolveTask(abc) error = %v, want ambiguous", err)
	}
	if _, err := resolveTask(ctx, a, "nope"); err == nil {
		t.Errorf("resolveTask(nope) should fail")
	}
}

// TestInvalidConfig tests that config and flag errors abort before any command runs
func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t)

	_, stderr, code := env.run(t, "--log-level", "loud", "list")
	if code == 0 || !strings.Contains(stderr, "invalid log level") {
		t.Errorf("bad log level: code %d, stderr %q", code, stderr)
	}

	bad := filepath.Join(env.dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("sync: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	var stdout, stderrBuf bytes.Buffer
	if code := Execute(context.Background(), []string{"--config", bad, "list"}, &stdout, &stderrBuf); code == 0 {
		t.Errorf("malformed config should fail")
	}
}

// TestDBFlagOverridesConfig tests that --db wins over the config file
func TestDBFlagOverridesConfig(t *testing.T) {
	env := newTestEnv(t)
	other := filepath.Join(t.TempDir(), "other.db")

	env.mustRun(t, "--db", other, "add", "Elsewhere")

	if _, err := os.Stat(other); err != nil {
		t.Errorf("database not created at --db path: %v", err)
	}
	if out := env.mustRun(t, "list"); strings.Contains(out, "Elsewhere") {
		t.Errorf("task leaked into the configured database:\n%s", out)
	}
}
