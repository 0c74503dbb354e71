package calsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/JohanCodinha/tuido/internal/logger"
	"github.com/JohanCodinha/tuido/internal/task"
)

// Config configures a Reconciler.
type Config struct {
	// Calendar names the push target. Empty selects the first calendar.
	Calendar string
	Retry    Retry
	// ConflictDir receives a backup of each task that lost a conflict. Empty disables backups.
	ConflictDir string
	// LockFile serializes sync cycles across processes. Empty disables it.
	LockFile string
	// LockWait is how long to wait for LockFile before ErrSyncInProgress.
	LockWait time.Duration
	// Now overrides the clock used for write stamps.
	Now func() time.Time
}

// Reconciler runs sync cycles against one Client. Cycles on the same
// Reconciler never overlap.
type Reconciler struct {
	cfg     Config
	fetcher *Fetcher
	pusher  *Pusher
	now     func() time.Time
	log     zerolog.Logger

	mu sync.Mutex
}

// New creates a Reconciler for client.
func New(client Client, cfg Config) *Reconciler {
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Reconciler{
		cfg:     cfg,
		fetcher: NewFetcher(client, cfg.Retry),
		pusher:  NewPusher(client, cfg.Calendar, cfg.Retry, now),
		now:     now,
		log:     logger.Component("calsync"),
	}
}

// Sync fetches remote changes in [start, end], pushes the dated tasks, and
// reports which local tasks are missing remotely. It never modifies tasks.
//
// Every task is offered to the push phase. A task that was seen remotely
// before (non-empty ETag) and whose event the push lookup no longer finds is
// not re-created; when it is due inside the window it is listed in
// Result.WindowDeleted.
func (r *Reconciler) Sync(ctx context.Context, start, end time.Time, tasks []task.Task) (*Result, error) {
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidWindow, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	unlock, err := acquireLock(ctx, r.cfg.LockFile, r.cfg.LockWait)
	if err != nil {
		return nil, err
	}
	defer unlock()

	r.log.Debug().Time("start", start).Time("end", end).Int("tasks", len(tasks)).Msg("sync started")

	// Phase 1: fetch.
	changes, err := r.fetcher.Fetch(ctx, start, end)
	if err != nil {
		return nil, err
	}

	remote := make(map[string]struct{}, len(changes))
	for _, c := range changes {
		if c.UID != "" {
			remote[c.UID] = struct{}{}
		}
	}

	// Phase 2: push.
	report, err := r.pusher.Push(ctx, tasks)
	if err != nil {
		return nil, err
	}

	// Phase 3: deletion diff.
	res := &Result{
		Start:         start,
		End:           end,
		RemoteChanges: changes,
		RemoteDeleted: []string{},
		WindowDeleted: []string{},
		Created:       report.Created,
		Updated:       report.Updated,
		Conflicts:     report.Conflicts,
		PushErrors:    report.Errors,
	}

	gone := make(map[string]struct{}, len(report.Gone))
	for _, id := range report.Gone {
		gone[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}

		if _, ok := remote[t.ID]; ok {
			continue
		}
		res.RemoteDeleted = append(res.RemoteDeleted, t.ID)
		if _, ok := gone[t.ID]; ok && dueWithin(t, start, end) {
			res.WindowDeleted = append(res.WindowDeleted, t.ID)
		}
	}

	r.backupConflicts(tasks, res.Conflicts)

	r.log.Info().
		Int("remote", len(changes)).
		Int("created", len(res.Created)).
		Int("updated", len(res.Updated)).
		Int("conflicts", len(res.Conflicts)).
		Int("deleted", len(res.WindowDeleted)).
		Int("errors", len(res.PushErrors)).
		Msg("sync complete")

	return res, nil
}

func (r *Reconciler) backupConflicts(tasks []task.Task, conflicts []Conflict) {
	if r.cfg.ConflictDir == "" || len(conflicts) == 0 {
		return
	}

	byID := make(map[string]task.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	now := r.now()
	for _, c := range conflicts {
		t, ok := byID[c.TaskID]
		if !ok {
			continue
		}
		path, err := backupConflict(r.cfg.ConflictDir, t, now)
		if err != nil {
			r.log.Warn().Err(err).Str("uid", t.ID).Msg("failed to back up conflicting task")
			continue
		}
		r.log.Info().Str("uid", t.ID).Str("path", path).Msg("backed up local copy")
	}
}

func dueWithin(t task.Task, start, end time.Time) bool {
	return t.DueDate != nil && !t.DueDate.Before(start) && !t.DueDate.After(end)
}
