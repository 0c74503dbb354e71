package calsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/JohanCodinha/tuido/internal/logger"
	"github.com/JohanCodinha/tuido/internal/task"
)

// Pusher writes dated local tasks to a single target calendar.
type Pusher struct {
	client   Client
	calendar string
	retry    Retry
	now      func() time.Time
	log      zerolog.Logger
}

// NewPusher creates a Pusher targeting the calendar named calendar, or the
// first calendar of the client when calendar is empty.
func NewPusher(client Client, calendar string, retry Retry, now func() time.Time) *Pusher {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Pusher{
		client:   client,
		calendar: calendar,
		retry:    retry,
		now:      now,
		log:      logger.Component("calsync"),
	}
}

// Push creates or updates one remote event per task with a due date, using the
// task id as the event uid. A task that carries an ETag but whose event no
// longer exists is reported in Gone and not re-created. Only calendar
// resolution errors and cancellation are returned; per-task failures are
// collected in the report.
func (p *Pusher) Push(ctx context.Context, tasks []task.Task) (PushReport, error) {
	var report PushReport

	calendars, err := withRetry(ctx, p.retry, p.log, "calendars", p.client.Calendars)
	if err != nil {
		return report, fmt.Errorf("list calendars: %w", err)
	}
	if len(calendars) == 0 {
		p.log.Debug().Msg("no calendars, nothing to push")
		return report, nil
	}

	target, err := p.target(calendars)
	if err != nil {
		return report, err
	}

	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !t.Syncable() {
			report.Skipped++
			continue
		}
		p.pushTask(ctx, target, t, &report)
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	p.log.Debug().
		Str("calendar", target.Name()).
		Int("created", len(report.Created)).
		Int("updated", len(report.Updated)).
		Int("conflicts", len(report.Conflicts)).
		Int("errors", len(report.Errors)).
		Msg("push complete")

	return report, nil
}

func (p *Pusher) target(calendars []Calendar) (Calendar, error) {
	if p.calendar == "" {
		return calendars[0], nil
	}
	for _, cal := range calendars {
		if cal.Name() == p.calendar {
			return cal, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrCalendarNotFound, p.calendar)
}

func (p *Pusher) pushTask(ctx context.Context, cal Calendar, t task.Task, report *PushReport) {
	log := p.log.With().Str("uid", t.ID).Logger()

	ev, err := withRetry(ctx, p.retry, p.log, "lookup", func(ctx context.Context) (Event, error) {
		return cal.EventByUID(ctx, t.ID)
	})
	if err != nil && !errors.Is(err, ErrEventNotFound) {
		// Unknown state: never blindly re-create.
		log.Warn().Err(err).Msg("event lookup failed")
		report.Errors = append(report.Errors, PushError{TaskID: t.ID, Op: OpLookup, Err: err})
		return
	}

	if ev == nil && t.ETag != "" {
		// Seen remotely before and now gone: a remote deletion, not a new task.
		log.Debug().Msg("remote event was deleted, not re-creating")
		report.Gone = append(report.Gone, t.ID)
		return
	}

	stamp := p.now()

	if ev == nil {
		if err := cal.CreateEvent(ctx, t.ID, t.Title, *t.DueDate, stamp); err != nil {
			log.Warn().Err(err).Msg("create failed")
			report.Errors = append(report.Errors, PushError{TaskID: t.ID, Op: OpCreate, Err: err})
			return
		}
		log.Debug().Msg("created remote event")
		report.Created = append(report.Created, t.ID)
		return
	}

	remote := ev.LastModified()
	switch {
	case t.LastModified == nil:
		// No local timestamp: never overwrite.
	case remote.IsZero() || t.LastModified.After(remote):
		if err := ev.Update(ctx, t.Title, *t.DueDate, stamp); err != nil {
			log.Warn().Err(err).Msg("update failed")
			report.Errors = append(report.Errors, PushError{TaskID: t.ID, Op: OpUpdate, Err: err})
			return
		}
		log.Debug().Msg("updated remote event")
		report.Updated = append(report.Updated, t.ID)
	case remote.After(*t.LastModified) && diverged(t, ev):
		log.Info().Time("local", *t.LastModified).Time("remote", remote).Msg("remote copy is newer, keeping it")
		report.Conflicts = append(report.Conflicts, Conflict{TaskID: t.ID, Local: *t.LastModified, Remote: remote})
	}
}

// diverged reports whether the remote event no longer matches the task. A newer
// remote stamp on identical content is the echo of an earlier push.
func diverged(t task.Task, ev Event) bool {
	return ev.Summary() != t.Title || !ev.Start().Equal(*t.DueDate)
}
