package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JohanCodinha/tuido/internal/caldav"
	"github.com/JohanCodinha/tuido/internal/calsync"
	"github.com/JohanCodinha/tuido/internal/codec"
	"github.com/JohanCodinha/tuido/internal/config"
	"github.com/JohanCodinha/tuido/internal/gcal"
	"github.com/JohanCodinha/tuido/internal/logger"
	"github.com/JohanCodinha/tuido/internal/task"
)

// lockWait bounds how long a sync waits for another process to finish.
const lockWait = 5 * time.Second

// newCalendarClient builds the remote client for the configured backend.
func newCalendarClient(ctx context.Context, cfg config.Config) (calsync.Client, error) {
	switch cfg.Sync.Backend {
	case config.BackendCalDAV:
		c, err := caldav.New(caldav.Options{
			URL:      cfg.CalDAV.URL,
			Username: cfg.CalDAV.Username,
			Password: cfg.CalDAV.Password,
			Timeout:  cfg.CalDAV.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendGoogle:
		c, err := gcal.New(ctx, cfg.Google.CredentialsFile, cfg.Google.TokenFile, cfg.Google.Timeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return calsync.NullClient{}, nil
	}
}

func newReconciler(client calsync.Client, cfg config.Config) *calsync.Reconciler {
	return calsync.New(client, calsync.Config{
		Calendar: cfg.Sync.Calendar,
		Retry: calsync.Retry{
			Attempts:    cfg.Sync.RetryAttempts,
			InitialWait: cfg.Sync.RetryWait,
		},
		ConflictDir: cfg.Sync.ConflictDir,
		LockFile:    cfg.Sync.LockFile,
		LockWait:    lockWait,
	})
}

type syncRequest struct {
	from, to       time.Time
	applyDeletions bool
}

// sync runs one cycle over every local task and records what it learned:
// ETags of tasks seen remotely and, when asked, deletions inside the window.
func (a *app) sync(ctx context.Context, req syncRequest) (*calsync.Result, error) {
	client, err := newCalendarClient(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	return a.syncWith(ctx, client, req)
}

func (a *app) syncWith(ctx context.Context, client calsync.Client, req syncRequest) (*calsync.Result, error) {
	start, end := a.cfg.Sync.Window(time.Now().UTC())
	if !req.from.IsZero() {
		start = req.from
	}
	if !req.to.IsZero() {
		end = req.to
	}

	tasks, err := a.svc.List(ctx, task.Filter{})
	if err != nil {
		return nil, err
	}

	res, err := newReconciler(client, a.cfg).Sync(ctx, start, end, tasks)
	if err != nil {
		return nil, fmt.Errorf("sync failed: %w", err)
	}

	for _, t := range tasks {
		etag, ok := res.ETagFor(t.ID)
		if !ok || etag == t.ETag {
			continue
		}
		if err := a.tasks.SetETag(ctx, t.ID, etag); err != nil && !errors.Is(err, task.ErrNotFound) {
			return res, fmt.Errorf("failed to record etag for %s: %w", t.ID, err)
		}
	}

	if req.applyDeletions {
		for _, id := range res.WindowDeleted {
			if err := a.svc.Delete(ctx, id); err != nil && !errors.Is(err, task.ErrNotFound) {
				return res, fmt.Errorf("failed to delete %s: %w", id, err)
			}
			logger.Info("deleted task %s removed from the calendar", id)
		}
	}

	return res, nil
}

func summarize(res *calsync.Result) string {
	return fmt.Sprintf("%d remote events, %d created, %d updated, %d conflicts, %d deleted remotely",
		len(res.RemoteChanges), len(res.Created), len(res.Updated), len(res.Conflicts), len(res.WindowDeleted))
}

type syncOptions struct {
	from           string
	to             string
	applyDeletions bool
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var o syncOptions
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync dated tasks with the configured calendar",
		Long: `Fetch calendar events in the sync window, push tasks that have a due
date, and report tasks whose events disappeared.

The window defaults to sync.window_back before now through
sync.window_ahead after now. A remote event that changed after the
local edit is kept; the local copy is saved to sync.conflict_dir.

Tasks deleted from the calendar are only reported unless
--apply-deletions is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := o.request()
			if err != nil {
				return err
			}
			return opts.withApp(func(a *app) error {
				return runSync(cmd.Context(), a, req)
			})
		},
	}
	cmd.Flags().StringVar(&o.from, "from", "", "window start (default now - sync.window_back)")
	cmd.Flags().StringVar(&o.to, "to", "", "window end (default now + sync.window_ahead)")
	cmd.Flags().BoolVar(&o.applyDeletions, "apply-deletions", false, "delete local tasks whose events were removed")
	return cmd
}

func (o syncOptions) request() (syncRequest, error) {
	req := syncRequest{applyDeletions: o.applyDeletions}
	if o.from != "" {
		from, err := codec.ParseDate(o.from)
		if err != nil {
			return req, fmt.Errorf("invalid --from %q: %w", o.from, err)
		}
		req.from = from
	}
	if o.to != "" {
		to, err := codec.ParseDate(o.to)
		if err != nil {
			return req, fmt.Errorf("invalid --to %q: %w", o.to, err)
		}
		req.to = to
	}
	return req, nil
}

func runSync(ctx context.Context, a *app, req syncRequest) error {
	if a.cfg.Sync.Backend == config.BackendNone {
		fmt.Fprintln(a.stdout, "sync backend is none; set sync.backend in the config")
	}

	res, err := a.sync(ctx, req)
	if err != nil {
		return err
	}
	printResult(a, res, req.applyDeletions)

	if res.HasErrors() {
		return fmt.Errorf("%d tasks failed to sync", len(res.PushErrors))
	}
	return nil
}

func printResult(a *app, res *calsync.Result, applied bool) {
	w := a.stdout
	fmt.Fprintf(w, "window %s .. %s\n", res.Start.Local().Format(time.DateOnly), res.End.Local().Format(time.DateOnly))
	fmt.Fprintln(w, summarize(res))

	for _, c := range res.Conflicts {
		fmt.Fprintf(w, "conflict %s: remote changed %s, local %s\n",
			shortID(c.TaskID), c.Remote.Local().Format(time.RFC3339), c.Local.Local().Format(time.RFC3339))
	}
	if len(res.WindowDeleted) > 0 && !applied {
		fmt.Fprintln(w, "removed from the calendar (use --apply-deletions to delete locally):")
		for _, id := range res.WindowDeleted {
			fmt.Fprintf(w, "  %s\n", shortID(id))
		}
	}
	for _, pe := range res.PushErrors {
		fmt.Fprintf(a.stderr, "failed to %s\n", pe.Error())
	}
}

func newAuthCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize calendar backends",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "google",
		Short: "Authorize access to Google Calendar",
		Long: `Run the OAuth consent flow for Google Calendar and save the token to
google.token_file. The client credentials are read from
google.credentials_file (a Desktop app OAuth client from the Google
Cloud console).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := gcal.OAuthConfig(opts.cfg.Google.CredentialsFile)
			if err != nil {
				return err
			}
			if err := gcal.Login(cmd.Context(), conf, opts.cfg.Google.TokenFile, opts.stdout); err != nil {
				return err
			}
			fmt.Fprintf(opts.stdout, "token saved to %s\n", opts.cfg.Google.TokenFile)
			return nil
		},
	})
	return cmd
}
