// Package main provides the CLI entrypoint for tuido.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/JohanCodinha/tuido/internal/config"
	"github.com/JohanCodinha/tuido/internal/logger"
	"github.com/JohanCodinha/tuido/internal/store"
	"github.com/JohanCodinha/tuido/internal/task"
	"github.com/JohanCodinha/tuido/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	logger.Close()
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

// rootOptions holds the persistent flags and the configuration they resolve to.
type rootOptions struct {
	configPath string
	dbPath     string
	logLevel   string
	logFile    string

	cfg    config.Config
	stdout io.Writer
	stderr io.Writer
}

// app bundles the stores and services a command works with.
type app struct {
	cfg      config.Config
	db       *store.DB
	tasks    *store.TaskStore
	projects *store.ProjectStore
	svc      *task.Service
	stdout   io.Writer
	stderr   io.Writer
}

func (a *app) Close() error {
	return a.db.Close()
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "tuido",
		Short: "A personal task manager with calendar sync",
		Long: `tuido keeps your tasks in a local SQLite database and syncs the ones
with a due date to a CalDAV or Google calendar.

Run without a subcommand to open the interactive task list.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.load,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/tuido/config.yaml)")
	flags.StringVar(&opts.dbPath, "db", "", "database path (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFile, "log-file", "", "also write JSON logs to this file")

	rootCmd.AddCommand(
		newTUICmd(opts),
		newAddCmd(opts),
		newListCmd(opts),
		newShowCmd(opts),
		newEditCmd(opts),
		newDoneCmd(opts),
		newReopenCmd(opts),
		newStatusCmd(opts),
		newRmCmd(opts),
		newTagCmd(opts),
		newTagsCmd(opts),
		newProjectCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newSyncCmd(opts),
		newAuthCmd(opts),
	)

	return rootCmd
}

// load resolves the configuration and sets up logging before any command runs.
func (o *rootOptions) load(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	if o.dbPath != "" {
		cfg.Database = o.dbPath
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	logger.SetOutput(o.stderr)
	if cfg.Log.File != "" {
		if err := logger.SetLogFile(cfg.Log.File); err != nil {
			return err
		}
	}

	o.cfg = cfg
	return nil
}

// open initializes the database and the task service.
func (o *rootOptions) open() (*app, error) {
	db, err := store.InitDB(o.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened at %s", db.Path())

	tasks := store.NewTaskStore(db)
	return &app{
		cfg:      o.cfg,
		db:       db,
		tasks:    tasks,
		projects: store.NewProjectStore(db),
		svc:      task.NewService(tasks),
		stdout:   o.stdout,
		stderr:   o.stderr,
	}, nil
}

// withApp opens the app for the duration of fn.
func (o *rootOptions) withApp(fn func(a *app) error) error {
	a, err := o.open()
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close database: %v", err)
		}
	}()
	return fn(a)
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive task list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}
}

func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	return opts.withApp(func(a *app) error {
		// Console logs would draw over the alternate screen.
		if a.cfg.Log.File == "" {
			logger.SetOutput(io.Discard)
		}

		ctx := cmd.Context()
		var syncFn tui.SyncFunc
		if a.cfg.Sync.Backend != config.BackendNone {
			syncFn = func(ctx context.Context) (string, error) {
				res, err := a.sync(ctx, syncRequest{})
				if err != nil {
					return "", err
				}
				if res.HasErrors() {
					return "", fmt.Errorf("%s; %d failed", summarize(res), len(res.PushErrors))
				}
				return summarize(res), nil
			}
		}

		program := tea.NewProgram(
			tui.New(ctx, a.svc, syncFn),
			tea.WithAltScreen(),
			tea.WithContext(ctx),
			tea.WithInput(cmd.InOrStdin()),
			tea.WithOutput(a.stdout),
		)
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("tui error: %w", err)
		}
		return nil
	})
}
