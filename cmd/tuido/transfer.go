package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JohanCodinha/tuido/internal/codec"
	"github.com/JohanCodinha/tuido/internal/task"
)

const (
	formatCSV = "csv"
	formatICS = "ics"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <csv|ics> <file>",
		Short: "Export tasks to CSV or iCalendar",
		Long: `Export tasks. CSV contains every task; iCalendar contains the tasks
that have a due date, one VEVENT each. Use "-" to write to stdout.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{formatCSV, formatICS},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				return runExport(cmd.Context(), a, args[0], args[1])
			})
		},
	}
}

func runExport(ctx context.Context, a *app, format, path string) (err error) {
	if format != formatCSV && format != formatICS {
		return fmt.Errorf("unknown format %q: must be csv or ics", format)
	}

	tasks, err := a.svc.List(ctx, task.Filter{})
	if err != nil {
		return err
	}

	w := a.stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close %s: %w", path, cerr)
			}
		}()
		w = f
	}

	n := len(tasks)
	switch format {
	case formatCSV:
		err = codec.WriteCSV(w, tasks)
	case formatICS:
		n, err = codec.EncodeICS(w, tasks, time.Now().UTC())
	}
	if err != nil {
		return err
	}

	if path != "-" {
		fmt.Fprintf(a.stdout, "exported %d tasks to %s\n", n, path)
	}
	return nil
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <csv|ics> <file>",
		Short: "Import tasks from CSV or iCalendar",
		Long: `Import tasks. CSV rows with an id replace the task with that id;
iCalendar events always become new tasks. Use "-" to read from stdin.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{formatCSV, formatICS},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				return runImport(cmd.Context(), a, args[0], args[1], cmd.InOrStdin())
			})
		},
	}
}

func runImport(ctx context.Context, a *app, format, path string, stdin io.Reader) error {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var (
		tasks []task.Task
		err   error
	)
	switch format {
	case formatCSV:
		tasks, err = codec.ReadCSV(r)
	case formatICS:
		tasks, err = codec.DecodeICS(r)
	default:
		return fmt.Errorf("unknown format %q: must be csv or ics", format)
	}
	if err != nil {
		return err
	}

	for i := range tasks {
		t := &tasks[i]
		if format == formatCSV {
			err = a.tasks.Upsert(ctx, t)
		} else {
			err = a.tasks.Create(ctx, t)
		}
		if err != nil {
			return fmt.Errorf("failed to import %q (%d of %d imported): %w", t.Title, i, len(tasks), err)
		}
	}

	fmt.Fprintf(a.stdout, "imported %d tasks\n", len(tasks))
	return nil
}
