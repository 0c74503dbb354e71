package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JohanCodinha/tuido/internal/md"
)

// openEditor runs the user's editor on path and waits for it to exit.
var openEditor = func(cmd *cobra.Command, path string) error {
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	args := strings.Fields(editor)
	c := exec.CommandContext(cmd.Context(), args[0], append(args[1:], path)...)
	c.Stdin = cmd.InOrStdin()
	c.Stdout = cmd.OutOrStdout()
	c.Stderr = cmd.ErrOrStderr()
	if err := c.Run(); err != nil {
		return fmt.Errorf("editor %q failed: %w", editor, err)
	}
	return nil
}

func runEditInEditor(cmd *cobra.Command, a *app, ref string) error {
	ctx := cmd.Context()
	t, err := resolveTask(ctx, a, ref)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp("", "tuido-*.md")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	original := md.ToMarkdown(t)
	if _, err := f.WriteString(original); err != nil {
		f.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := openEditor(cmd, path); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read edited file: %w", err)
	}
	if string(data) == original {
		fmt.Fprintln(a.stdout, "no changes")
		return nil
	}

	doc, err := md.FromMarkdown(string(data))
	if err != nil {
		return fmt.Errorf("failed to parse edited task: %w", err)
	}
	u, err := md.DetectChanges(t, doc)
	if err != nil {
		return err
	}
	if u.IsEmpty() {
		fmt.Fprintln(a.stdout, "no changes")
		return nil
	}

	updated, err := a.svc.Update(ctx, t.ID, u)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	fmt.Fprintf(a.stdout, "updated %s %s\n", shortID(updated.ID), updated.Title)
	return nil
}
