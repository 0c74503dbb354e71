package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JohanCodinha/tuido/internal/store"
)

func newProjectCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Manage projects",
	}
	cmd.AddCommand(
		newProjectAddCmd(opts),
		newProjectListCmd(opts),
		newProjectRmCmd(opts),
	)
	return cmd
}

func newProjectAddCmd(opts *rootOptions) *cobra.Command {
	var p store.Project
	var parent string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				ctx := cmd.Context()
				p.Name = args[0]
				if parent != "" {
					pp, err := resolveProject(ctx, a, parent)
					if err != nil {
						return fmt.Errorf("invalid parent: %w", err)
					}
					p.ParentID = pp.ID
				}
				if err := a.projects.Create(ctx, &p); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "created project %s (%s)\n", p.Name, shortID(p.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&p.Description, "description", "d", "", "project description")
	cmd.Flags().StringVar(&p.Color, "color", "", "display color (default blue)")
	cmd.Flags().StringVar(&parent, "parent", "", "parent project name or id")
	return cmd
}

func newProjectListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects as a tree",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				ctx := cmd.Context()
				roots, err := a.projects.Roots(ctx)
				if err != nil {
					return err
				}
				if len(roots) == 0 {
					fmt.Fprintln(a.stdout, "no projects")
					return nil
				}
				for _, p := range roots {
					if err := printProjectTree(ctx, a, p, 0, map[string]bool{}); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func printProjectTree(ctx context.Context, a *app, p store.Project, depth int, seen map[string]bool) error {
	if seen[p.ID] {
		return nil
	}
	seen[p.ID] = true

	line := fmt.Sprintf("%s%s [%s] (%s)", strings.Repeat("  ", depth), p.Name, p.Color, shortID(p.ID))
	if p.Description != "" {
		line += " - " + p.Description
	}
	fmt.Fprintln(a.stdout, line)

	children, err := a.projects.Subprojects(ctx, p.ID)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := printProjectTree(ctx, a, c, depth+1, seen); err != nil {
			return err
		}
	}
	return nil
}

func newProjectRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name|id>",
		Short: "Delete a project",
		Long:  `Delete a project. Its tasks and subprojects are kept and detached.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				ctx := cmd.Context()
				p, err := resolveProject(ctx, a, args[0])
				if err != nil {
					return err
				}
				if _, err := a.projects.Delete(ctx, p.ID); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "deleted project %s\n", p.Name)
				return nil
			})
		},
	}
}
