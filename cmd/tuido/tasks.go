package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/JohanCodinha/tuido/internal/codec"
	"github.com/JohanCodinha/tuido/internal/md"
	"github.com/JohanCodinha/tuido/internal/store"
	"github.com/JohanCodinha/tuido/internal/task"
)

const shortIDLen = 8

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// resolveTask finds a task by full id or unique id prefix.
func resolveTask(ctx context.Context, a *app, ref string) (task.Task, error) {
	t, err := a.svc.Get(ctx, ref)
	if err == nil || !errors.Is(err, task.ErrNotFound) {
		return t, err
	}

	all, err := a.svc.List(ctx, task.Filter{})
	if err != nil {
		return task.Task{}, err
	}
	var matches []task.Task
	for _, t := range all {
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return task.Task{}, fmt.Errorf("%w: %s", task.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return task.Task{}, fmt.Errorf("task id %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// resolveProject finds a project by name, then by id.
func resolveProject(ctx context.Context, a *app, ref string) (store.Project, error) {
	p, err := a.projects.FindByName(ctx, ref)
	if errors.Is(err, store.ErrProjectNotFound) {
		p, err = a.projects.Get(ctx, ref)
	}
	if err != nil {
		return store.Project{}, fmt.Errorf("%w: %s", err, ref)
	}
	return p, nil
}

func parseDue(s string) (*time.Time, error) {
	due, err := codec.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q: %w", s, err)
	}
	return &due, nil
}

// ============================================================================
// add
// ============================================================================

type addOptions struct {
	description string
	due         string
	priority    string
	tags        []string
	project     string
	parent      string
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var o addOptions
	cmd := &cobra.Command{
		Use:   "add <title>...",
		Short: "Add a task",
		Long: `Add a task. All arguments are joined into the title.

Due dates accept 2006-01-02, 2006-01-02 15:04 or RFC3339.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				return runAdd(cmd.Context(), a, strings.Join(args, " "), o)
			})
		},
	}
	cmd.Flags().StringVarP(&o.description, "description", "d", "", "task description")
	cmd.Flags().StringVar(&o.due, "due", "", "due date")
	cmd.Flags().StringVarP(&o.priority, "priority", "p", "", "low, medium, high or urgent")
	cmd.Flags().StringSliceVarP(&o.tags, "tag", "t", nil, "tag (repeatable)")
	cmd.Flags().StringVar(&o.project, "project", "", "project name or id")
	cmd.Flags().StringVar(&o.parent, "parent", "", "parent task id")
	return cmd
}

func runAdd(ctx context.Context, a *app, title string, o addOptions) error {
	params := task.CreateParams{
		Title:       title,
		Description: o.description,
		Tags:        o.tags,
	}

	if o.due != "" {
		due, err := parseDue(o.due)
		if err != nil {
			return err
		}
		params.DueDate = due
	}
	if o.priority != "" {
		prio, err := task.ParsePriority(o.priority)
		if err != nil {
			return err
		}
		params.Priority = prio
	}
	if o.project != "" {
		p, err := resolveProject(ctx, a, o.project)
		if err != nil {
			return err
		}
		params.ProjectID = p.ID
	}
	if o.parent != "" {
		parent, err := resolveTask(ctx, a, o.parent)
		if err != nil {
			return fmt.Errorf("invalid parent: %w", err)
		}
		params.ParentID = parent.ID
	}

	t, err := a.svc.Create(ctx, params)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "created %s %s\n", shortID(t.ID), t.Title)
	return nil
}

// ============================================================================
// list / show
// ============================================================================

type listOptions struct {
	status  string
	project string
	tag     string
	search  string
	overdue bool
	all     bool
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var o listOptions
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Long: `List tasks ordered by due date. Completed and canceled tasks are
hidden unless --all or --status is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				return runList(cmd.Context(), a, o)
			})
		},
	}
	cmd.Flags().StringVar(&o.status, "status", "", "only tasks with this status")
	cmd.Flags().StringVar(&o.project, "project", "", "only tasks in this project")
	cmd.Flags().StringVar(&o.tag, "tag", "", "only tasks with this tag")
	cmd.Flags().StringVarP(&o.search, "search", "s", "", "match title or description")
	cmd.Flags().BoolVar(&o.overdue, "overdue", false, "only open tasks past their due date")
	cmd.Flags().BoolVarP(&o.all, "all", "a", false, "include completed and canceled tasks")
	return cmd
}

func runList(ctx context.Context, a *app, o listOptions) error {
	filter := task.Filter{
		Tag:      o.tag,
		Search:   o.search,
		OpenOnly: !o.all,
	}

	if o.status != "" {
		status, err := task.ParseStatus(o.status)
		if err != nil {
			return err
		}
		filter.Status = status
		filter.OpenOnly = false
	}
	if o.project != "" {
		p, err := resolveProject(ctx, a, o.project)
		if err != nil {
			return err
		}
		filter.ProjectID = p.ID
	}
	if o.overdue {
		now := time.Now().UTC()
		filter.DueBefore = &now
		filter.OpenOnly = true
	}

	tasks, err := a.svc.List(ctx, filter)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(a.stdout, "no tasks")
		return nil
	}

	printTasks(a.stdout, tasks)
	return nil
}

func printTasks(w io.Writer, tasks []task.Task) {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "STATUS", "PRIORITY", "DUE", "TITLE", "TAGS")

	for _, t := range tasks {
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Local().Format("2006-01-02 15:04")
		}
		tbl.Row(shortID(t.ID), string(t.Status), string(t.Priority), due, t.Title, strings.Join(t.Tags, ","))
	}

	fmt.Fprintln(w, tbl.String())
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var markdown bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show every field of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				t, err := resolveTask(cmd.Context(), a, args[0])
				if err != nil {
					return err
				}
				if markdown {
					fmt.Fprint(a.stdout, md.ToMarkdown(t))
					return nil
				}
				printTask(cmd.Context(), a, t)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print the task as markdown with frontmatter")
	return cmd
}

func printTask(ctx context.Context, a *app, t task.Task) {
	w := a.stdout
	fmt.Fprintf(w, "ID:          %s\n", t.ID)
	fmt.Fprintf(w, "Title:       %s\n", t.Title)
	if t.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", t.Description)
	}
	fmt.Fprintf(w, "Status:      %s\n", t.Status)
	fmt.Fprintf(w, "Priority:    %s\n", t.Priority)
	if t.DueDate != nil {
		fmt.Fprintf(w, "Due:         %s\n", t.DueDate.Local().Format(time.RFC3339))
	}
	if t.CompletedAt != nil {
		fmt.Fprintf(w, "Completed:   %s\n", t.CompletedAt.Local().Format(time.RFC3339))
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(w, "Tags:        %s\n", strings.Join(t.Tags, ", "))
	}
	if t.ProjectID != "" {
		name := t.ProjectID
		if p, err := a.projects.Get(ctx, t.ProjectID); err == nil {
			name = p.Name
		}
		fmt.Fprintf(w, "Project:     %s\n", name)
	}
	if t.ParentID != "" {
		fmt.Fprintf(w, "Parent:      %s\n", t.ParentID)
	}
	fmt.Fprintf(w, "Created:     %s\n", t.CreatedAt.Local().Format(time.RFC3339))
	if t.LastModified != nil {
		fmt.Fprintf(w, "Modified:    %s\n", t.LastModified.Local().Format(time.RFC3339))
	}
	if t.ETag != "" {
		fmt.Fprintf(w, "ETag:        %s\n", t.ETag)
	}
}

// ============================================================================
// edit / status / done / reopen / rm
// ============================================================================

type editOptions struct {
	editor      bool
	title       string
	description string
	due         string
	clearDue    bool
	priority    string
	project     string
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	var o editOptions
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a task",
		Long: `Change fields of a task. Only the flags given are updated.

With --editor the task opens as a markdown file in $VISUAL or $EDITOR;
the frontmatter and the title and description sections are applied
when the editor exits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				if o.editor {
					return runEditInEditor(cmd, a, args[0])
				}
				return runEdit(cmd, a, args[0], o)
			})
		},
	}
	cmd.Flags().BoolVarP(&o.editor, "editor", "e", false, "edit the task as markdown in $EDITOR")
	cmd.Flags().StringVar(&o.title, "title", "", "new title")
	cmd.Flags().StringVarP(&o.description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&o.due, "due", "", "new due date")
	cmd.Flags().BoolVar(&o.clearDue, "clear-due", false, "remove the due date")
	cmd.Flags().StringVarP(&o.priority, "priority", "p", "", "new priority")
	cmd.Flags().StringVar(&o.project, "project", "", `project name or id ("" to detach)`)
	cmd.MarkFlagsMutuallyExclusive("due", "clear-due")
	return cmd
}

func runEdit(cmd *cobra.Command, a *app, ref string, o editOptions) error {
	ctx := cmd.Context()
	t, err := resolveTask(ctx, a, ref)
	if err != nil {
		return err
	}

	var u task.Update
	flags := cmd.Flags()
	if flags.Changed("title") {
		title := strings.TrimSpace(o.title)
		if title == "" {
			return fmt.Errorf("title cannot be empty")
		}
		u.Title = &title
	}
	if flags.Changed("description") {
		u.Description = &o.description
	}
	if flags.Changed("due") {
		if u.DueDate, err = parseDue(o.due); err != nil {
			return err
		}
	}
	u.ClearDueDate = o.clearDue
	if flags.Changed("priority") {
		prio, err := task.ParsePriority(o.priority)
		if err != nil {
			return err
		}
		u.Priority = &prio
	}
	if flags.Changed("project") {
		projectID := ""
		if o.project != "" {
			p, err := resolveProject(ctx, a, o.project)
			if err != nil {
				return err
			}
			projectID = p.ID
		}
		u.ProjectID = &projectID
	}

	if u.IsEmpty() {
		return fmt.Errorf("nothing to change")
	}

	updated, err := a.svc.Update(ctx, t.ID, u)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	fmt.Fprintf(a.stdout, "updated %s %s\n", shortID(updated.ID), updated.Title)
	return nil
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set the status of a task",
		Long: fmt.Sprintf(`Set the status of a task.

Valid statuses: %s.`, joinStatuses()),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := task.ParseStatus(args[1])
			if err != nil {
				return err
			}
			return opts.withApp(func(a *app) error {
				return setStatus(cmd.Context(), a, args[0], status)
			})
		},
	}
}

func joinStatuses() string {
	names := make([]string, len(task.Statuses))
	for i, s := range task.Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func newDoneCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>...",
		Short: "Mark tasks completed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				for _, ref := range args {
					if err := setStatus(cmd.Context(), a, ref, task.StatusCompleted); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newReopenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <id>...",
		Short: "Move tasks back to pending",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				for _, ref := range args {
					if err := setStatus(cmd.Context(), a, ref, task.StatusPending); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func setStatus(ctx context.Context, a *app, ref string, status task.Status) error {
	t, err := resolveTask(ctx, a, ref)
	if err != nil {
		return err
	}
	updated, err := a.svc.SetStatus(ctx, t.ID, status)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	fmt.Fprintf(a.stdout, "%s %s: %s\n", shortID(updated.ID), updated.Title, updated.Status)
	return nil
}

func newRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete tasks",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				ctx := cmd.Context()
				for _, ref := range args {
					t, err := resolveTask(ctx, a, ref)
					if err != nil {
						return err
					}
					if err := a.svc.Delete(ctx, t.ID); err != nil {
						return err
					}
					fmt.Fprintf(a.stdout, "deleted %s %s\n", shortID(t.ID), t.Title)
				}
				return nil
			})
		},
	}
}

// ============================================================================
// tags
// ============================================================================

func newTagCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Add or remove task tags",
	}

	edit := func(use, short string, apply func(*task.Service, context.Context, string, string) (task.Task, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id> <tag>...",
			Short: short,
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(func(a *app) error {
					ctx := cmd.Context()
					t, err := resolveTask(ctx, a, args[0])
					if err != nil {
						return err
					}
					for _, tag := range args[1:] {
						if t, err = apply(a.svc, ctx, t.ID, tag); err != nil {
							return err
						}
					}
					fmt.Fprintf(a.stdout, "%s %s: [%s]\n", shortID(t.ID), t.Title, strings.Join(t.Tags, ", "))
					return nil
				})
			},
		}
	}

	cmd.AddCommand(
		edit("add", "Add tags to a task", (*task.Service).AddTag),
		edit("rm", "Remove tags from a task", (*task.Service).RemoveTag),
	)
	return cmd
}

func newTagsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				counts, err := a.tasks.TagCounts(cmd.Context())
				if err != nil {
					return err
				}
				if len(counts) == 0 {
					fmt.Fprintln(a.stdout, "no tags")
					return nil
				}
				for _, tc := range counts {
					fmt.Fprintf(a.stdout, "%s (%d)\n", tc.Name, tc.Count)
				}
				return nil
			})
		},
	}
}
