// Package tui implements the interactive task list.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/JohanCodinha/tuido/internal/task"
)

// Service is the task API the interface drives.
type Service interface {
	List(ctx context.Context, filter task.Filter) ([]task.Task, error)
	Create(ctx context.Context, p task.CreateParams) (task.Task, error)
	Complete(ctx context.Context, id string) (task.Task, error)
	Reopen(ctx context.Context, id string) (task.Task, error)
	Delete(ctx context.Context, id string) error
}

// SyncFunc runs one calendar sync and returns a one-line summary.
type SyncFunc func(ctx context.Context) (string, error)

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeSearch
	modeConfirmDelete
)

type tasksLoadedMsg struct {
	tasks []task.Task
	err   error
}

type taskSavedMsg struct {
	status string
	err    error
}

type syncDoneMsg struct {
	summary string
	err     error
}

// Model is the bubbletea model of the task list.
type Model struct {
	ctx  context.Context
	svc  Service
	sync SyncFunc
	now  func() time.Time

	keys  keyMap
	help  help.Model
	input textinput.Model
	mode  mode

	tasks         []task.Task
	cursor        int
	showCompleted bool
	query         string
	syncing       bool

	status string
	err    error
	width  int
	height int
}

// New creates the model. sync may be nil when no backend is configured.
func New(ctx context.Context, svc Service, sync SyncFunc) Model {
	input := textinput.New()
	input.CharLimit = 256

	return Model{
		ctx:   ctx,
		svc:   svc,
		sync:  sync,
		now:   time.Now,
		keys:  defaultKeyMap(),
		help:  help.New(),
		input: input,
	}
}

// Init loads the task list.
func (m Model) Init() tea.Cmd {
	return m.load()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tasksLoadedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.tasks = msg.tasks
			m.cursor = max(0, min(m.cursor, len(m.tasks)-1))
		}
		return m, nil

	case taskSavedMsg:
		m.status, m.err = msg.status, msg.err
		return m, m.load()

	case syncDoneMsg:
		m.syncing = false
		m.status, m.err = msg.summary, msg.err
		return m, m.load()

	case tea.KeyMsg:
		switch m.mode {
		case modeAdd, modeSearch:
			return m.updateInput(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		default:
			return m.updateBrowse(msg)
		}
	}

	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Add):
		m.mode = modeAdd
		m.input.Reset()
		m.input.Placeholder = "title due:2025-01-31 #tag !high"
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.input.SetValue(m.query)
		m.input.Placeholder = "search titles and descriptions"
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Toggle):
		if t, ok := m.selected(); ok {
			return m, m.toggle(t)
		}
	case key.Matches(msg, m.keys.Delete):
		if _, ok := m.selected(); ok {
			m.mode = modeConfirmDelete
		}
	case key.Matches(msg, m.keys.Completed):
		m.showCompleted = !m.showCompleted
		return m, m.load()
	case key.Matches(msg, m.keys.Sync):
		return m.startSync()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.load()
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.mode == modeSearch && m.query != "" {
			m.query = ""
			m.closeInput()
			return m, m.load()
		}
		m.closeInput()
		return m, nil

	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		if m.mode == modeSearch {
			m.query = value
			m.closeInput()
			return m, m.load()
		}

		params, err := parseQuickAdd(value)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.closeInput()
		return m, m.create(params)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	t, ok := m.selected()
	if !ok {
		return m, nil
	}

	switch msg.String() {
	case "y", "Y", "enter":
		return m, m.remove(t)
	}
	m.status = "delete cancelled"
	return m, nil
}

func (m Model) startSync() (tea.Model, tea.Cmd) {
	if m.sync == nil {
		m.status = "sync is not configured"
		return m, nil
	}
	if m.syncing {
		return m, nil
	}

	m.syncing = true
	m.status = "syncing..."
	m.err = nil
	fn, ctx := m.sync, m.ctx
	return m, func() tea.Msg {
		summary, err := fn(ctx)
		return syncDoneMsg{summary: summary, err: err}
	}
}

func (m *Model) closeInput() {
	m.mode = modeBrowse
	m.input.Blur()
	m.input.Reset()
}

func (m Model) selected() (task.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.tasks) {
		return task.Task{}, false
	}
	return m.tasks[m.cursor], true
}

// ===== Commands =====

func (m Model) load() tea.Cmd {
	svc, ctx := m.svc, m.ctx
	filter := task.Filter{Search: m.query, OpenOnly: !m.showCompleted}
	return func() tea.Msg {
		tasks, err := svc.List(ctx, filter)
		return tasksLoadedMsg{tasks: tasks, err: err}
	}
}

func (m Model) create(p task.CreateParams) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		t, err := svc.Create(ctx, p)
		if err != nil {
			return taskSavedMsg{err: err}
		}
		return taskSavedMsg{status: fmt.Sprintf("added %q", t.Title)}
	}
}

func (m Model) toggle(t task.Task) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		if t.Status == task.StatusCompleted {
			_, err := svc.Reopen(ctx, t.ID)
			return taskSavedMsg{status: fmt.Sprintf("reopened %q", t.Title), err: err}
		}
		_, err := svc.Complete(ctx, t.ID)
		return taskSavedMsg{status: fmt.Sprintf("completed %q", t.Title), err: err}
	}
}

func (m Model) remove(t task.Task) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		err := svc.Delete(ctx, t.ID)
		return taskSavedMsg{status: fmt.Sprintf("deleted %q", t.Title), err: err}
	}
}

// ===== View =====

// View renders the list.
func (m Model) View() string {
	var b strings.Builder

	header := TitleStyle.Render("tuido")
	open := 0
	for _, t := range m.tasks {
		if t.Status != task.StatusCompleted {
			open++
		}
	}
	header += MutedStyle.Render(fmt.Sprintf("  %d open", open))
	if m.showCompleted {
		header += MutedStyle.Render("  (showing completed)")
	}
	if m.query != "" {
		header += MutedStyle.Render(fmt.Sprintf("  search: %s", m.query))
	}
	b.WriteString(header + "\n\n")

	if len(m.tasks) == 0 {
		b.WriteString(MutedStyle.Render("No tasks. Press a to add one.") + "\n")
	}

	now := m.now()
	start, end := m.visibleRange()
	for i := start; i < end; i++ {
		b.WriteString(m.renderRow(m.tasks[i], i == m.cursor, now) + "\n")
	}

	b.WriteString("\n")
	switch m.mode {
	case modeAdd:
		b.WriteString(PromptStyle.Render("add: ") + m.input.View() + "\n")
	case modeSearch:
		b.WriteString(PromptStyle.Render("search: ") + m.input.View() + "\n")
	case modeConfirmDelete:
		if t, ok := m.selected(); ok {
			b.WriteString(PromptStyle.Render(fmt.Sprintf("delete %q? (y/n)", t.Title)) + "\n")
		}
	}

	if m.err != nil {
		b.WriteString(ErrorStyle.Render("error: "+m.err.Error()) + "\n")
	} else if m.status != "" {
		b.WriteString(StatusStyle.Render(m.status) + "\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderRow(t task.Task, selected bool, now time.Time) string {
	check := "[ ]"
	if t.Status == task.StatusCompleted {
		check = "[x]"
	}

	title := t.Title
	if t.Status == task.StatusCompleted {
		title = CompletedStyle.Render(title)
	} else if style, ok := priorityStyles[t.Priority]; ok {
		title = style.Render(title)
	}

	parts := []string{check, title}
	if t.Status != task.StatusPending && t.Status != task.StatusCompleted {
		parts = append(parts, MutedStyle.Render("("+strings.ReplaceAll(string(t.Status), "_", " ")+")"))
	}
	if t.DueDate != nil {
		due := "due " + t.DueDate.Local().Format("Jan 02")
		if t.IsOverdue(now) {
			due = OverdueStyle.Render(due)
		} else {
			due = MutedStyle.Render(due)
		}
		parts = append(parts, due)
	}
	for _, tag := range t.Tags {
		parts = append(parts, TagStyle.Render("#"+tag))
	}

	row := strings.Join(parts, " ")
	if selected {
		return SelectedStyle.Render(">") + " " + row
	}
	return "  " + row
}

// visibleRange keeps the cursor on screen when the terminal is short.
func (m Model) visibleRange() (int, int) {
	rows := len(m.tasks)
	if m.height <= 0 {
		return 0, rows
	}
	capacity := max(m.height-lipgloss.Height(m.help.View(m.keys))-6, 3)
	if rows <= capacity {
		return 0, rows
	}
	start := max(0, m.cursor-capacity+1)
	return start, min(start+capacity, rows)
}
