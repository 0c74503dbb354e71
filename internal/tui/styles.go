package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/JohanCodinha/tuido/internal/task"
)

var (
	colorPrimary = lipgloss.Color("12")
	colorMuted   = lipgloss.Color("8")
	colorDanger  = lipgloss.Color("9")
	colorWarning = lipgloss.Color("11")
	colorSuccess = lipgloss.Color("10")
)

var (
	TitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	SelectedStyle  = lipgloss.NewStyle().Bold(true).Reverse(true)
	MutedStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	CompletedStyle = lipgloss.NewStyle().Foreground(colorMuted).Strikethrough(true)
	OverdueStyle   = lipgloss.NewStyle().Foreground(colorDanger)
	TagStyle       = lipgloss.NewStyle().Foreground(colorPrimary)
	ErrorStyle     = lipgloss.NewStyle().Foreground(colorDanger)
	StatusStyle    = lipgloss.NewStyle().Foreground(colorSuccess)
	PromptStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorWarning)
)

var priorityStyles = map[task.Priority]lipgloss.Style{
	task.PriorityUrgent: lipgloss.NewStyle().Bold(true).Foreground(colorDanger),
	task.PriorityHigh:   lipgloss.NewStyle().Foreground(colorWarning),
	task.PriorityLow:    MutedStyle,
}
