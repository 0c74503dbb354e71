package tui

import (
	"fmt"
	"strings"

	"github.com/JohanCodinha/tuido/internal/codec"
	"github.com/JohanCodinha/tuido/internal/task"
)

// parseQuickAdd reads a one-line task entry. Words starting with '#' are
// tags, "!<priority>" sets the priority and "due:<date>" the due date; the
// remaining words form the title.
//
//	Pay rent due:2025-07-01 #home !high
func parseQuickAdd(line string) (task.CreateParams, error) {
	var p task.CreateParams
	var title []string

	for _, word := range strings.Fields(line) {
		switch {
		case strings.HasPrefix(word, "#") && len(word) > 1:
			p.Tags = append(p.Tags, word[1:])
		case strings.HasPrefix(word, "!") && len(word) > 1:
			prio, err := task.ParsePriority(word[1:])
			if err != nil {
				return p, err
			}
			p.Priority = prio
		case strings.HasPrefix(word, "due:"):
			due, err := codec.ParseDate(strings.TrimPrefix(word, "due:"))
			if err != nil {
				return p, fmt.Errorf("invalid due date %q: %w", word, err)
			}
			p.DueDate = &due
		default:
			title = append(title, word)
		}
	}

	p.Title = strings.Join(title, " ")
	if p.Title == "" {
		return p, fmt.Errorf("title is required")
	}
	return p, nil
}
