package calsync

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JohanCodinha/tuido/internal/codec"
	"github.com/JohanCodinha/tuido/internal/task"
)

// backupConflict saves the local version of a task that lost to a newer remote
// copy, as <dir>/task_<id>_<timestamp>.ics, and returns the file path.
func backupConflict(dir string, t task.Task, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create conflict directory: %w", err)
	}

	var buf bytes.Buffer
	if _, err := codec.EncodeICS(&buf, []task.Task{t}, now); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("task_%s_%s.ics", safeName(t.ID), now.Format("20060102_150405"))
	path := filepath.Join(dir, filename)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write conflict file: %w", err)
	}

	return path, nil
}

// safeName keeps ids usable as file names.
func safeName(id string) string {
	b := []byte(id)
	for i, c := range b {
		if c == '/' || c == '\\' || c == 0 {
			b[i] = '_'
		}
	}
	return string(b)
}
