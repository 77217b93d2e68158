package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"taskdesk/internal/models"
)

// ErrInvalidFormat is returned when a backup is valid JSON but not an array.
var ErrInvalidFormat = fmt.Errorf("%w: backup file is not in the expected format", ErrValidation)

// BackupFilename names an export taken at now.
func BackupFilename(now time.Time) string {
	return fmt.Sprintf("tasks-backup-%s.json", now.Format("2006-01-02"))
}

// WriteBackup writes tasks as indented JSON.
func WriteBackup(w io.Writer, tasks []models.Task) error {
	if tasks == nil {
		tasks = []models.Task{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tasks); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	return nil
}

// ReadBackup parses a backup document. Only a top-level array is accepted.
func ReadBackup(r io.Reader) ([]models.Task, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read backup: %v", ErrValidation, err)
	}
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: cannot read backup: invalid JSON", ErrValidation)
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrInvalidFormat
	}

	var tasks []models.Task
	if err := json.Unmarshal(trimmed, &tasks); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		return nil, fmt.Errorf("%w: cannot read backup: %v", ErrValidation, err)
	}
	for i := range tasks {
		models.Normalize(&tasks[i])
	}
	return tasks, nil
}

// Import replaces the whole collection with the backup read from r. On any
// error the collection is left untouched.
func (s *Store) Import(ctx context.Context, r io.Reader) (int, error) {
	tasks, err := ReadBackup(r)
	if err != nil {
		return 0, err
	}
	if err := s.ReplaceAll(ctx, tasks); err != nil {
		return 0, err
	}
	s.logger.Info("tasks imported", slog.Int("count", len(tasks)))
	return len(tasks), nil
}

// Export writes the current collection as a backup document.
func (s *Store) Export(w io.Writer) error {
	return WriteBackup(w, s.All())
}
