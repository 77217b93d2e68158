// Package tasks holds the in-memory task collection and persists it as a
// single JSON document in a key-value slot.
package tasks

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"taskdesk/internal/models"
	"taskdesk/internal/storage"
)

var (
	// ErrValidation marks input that was rejected before any state changed.
	ErrValidation = errors.New("validation failed")
	// ErrStorage marks a failed persistence write. The mutation was rolled back.
	ErrStorage = errors.New("storage unavailable")
)

// NewTask carries the user supplied fields of a task being created.
type NewTask struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	TaskType    models.TaskType   `json:"taskType"`
	Priority    models.Priority   `json:"priority"`
	Category    string            `json:"category"`
	Tags        []string          `json:"tags"`
	DueDate     *models.LocalTime `json:"dueDate"`
}

// Patch lists fields to merge into an existing task. Nil fields are left alone.
type Patch struct {
	Title        *string
	Description  *string
	Status       *models.Status
	TaskType     *models.TaskType
	Priority     *models.Priority
	Category     *string
	Tags         *[]string
	DueDate      *models.LocalTime
	ClearDueDate bool
}

// Store keeps tasks in insertion order.
type Store struct {
	mu     sync.RWMutex
	kv     storage.KV
	key    string
	logger *slog.Logger
	tasks  []models.Task

	now     func() time.Time
	entropy io.Reader
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// Open loads the collection from kv. A missing or unreadable slot yields an
// empty collection; read errors are logged, not returned.
func Open(ctx context.Context, kv storage.KV, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		kv:      kv,
		key:     storage.TasksKey,
		logger:  logger,
		tasks:   []models.Task{},
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tasks = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) []models.Task {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logger.Error("failed to load tasks", slog.String("error", err.Error()))
		return []models.Task{}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []models.Task{}
	}
	var loaded []models.Task
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		s.logger.Error("stored tasks are corrupt; starting empty", slog.String("error", err.Error()))
		return []models.Task{}
	}
	for i := range loaded {
		models.Normalize(&loaded[i])
	}
	s.logger.Info("tasks loaded", slog.Int("count", len(loaded)))
	return loaded
}

// mutate applies fn to a copy of the collection and persists the result.
// The copy only replaces the live collection once the write succeeded.
func (s *Store) mutate(ctx context.Context, fn func(tasks []models.Task) ([]models.Task, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Task, len(s.tasks))
	for i, t := range s.tasks {
		next[i] = t.Clone()
	}
	next, changed := fn(next)
	if !changed {
		return nil
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		s.logger.Error("failed to save tasks", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	s.tasks = next
	return nil
}

func (s *Store) newID() string {
	id, err := ulid.New(ulid.Timestamp(s.now()), s.entropy)
	if err != nil {
		return fmt.Sprintf("%d", s.now().UnixNano())
	}
	return strings.ToLower(id.String())
}

// Add creates a task from user input. Free text is escaped before it is stored.
func (s *Store) Add(ctx context.Context, in NewTask) (models.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return models.Task{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return models.Task{}, fmt.Errorf("%w: unknown priority %q", ErrValidation, in.Priority)
	}
	if in.TaskType != "" && !in.TaskType.Valid() {
		return models.Task{}, fmt.Errorf("%w: unknown task type %q", ErrValidation, in.TaskType)
	}

	task := models.Task{
		Title:           Sanitize(in.Title),
		Description:     Sanitize(in.Description),
		Status:          models.StatusInProgress,
		TaskType:        in.TaskType,
		Priority:        in.Priority.OrDefault(),
		Category:        Sanitize(in.Category),
		Tags:            make([]string, 0, len(in.Tags)),
		ProgressHistory: []models.ProgressEntry{},
		CreatedAt:       s.now(),
	}
	if task.TaskType == "" {
		task.TaskType = models.TaskTypeGeneral
	}
	for _, tag := range in.Tags {
		task.Tags = append(task.Tags, Sanitize(tag))
	}
	if in.DueDate != nil && !in.DueDate.IsZero() {
		d := *in.DueDate
		task.DueDate = &d
	}

	err := s.mutate(ctx, func(tasks []models.Task) ([]models.Task, bool) {
		task.ID = s.newID()
		return append(tasks, task), true
	})
	if err != nil {
		return models.Task{}, err
	}
	return task.Clone(), nil
}

// Update merges p into the task with the given id. Text fields are stored as
// given. An unknown id is a no-op.
func (s *Store) Update(ctx context.Context, id string, p Patch) error {
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, *p.Status)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, *p.Priority)
	}
	if p.TaskType != nil && !p.TaskType.Valid() {
		return fmt.Errorf("%w: unknown task type %q", ErrValidation, *p.TaskType)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}

	return s.mutate(ctx, func(tasks []models.Task) ([]models.Task, bool) {
		i := indexOf(tasks, id)
		if i < 0 {
			return tasks, false
		}
		t := &tasks[i]
		if p.Title != nil {
			t.Title = *p.Title
		}
		if p.Description != nil {
			t.Description = *p.Description
		}
		if p.TaskType != nil {
			t.TaskType = *p.TaskType
		}
		if p.Priority != nil {
			t.Priority = *p.Priority
		}
		if p.Category != nil {
			t.Category = *p.Category
		}
		if p.Tags != nil {
			t.Tags = append([]string{}, (*p.Tags)...)
		}
		switch {
		case p.ClearDueDate:
			t.DueDate = nil
		case p.DueDate != nil && !p.DueDate.IsZero():
			d := *p.DueDate
			t.DueDate = &d
		}
		if p.Status != nil && *p.Status != t.Status {
			t.Status = *p.Status
			if t.Status == models.StatusCompleted {
				now := s.now()
				t.CompletedAt = &now
			} else {
				t.CompletedAt = nil
			}
		}
		return tasks, true
	})
}

// Delete removes the task with the given id. An unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, func(tasks []models.Task) ([]models.Task, bool) {
		i := indexOf(tasks, id)
		if i < 0 {
			return tasks, false
		}
		return append(tasks[:i], tasks[i+1:]...), true
	})
}

// Complete marks the task completed and stamps completedAt.
func (s *Store) Complete(ctx context.Context, id string) error {
	return s.mutate(ctx, func(tasks []models.Task) ([]models.Task, bool) {
		i := indexOf(tasks, id)
		if i < 0 {
			return tasks, false
		}
		now := s.now()
		tasks[i].Status = models.StatusCompleted
		tasks[i].CompletedAt = &now
		return tasks, true
	})
}

// AddProgress appends a note and puts the task back in progress, even when
// it was completed.
func (s *Store) AddProgress(ctx context.Context, id, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: progress text is required", ErrValidation)
	}
	return s.mutate(ctx, func(tasks []models.Task) ([]models.Task, bool) {
		i := indexOf(tasks, id)
		if i < 0 {
			return tasks, false
		}
		t := &tasks[i]
		t.ProgressHistory = append(t.ProgressHistory, models.ProgressEntry{
			ID:        uuid.NewString(),
			Text:      Sanitize(text),
			CreatedAt: s.now(),
		})
		t.Status = models.StatusInProgress
		t.CompletedAt = nil
		return tasks, true
	})
}

// ReplaceAll discards the collection and installs tasks as given.
func (s *Store) ReplaceAll(ctx context.Context, tasks []models.Task) error {
	return s.mutate(ctx, func([]models.Task) ([]models.Task, bool) {
		next := make([]models.Task, len(tasks))
		for i, t := range tasks {
			next[i] = t.Clone()
			models.Normalize(&next[i])
		}
		return next, true
	})
}

// All returns a copy of every task in insertion order.
func (s *Store) All() []models.Task {
	return s.filter(func(models.Task) bool { return true })
}

// Active returns tasks that are not completed.
func (s *Store) Active() []models.Task {
	return s.filter(models.Task.Active)
}

// Completed returns completed tasks.
func (s *Store) Completed() []models.Task {
	return s.filter(func(t models.Task) bool { return !t.Active() })
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.tasks, id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return models.Task{}, false
}

func (s *Store) filter(keep func(models.Task) bool) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

func indexOf(tasks []models.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
