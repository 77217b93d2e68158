package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// OrDefault returns medium for an empty priority.
func (p Priority) OrDefault() Priority {
	if p == "" {
		return PriorityMedium
	}
	return p
}

// TaskType is descriptive only.
type TaskType string

const (
	TaskTypeGeneral TaskType = "general"
	TaskTypeAI      TaskType = "ai"
)

func (t TaskType) Valid() bool {
	return t == TaskTypeGeneral || t == TaskTypeAI
}

// ProgressEntry is an immutable note appended to a task.
type ProgressEntry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task is a single tracked unit of work.
type Task struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Status          Status          `json:"status"`
	TaskType        TaskType        `json:"taskType"`
	Priority        Priority        `json:"priority"`
	Category        string          `json:"category"`
	Tags            []string        `json:"tags"`
	DueDate         *LocalTime      `json:"dueDate"`
	ProgressHistory []ProgressEntry `json:"progressHistory"`
	CreatedAt       time.Time       `json:"createdAt"`
	CompletedAt     *time.Time      `json:"completedAt"`
}

// Active reports whether the task still needs work.
func (t Task) Active() bool {
	return t.Status != StatusCompleted
}

// Due returns the due date and whether one is set.
func (t Task) Due() (time.Time, bool) {
	if t.DueDate == nil || t.DueDate.IsZero() {
		return time.Time{}, false
	}
	return t.DueDate.Time, true
}

// Clone returns a copy that shares no slices or pointers with t.
func (t Task) Clone() Task {
	c := t
	c.Tags = append([]string{}, t.Tags...)
	c.ProgressHistory = append([]ProgressEntry{}, t.ProgressHistory...)
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	return c
}

// Normalize replaces nil slices with empty ones and drops zero due dates.
// Data read from storage, backups and share links goes through it.
func Normalize(t *Task) {
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.ProgressHistory == nil {
		t.ProgressHistory = []ProgressEntry{}
	}
	if t.DueDate != nil && t.DueDate.IsZero() {
		t.DueDate = nil
	}
}

// LocalTimeLayout is the wire format for due dates: local wall clock, minute precision.
const LocalTimeLayout = "2006-01-02T15:04"

var localTimeLayouts = []string{
	LocalTimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// LocalTime is a due date expressed in local wall-clock time.
type LocalTime struct {
	time.Time
}

// NewLocalTime truncates t to the minute in the local zone.
func NewLocalTime(t time.Time) *LocalTime {
	return &LocalTime{Time: t.In(time.Local).Truncate(time.Minute)}
}

// ParseLocalTime accepts RFC 3339 as well as the browser's datetime-local formats.
func ParseLocalTime(s string) (*LocalTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return NewLocalTime(t), nil
	}
	for _, layout := range localTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return NewLocalTime(t), nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", s)
}

// String formats the value with LocalTimeLayout.
func (l LocalTime) String() string {
	if l.IsZero() {
		return ""
	}
	return l.In(time.Local).Format(LocalTimeLayout)
}

func (l LocalTime) MarshalJSON() ([]byte, error) {
	if l.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(l.String())
}

func (l *LocalTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("due date: %w", err)
	}
	parsed, err := ParseLocalTime(raw)
	if err != nil {
		return err
	}
	if parsed == nil {
		l.Time = time.Time{}
		return nil
	}
	*l = *parsed
	return nil
}
