// Package stats aggregates dashboard figures over a task list.
package stats

import (
	"math"
	"time"

	"taskdesk/internal/models"
)

// RecentWindowDays is the trailing window used for RecentCompletions.
const RecentWindowDays = 7

// PriorityCounts counts active tasks per priority.
type PriorityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// CategoryStat is the total/completed pair for one category.
type CategoryStat struct {
	Name      string `json:"name"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
}

// Stats is a snapshot of the collection at a point in time.
type Stats struct {
	Total             int            `json:"total"`
	Pending           int            `json:"pending"`
	InProgress        int            `json:"inProgress"`
	Completed         int            `json:"completed"`
	Overdue           int            `json:"overdue"`
	ActiveByPriority  PriorityCounts `json:"activeByPriority"`
	CompletionRate    int            `json:"completionRate"`
	Categories        []CategoryStat `json:"categories"`
	RecentCompletions int            `json:"recentCompletions"`
}

// Summarize computes Stats for tasks as of now.
func Summarize(tasks []models.Task, now time.Time) Stats {
	s := Stats{Total: len(tasks), Categories: []CategoryStat{}}
	since := now.AddDate(0, 0, -RecentWindowDays)
	byName := map[string]int{}

	for _, t := range tasks {
		switch t.Status {
		case models.StatusPending:
			s.Pending++
		case models.StatusInProgress:
			s.InProgress++
		case models.StatusCompleted:
			s.Completed++
			if t.CompletedAt != nil && !t.CompletedAt.Before(since) {
				s.RecentCompletions++
			}
		}

		if t.Active() {
			if due, ok := t.Due(); ok && due.Before(now) {
				s.Overdue++
			}
			switch t.Priority.OrDefault() {
			case models.PriorityHigh:
				s.ActiveByPriority.High++
			case models.PriorityMedium:
				s.ActiveByPriority.Medium++
			case models.PriorityLow:
				s.ActiveByPriority.Low++
			}
		}

		if t.Category == "" {
			continue
		}
		i, ok := byName[t.Category]
		if !ok {
			i = len(s.Categories)
			byName[t.Category] = i
			s.Categories = append(s.Categories, CategoryStat{Name: t.Category})
		}
		s.Categories[i].Total++
		if t.Status == models.StatusCompleted {
			s.Categories[i].Completed++
		}
	}

	if s.Total > 0 {
		s.CompletionRate = int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
	}
	return s
}
