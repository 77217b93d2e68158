// Package query filters and orders task lists for display.
package query

import (
	"fmt"
	"slices"
	"strings"

	"taskdesk/internal/models"
)

// Order is the due date sort direction. The zero value keeps insertion order.
type Order string

const (
	Unsorted Order = ""
	Asc      Order = "asc"
	Desc     Order = "desc"
)

// ParseOrder validates a sort parameter.
func ParseOrder(s string) (Order, error) {
	switch o := Order(strings.ToLower(strings.TrimSpace(s))); o {
	case Unsorted, Asc, Desc:
		return o, nil
	}
	return Unsorted, fmt.Errorf("invalid sort order %q", s)
}

// Options selects and orders tasks.
type Options struct {
	Search   string
	Priority models.Priority
	DueOrder Order
}

// Apply returns the tasks matching opts. The input slice is not modified.
func Apply(tasks []models.Task, opts Options) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	needle := strings.ToLower(strings.TrimSpace(opts.Search))
	for _, t := range tasks {
		if needle != "" && !matches(t, needle) {
			continue
		}
		if opts.Priority != "" && t.Priority.OrDefault() != opts.Priority {
			continue
		}
		out = append(out, t)
	}

	if opts.DueOrder == Asc || opts.DueOrder == Desc {
		desc := opts.DueOrder == Desc
		slices.SortStableFunc(out, func(a, b models.Task) int {
			return compareDue(a, b, desc)
		})
	}
	return out
}

func matches(t models.Task, needle string) bool {
	if contains(t.Title, needle) || contains(t.Description, needle) || contains(t.Category, needle) {
		return true
	}
	for _, tag := range t.Tags {
		if contains(tag, needle) {
			return true
		}
	}
	return false
}

func contains(s, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(s), lowerNeedle)
}

// Tasks without a due date go last in both directions.
func compareDue(a, b models.Task, desc bool) int {
	da, okA := a.Due()
	db, okB := b.Due()
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}
	c := da.Compare(db)
	if desc {
		return -c
	}
	return c
}
