// Package reminder periodically checks active tasks against the clock and
// reports the ones that are overdue or about to be.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"taskdesk/internal/models"
)

const (
	DefaultInterval  = time.Minute
	DefaultLookahead = 30 * time.Minute
)

// Kind classifies an alert.
type Kind string

const (
	Overdue Kind = "overdue"
	DueSoon Kind = "due_soon"
)

// Alert is a single notification about one task.
type Alert struct {
	Kind   Kind      `json:"kind"`
	TaskID string    `json:"taskId"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Due    time.Time `json:"due"`
	At     time.Time `json:"at"`
}

// Check returns alerts for active tasks due at or before now+lookahead.
func Check(tasks []models.Task, now time.Time, lookahead time.Duration) []Alert {
	soon := now.Add(lookahead)
	var alerts []Alert
	for _, t := range tasks {
		if !t.Active() {
			continue
		}
		due, ok := t.Due()
		if !ok {
			continue
		}
		switch {
		case !due.After(now):
			alerts = append(alerts, Alert{
				Kind:   Overdue,
				TaskID: t.ID,
				Title:  "Past due!",
				Body:   fmt.Sprintf("%q is past its due time.", t.Title),
				Due:    due,
				At:     now,
			})
		case !due.After(soon):
			alerts = append(alerts, Alert{
				Kind:   DueSoon,
				TaskID: t.ID,
				Title:  "Due soon!",
				Body:   fmt.Sprintf("%q is due within %s.", t.Title, formatWindow(lookahead)),
				Due:    due,
				At:     now,
			})
		}
	}
	return alerts
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return fmt.Sprintf("%d minutes", int(d/time.Minute))
}

// Observer receives alerts. Implementations must not block for long.
type Observer interface {
	Notify(Alert)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Alert)

func (f ObserverFunc) Notify(a Alert) { f(a) }

// Sweeper runs Check on a fixed interval.
type Sweeper struct {
	Source    func() []models.Task
	Observer  Observer
	Interval  time.Duration
	Lookahead time.Duration
	Now       func() time.Time
	Logger    *slog.Logger
}

// Tick runs one sweep and returns the number of alerts emitted.
func (s *Sweeper) Tick() int {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	lookahead := s.Lookahead
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	alerts := Check(s.Source(), now(), lookahead)
	for _, a := range alerts {
		s.Observer.Notify(a)
	}
	return len(alerts)
}

// Run ticks until ctx is done. The first sweep happens after one interval.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Tick(); n > 0 && s.Logger != nil {
				s.Logger.Debug("due date sweep", slog.Int("alerts", n))
			}
		}
	}
}

// LogObserver writes alerts to a logger.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) Notify(a Alert) {
	o.Logger.Info("task alert",
		slog.String("kind", string(a.Kind)),
		slog.String("task", a.TaskID),
		slog.String("body", a.Body))
}

// Multi fans an alert out to several observers.
type Multi []Observer

func (m Multi) Notify(a Alert) {
	for _, o := range m {
		o.Notify(a)
	}
}

// Gate forwards alerts only while Allowed reports true, mirroring a
// notification permission that may be denied.
type Gate struct {
	Allowed func() bool
	Next    Observer
}

func (g Gate) Notify(a Alert) {
	if g.Allowed != nil && !g.Allowed() {
		return
	}
	g.Next.Notify(a)
}

// Feed keeps the most recent alerts so clients can poll for them.
type Feed struct {
	mu     sync.Mutex
	limit  int
	alerts []Alert
}

// NewFeed keeps at most limit alerts.
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = 100
	}
	return &Feed{limit: limit}
}

func (f *Feed) Notify(a Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	if over := len(f.alerts) - f.limit; over > 0 {
		f.alerts = append([]Alert(nil), f.alerts[over:]...)
	}
}

// Since returns alerts emitted after t, oldest first.
func (f *Feed) Since(t time.Time) []Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []Alert{}
	for _, a := range f.alerts {
		if a.At.After(t) {
			out = append(out, a)
		}
	}
	return out
}
