// Package chat implements the rule-based task assistant. Messages are
// classified by an ordered intent table; whatever no intent claims is
// forwarded to an external AI endpoint when one is configured.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"taskdesk/internal/models"
	"taskdesk/internal/parser"
	"taskdesk/internal/stats"
	"taskdesk/internal/tasks"
	"taskdesk/internal/webhook"
)

// Kind tags the outcome of routing a message.
type Kind string

const (
	LocalAnswer         Kind = "local_answer"
	TaskCreated         Kind = "task_created"
	ForwardToAI         Kind = "forward_to_ai"
	NoWebhookConfigured Kind = "no_webhook_configured"
)

// Outcome is the assistant's reply. Task is set for TaskCreated.
type Outcome struct {
	Kind Kind         `json:"kind"`
	Text string       `json:"text"`
	Task *models.Task `json:"task,omitempty"`
}

// Tasks is the part of the task store the router needs.
type Tasks interface {
	All() []models.Task
	Add(ctx context.Context, in tasks.NewTask) (models.Task, error)
}

// Assistant answers free-form questions.
type Assistant interface {
	Ask(ctx context.Context, message string) (string, error)
}

// MinTitleRunes is the shortest parsed title that creates a task.
const MinTitleRunes = 2

type intent struct {
	name   string
	match  func(msg string) bool
	handle func(r *Router, ctx context.Context, msg string) (Outcome, bool)
}

var (
	listQuery     = regexp.MustCompile(`(?i)\b(?:(?:show|list)\s+(?:my\s+|all\s+)?tasks|my\s+tasks|to-?do\s+list|task\s+list)\b`)
	completedWord = regexp.MustCompile(`(?i)\b(?:completed|complete|done|finished)\b`)
	showWord      = regexp.MustCompile(`(?i)\b(?:show|list)\b`)
	summaryQuery  = regexp.MustCompile(`(?i)\b(?:summary|summarize|status|overview|stats)\b`)
	actionWord    = regexp.MustCompile(`(?i)\b(?:add|register|need to|have to|must|to-?do|please)\b`)
)

// Evaluated in order; the first intent whose handler accepts wins.
var intents = []intent{
	{
		name:   "list",
		match:  listQuery.MatchString,
		handle: func(r *Router, _ context.Context, _ string) (Outcome, bool) { return r.listActive(), true },
	},
	{
		name: "completed",
		match: func(msg string) bool {
			return completedWord.MatchString(msg) && showWord.MatchString(msg)
		},
		handle: func(r *Router, _ context.Context, _ string) (Outcome, bool) { return r.listCompleted(), true },
	},
	{
		name:   "summary",
		match:  summaryQuery.MatchString,
		handle: func(r *Router, _ context.Context, _ string) (Outcome, bool) { return r.summary(), true },
	},
	{
		name: "create",
		match: func(msg string) bool {
			return parser.MentionsDate(msg) || actionWord.MatchString(msg)
		},
		handle: (*Router).create,
	},
}

// Router dispatches chat messages.
type Router struct {
	tasks     Tasks
	assistant Assistant
	logger    *slog.Logger
	now       func() time.Time
	pending   atomic.Bool
}

// Option customizes a Router.
type Option func(*Router)

// WithAssistant sets the AI fallback. Without one, unmatched messages get
// a NoWebhookConfigured outcome.
func WithAssistant(a Assistant) Option {
	return func(r *Router) { r.assistant = a }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// NewRouter builds a router over the given task store.
func NewRouter(t Tasks, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{tasks: t, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route classifies message and produces a reply. It never fails; errors on
// the AI path come back as a LocalAnswer.
func (r *Router) Route(ctx context.Context, message string) Outcome {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return Outcome{Kind: LocalAnswer, Text: helpText}
	}
	for _, in := range intents {
		if !in.match(msg) {
			continue
		}
		if out, ok := in.handle(r, ctx, msg); ok {
			r.logger.Debug("chat intent matched", slog.String("intent", in.name))
			return out
		}
	}
	return r.forward(ctx, msg)
}

func (r *Router) listActive() Outcome {
	return Outcome{Kind: LocalAnswer, Text: formatActive(r.activeTasks())}
}

func (r *Router) activeTasks() []models.Task {
	var out []models.Task
	for _, t := range r.tasks.All() {
		if t.Active() {
			out = append(out, t)
		}
	}
	return out
}

func (r *Router) listCompleted() Outcome {
	var done []models.Task
	for _, t := range r.tasks.All() {
		if !t.Active() {
			done = append(done, t)
		}
	}
	return Outcome{Kind: LocalAnswer, Text: formatCompleted(done)}
}

func (r *Router) summary() Outcome {
	return Outcome{Kind: LocalAnswer, Text: formatSummary(stats.Summarize(r.tasks.All(), r.now()))}
}

func (r *Router) create(ctx context.Context, msg string) (Outcome, bool) {
	parsed := parser.Parse(msg, r.now())
	if utf8.RuneCountInString(parsed.Title) < MinTitleRunes {
		return Outcome{}, false
	}
	task, err := r.tasks.Add(ctx, tasks.NewTask{
		Title:    parsed.Title,
		Priority: parsed.Priority,
		DueDate:  parsed.DueDate,
		TaskType: models.TaskTypeGeneral,
		Tags:     []string{},
	})
	if err != nil {
		r.logger.Error("chat task creation failed", slog.String("error", err.Error()))
		return Outcome{Kind: LocalAnswer, Text: msgCreateFailed}, true
	}
	return Outcome{Kind: TaskCreated, Text: formatCreated(task), Task: &task}, true
}

func (r *Router) forward(ctx context.Context, msg string) Outcome {
	if r.assistant == nil {
		return Outcome{Kind: NoWebhookConfigured, Text: msgNoWebhook}
	}
	if !r.pending.CompareAndSwap(false, true) {
		return Outcome{Kind: LocalAnswer, Text: msgBusy}
	}
	defer r.pending.Store(false)

	reply, err := r.assistant.Ask(ctx, msg)
	if err != nil {
		r.logger.Warn("ai webhook failed", slog.String("error", err.Error()))
		return Outcome{Kind: LocalAnswer, Text: describeFailure(err)}
	}
	return Outcome{Kind: ForwardToAI, Text: reply}
}

func describeFailure(err error) string {
	var statusErr *webhook.StatusError
	switch {
	case errors.As(err, &statusErr):
		return formatStatusFailure(statusErr.Code)
	case errors.Is(err, webhook.ErrEmptyReply):
		return msgEmptyReply
	case errors.Is(err, webhook.ErrNoReply):
		return msgUnreadableReply
	default:
		return msgNetworkError
	}
}
