package chat

import (
	"fmt"
	"strings"

	"taskdesk/internal/models"
	"taskdesk/internal/stats"
)

const displayDate = "2006-01-02"

const (
	helpText = `Hi! I'm your task assistant.

📋 Add a task
• Title (required): what to do
• Due: today / tomorrow / the day after tomorrow / 3 days later / next week
• Priority: urgent / normal / low

📝 Examples:
"Write report tomorrow urgent"
"Prepare meeting 3 days later"

📌 Queries
• "show my tasks"
• "summary"

💬 Anything else goes to the AI.`

	msgNoTasks          = "There are no tasks right now."
	msgNoCompletedTasks = "No completed tasks yet."
	msgCreateFailed     = "Sorry, the task could not be saved. Please try again."
	msgNoWebhook        = "💡 To get AI answers, set the webhook URL in the settings.\n\nTo add a task, type something like \"Write report by tomorrow\"."
	msgBusy             = "Still waiting for the previous answer. Please try again in a moment."
	msgEmptyReply       = "The AI returned an empty response."
	msgUnreadableReply  = "The response could not be processed."
	msgNetworkError     = "A network error occurred.\nPlease check the webhook URL."
)

var statusLabels = map[models.Status]string{
	models.StatusPending:    "Pending",
	models.StatusInProgress: "In progress",
	models.StatusCompleted:  "Completed",
}

var priorityLabels = map[models.Priority]string{
	models.PriorityHigh:   "🔴 High",
	models.PriorityMedium: "🟡 Medium",
	models.PriorityLow:    "🟢 Low",
}

func statusLabel(s models.Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func formatActive(active []models.Task) string {
	if len(active) == 0 {
		return msgNoTasks
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You have %d tasks:\n\n", len(active))
	for i, t := range active {
		fmt.Fprintf(&b, "%d. %s [%s]\n", i+1, t.Title, statusLabel(t.Status))
		if due, ok := t.Due(); ok {
			fmt.Fprintf(&b, "   Due: %s\n", due.Format(displayDate))
		}
	}
	return b.String()
}

func formatCompleted(done []models.Task) string {
	if len(done) == 0 {
		return msgNoCompletedTasks
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Completed tasks (%d):\n\n", len(done))
	for i, t := range done {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t.Title)
	}
	return b.String()
}

func formatSummary(s stats.Stats) string {
	return fmt.Sprintf("Task summary:\n\n"+
		"- Total: %d\n"+
		"- Pending: %d\n"+
		"- In progress: %d\n"+
		"- Completed: %d\n"+
		"- Overdue: %d",
		s.Total, s.Pending, s.InProgress, s.Completed, s.Overdue)
}

func formatCreated(t models.Task) string {
	var b strings.Builder
	b.WriteString("✅ Task added!\n\n")
	fmt.Fprintf(&b, "📌 Title: %s", t.Title)
	if due, ok := t.Due(); ok {
		fmt.Fprintf(&b, "\n📅 Due: %s", due.Format(displayDate))
	}
	fmt.Fprintf(&b, "\n⚡ Priority: %s", priorityLabels[t.Priority.OrDefault()])
	return b.String()
}

func formatStatusFailure(code int) string {
	return fmt.Sprintf("Could not reach the server (%d).", code)
}
