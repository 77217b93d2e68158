// Package parser extracts a title, a relative due date and a priority from
// free-form task phrases such as "write report tomorrow urgent".
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"taskdesk/internal/models"
)

// DueHour is the local hour every parsed due date is anchored to.
const DueHour = 18

// Result is the outcome of parsing a phrase.
type Result struct {
	Title    string
	DueDate  *models.LocalTime
	Priority models.Priority
}

type priorityGroup struct {
	priority models.Priority
	re       *regexp.Regexp
}

// Checked in order; the first group that matches decides the priority.
var priorityGroups = []priorityGroup{
	{models.PriorityHigh, regexp.MustCompile(`(?i)\b(?:high[\s-]priority|urgent|important|asap|high)\b`)},
	{models.PriorityLow, regexp.MustCompile(`(?i)\b(?:low[\s-]priority|no rush|whenever|low)\b`)},
	{models.PriorityMedium, regexp.MustCompile(`(?i)\b(?:medium[\s-]priority|normal[\s-]priority|normal|medium)\b`)},
}

type datePattern struct {
	re   *regexp.Regexp
	days func(match []string) (int, bool)
}

func fixed(n int) func([]string) (int, bool) {
	return func([]string) (int, bool) { return n, true }
}

var datePatterns = []datePattern{
	{
		re: regexp.MustCompile(`(?i)\b(\d+)\s*days?\s+(?:later|after|from now)\b`),
		days: func(m []string) (int, bool) {
			n, err := strconv.Atoi(m[1])
			return n, err == nil
		},
	},
	{re: regexp.MustCompile(`(?i)\bnext\s*week\b`), days: fixed(7)},
	{re: regexp.MustCompile(`(?i)\b(?:the\s+)?day\s+after\s+tomorrow\b`), days: fixed(2)},
	{re: regexp.MustCompile(`(?i)\btomorrow\b`), days: fixed(1)},
	{re: regexp.MustCompile(`(?i)\btoday\b`), days: fixed(0)},
}

// deadlineWords hint at a deadline without carrying a date of their own.
var deadlineWords = regexp.MustCompile(`(?i)\b(?:by|until)\b`)

var noiseWords = regexp.MustCompile(`(?i)\b(?:please do|please|need to|have to|must|to-?do|register|add|by|until)\b`)

var spaces = regexp.MustCompile(`\s+`)

// Parse never fails: a phrase with nothing recognizable comes back as its
// own title with medium priority and no due date.
func Parse(message string, now time.Time) Result {
	res := Result{Title: message, Priority: models.PriorityMedium}

	for _, g := range priorityGroups {
		if g.re.MatchString(message) {
			res.Priority = g.priority
			res.Title = g.re.ReplaceAllString(res.Title, " ")
			break
		}
	}

	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		days, ok := p.days(m)
		if !ok {
			continue
		}
		res.DueDate = DueIn(now, days)
		res.Title = p.re.ReplaceAllString(res.Title, " ")
		break
	}

	res.Title = noiseWords.ReplaceAllString(res.Title, " ")
	res.Title = strings.TrimSpace(spaces.ReplaceAllString(res.Title, " "))
	return res
}

// DueIn returns the local calendar day `days` after now at DueHour.
func DueIn(now time.Time, days int) *models.LocalTime {
	local := now.In(time.Local)
	y, m, d := local.Date()
	return &models.LocalTime{Time: time.Date(y, m, d+days, DueHour, 0, 0, 0, time.Local)}
}

// MentionsDate reports whether message contains a relative date phrase or a
// deadline word.
func MentionsDate(message string) bool {
	if deadlineWords.MatchString(message) {
		return true
	}
	for _, p := range datePatterns {
		if p.re.MatchString(message) {
			return true
		}
	}
	return false
}
