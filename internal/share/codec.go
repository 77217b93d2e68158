// Package share turns a task list into a compact token for read-only links.
//
// Only title, description, status, priority, due date and category survive
// the trip. Ids, tags, progress history and timestamps are dropped.
package share

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"taskdesk/internal/models"
)

// QueryParam is the URL query parameter carrying the token.
const QueryParam = "share"

// ErrMalformedToken is returned for tokens that cannot be decoded.
var ErrMalformedToken = errors.New("malformed share token")

type sharedTask struct {
	Title       string `json:"t"`
	Description string `json:"d"`
	Status      string `json:"s"`
	Priority    string `json:"p"`
	Due         string `json:"due"`
	Category    string `json:"c"`
}

// Encode projects tasks and returns an unpadded base64url token.
func Encode(tasks []models.Task) (string, error) {
	out := make([]sharedTask, len(tasks))
	for i, t := range tasks {
		out[i] = sharedTask{
			Title:       t.Title,
			Description: t.Description,
			Status:      string(t.Status),
			Priority:    string(t.Priority.OrDefault()),
			Category:    t.Category,
		}
		if t.DueDate != nil {
			out[i].Due = t.DueDate.String()
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode share: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode rebuilds read-only task views from token. The views get ids of the
// form shared-<index> and createdAt set to now.
func Decode(token string, now time.Time) ([]models.Task, error) {
	data, err := decodeBase64(token)
	if err != nil {
		return nil, err
	}
	var in []sharedTask
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if in == nil {
		return nil, fmt.Errorf("%w: not a task list", ErrMalformedToken)
	}

	tasks := make([]models.Task, len(in))
	for i, st := range in {
		due, err := models.ParseLocalTime(st.Due)
		if err != nil {
			due = nil
		}
		tasks[i] = models.Task{
			ID:              fmt.Sprintf("shared-%d", i),
			Title:           st.Title,
			Description:     st.Description,
			Status:          models.Status(st.Status),
			TaskType:        models.TaskTypeGeneral,
			Priority:        models.Priority(st.Priority),
			Category:        st.Category,
			Tags:            []string{},
			DueDate:         due,
			ProgressHistory: []models.ProgressEntry{},
			CreatedAt:       now,
		}
	}
	return tasks, nil
}

// Tokens from older links use standard base64, and query decoding may have
// turned '+' into ' '. All variants are accepted.
func decodeBase64(token string) ([]byte, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedToken)
	}
	token = strings.ReplaceAll(token, " ", "+")
	encodings := []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	for _, enc := range encodings {
		if data, err := enc.DecodeString(token); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid base64", ErrMalformedToken)
}

// Link appends the token to baseURL as the share query parameter.
func Link(baseURL, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set(QueryParam, token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
