// Package webhook forwards free-form chat questions to an external AI
// endpoint and extracts a readable reply.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const maxReplyBytes = 1 << 20

var (
	// ErrEmptyReply is returned when the endpoint answers with an empty body.
	ErrEmptyReply = errors.New("empty reply")
	// ErrNoReply is returned when a JSON answer has none of the reply fields.
	ErrNoReply = errors.New("reply field not found")
)

// ReplyKeys are the accepted field names for the reply text, in lookup order.
var ReplyKeys = []string{"response", "answer", "output", "text"}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.Code)
}

type request struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// Client posts questions to a single webhook URL.
type Client struct {
	url    string
	client *http.Client
	now    func() time.Time
}

// New returns a client whose calls give up after timeout.
func New(url string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// Ask sends message and returns the reply text.
func (c *Client) Ask(ctx context.Context, message string) (string, error) {
	body, err := json.Marshal(request{
		Message:   message,
		Type:      "question",
		Timestamp: c.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return ExtractReply(raw)
}

// ExtractReply accepts a plain text body, a JSON object, or a JSON array whose
// first element is the object.
func ExtractReply(raw []byte) (string, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", ErrEmptyReply
	}

	var data any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return string(raw), nil
	}
	if list, ok := data.([]any); ok && len(list) > 0 {
		data = list[0]
	}
	obj, ok := data.(map[string]any)
	if !ok {
		return "", ErrNoReply
	}
	for _, key := range ReplyKeys {
		if s, ok := replyText(obj[key]); ok {
			return s, nil
		}
	}
	return "", ErrNoReply
}

// replyText renders a truthy reply value. Empty strings, zero, false and null
// are skipped; nested objects and arrays are returned as compact JSON.
func replyText(v any) (string, bool) {
	switch v := v.(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case bool:
		return "true", v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), v != 0
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v), true
		}
		return string(data), true
	}
}
