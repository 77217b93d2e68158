package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskSendsQuestion(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`[{"answer": "Paris"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	c.now = func() time.Time { return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC) }

	reply, err := c.Ask(context.Background(), "capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris", reply)
	assert.Equal(t, request{Message: "capital of France?", Type: "question", Timestamp: "2024-01-01T00:00:00Z"}, got)
}

func TestAskStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Ask(context.Background(), "hi")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
}

func TestAskTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, 50*time.Millisecond).Ask(context.Background(), "slow")
	assert.Error(t, err)
}

func TestAskUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).Ask(context.Background(), "hi")
	assert.Error(t, err)
}

func TestExtractReply(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
		err  error
	}{
		{name: "plain text", body: "just text", want: "just text"},
		{name: "response key", body: `{"response": "r"}`, want: "r"},
		{name: "key precedence", body: `{"text": "t", "output": "o"}`, want: "o"},
		{name: "array wrapped", body: `[{"text": "t"}, {"text": "ignored"}]`, want: "t"},
		{name: "empty body", body: "  \n", err: ErrEmptyReply},
		{name: "unknown keys", body: `{"message": "m"}`, err: ErrNoReply},
		{name: "empty array", body: `[]`, err: ErrNoReply},
		{name: "json string", body: `"quoted"`, err: ErrNoReply},
		{name: "numeric reply", body: `{"answer": 42}`, want: "42"},
		{name: "boolean reply", body: `{"output": true}`, want: "true"},
		{name: "object reply", body: `{"response": {"a": 1}}`, want: `{"a":1}`},
		{name: "falsy values skipped", body: `{"response": "", "answer": 0, "output": false, "text": "t"}`, want: "t"},
		{name: "only falsy values", body: `{"response": null, "answer": 0}`, err: ErrNoReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractReply([]byte(tt.body))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
