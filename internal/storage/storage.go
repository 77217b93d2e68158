// Package storage defines the key-value slot the task store persists into.
package storage

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

// Keys used by the application.
const (
	TasksKey         = "task-manager-data"
	DarkModeKey      = "darkMode"
	NotificationsKey = "notifications"
)

// ErrClosed is returned by a store that has been closed.
var ErrClosed = errors.New("storage closed")

// KV is a string key-value slot. Get reports ok=false for a missing key.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// GetBool reads a boolean preference. Missing or unparsable values yield fallback.
func GetBool(ctx context.Context, kv KV, key string, fallback bool) (bool, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return fallback, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, nil
	}
	return v, nil
}

// SetBool stores a boolean preference as "true" or "false".
func SetBool(ctx context.Context, kv KV, key string, v bool) error {
	return kv.Set(ctx, key, strconv.FormatBool(v))
}

// Memory is an in-process KV, used for tests and share previews.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
	// FailWrites makes Set return an error, to exercise rollback paths.
	FailWrites error
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.data[key] = value
	return nil
}
