package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoolPreferences(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	v, err := GetBool(ctx, kv, DarkModeKey, false)
	require.NoError(t, err)
	assert.False(t, v, "missing key falls back")

	require.NoError(t, SetBool(ctx, kv, DarkModeKey, true))
	v, err = GetBool(ctx, kv, DarkModeKey, false)
	require.NoError(t, err)
	assert.True(t, v)

	require.NoError(t, kv.Set(ctx, NotificationsKey, "maybe"))
	v, err = GetBool(ctx, kv, NotificationsKey, true)
	require.NoError(t, err)
	assert.True(t, v, "unparsable value falls back")
}

func TestMemoryFailWrites(t *testing.T) {
	kv := NewMemory()
	boom := errors.New("disk full")
	kv.FailWrites = boom

	assert.ErrorIs(t, kv.Set(context.Background(), "k", "v"), boom)
	_, ok, _ := kv.Get(context.Background(), "k")
	assert.False(t, ok)
}
