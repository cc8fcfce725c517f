package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AlfredDev/alfred/services/fetchengine/store"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Insert(ctx, "k", []byte("v"), nil))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", string(v))
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	require.NoError(t, s.Insert(ctx, "k", []byte("v"), &past))

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 0, s.Len())
}

func TestMemoryStoreInvalidate(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "k", []byte("v"), nil))
	require.NoError(t, s.Invalidate(ctx, "k"))

	_, ok, _ := s.Get(ctx, "k")
	require.False(t, ok)
}

func TestMemoryStoreCopiesOnWriteAndRead(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	value := []byte("v")
	require.NoError(t, s.Insert(ctx, "k", value, nil))
	value[0] = 'x' // mutating the caller's slice must not corrupt the store

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", string(v))
}
