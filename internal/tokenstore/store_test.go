package tokenstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTokenRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, SessionTokenKey, "abc123"))

	token, err := store.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "abc123", token)

	require.NoError(t, store.Remove(ctx, SessionTokenKey))

	token, err = store.Token(ctx)
	require.NoError(t, err)
	require.Empty(t, token)
}

func TestGetAbsentKeyIsNotAnError(t *testing.T) {
	store := openTestStore(t)

	value, err := store.Get(context.Background(), "never-set")
	require.NoError(t, err)
	require.Empty(t, value)
}

func TestSetOverwrites(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, SessionTokenKey, "first"))
	require.NoError(t, store.Set(ctx, SessionTokenKey, "second"))

	token, err := store.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "second", token)
}
