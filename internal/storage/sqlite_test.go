//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "recase.db"))
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() {
		_ = store.Close()
	})

	exerciseStore(t, store)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "recase.db")

	first := NewSQLiteStore(path)
	require.NoError(t, first.Init(ctx))
	require.NoError(t, first.SaveCheckpoint(ctx, sampleCheckpoint("run-1")))
	require.NoError(t, first.Close())

	second := NewSQLiteStore(path)
	require.NoError(t, second.Init(ctx))
	t.Cleanup(func() {
		_ = second.Close()
	})

	loaded, ok, err := second.GetCheckpoint(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(181), loaded.Best.Score)
}

func TestSQLiteStoreRequiresPathAndInit(t *testing.T) {
	assert.Error(t, NewSQLiteStore("").Init(context.Background()))
	_, _, err := NewSQLiteStore("x.db").GetRun(context.Background(), "r")
	assert.Error(t, err)
}
