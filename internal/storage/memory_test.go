package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Init(context.Background()))
	exerciseStore(t, store)
}

func TestMemoryStoreCheckpointIsCopied(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	checkpoint := sampleCheckpoint("run-1")
	require.NoError(t, store.SaveCheckpoint(ctx, checkpoint))
	checkpoint.Heads[0].Guess[0] = 'T'

	loaded, ok, err := store.GetCheckpoint(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("the"), loaded.Heads[0].Guess)

	loaded.Best.Guess[0] = 'X'
	again, _, err := store.GetCheckpoint(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("the"), again.Best.Guess)
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	assert.Error(t, store.SaveRun(context.Background(), sampleRun("r", sampleCheckpoint("r").UpdatedAt)))
	assert.Error(t, store.SaveCheckpoint(context.Background(), sampleCheckpoint("r")))
}
