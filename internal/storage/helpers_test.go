package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recase/internal/model"
)

func sampleRun(id string, started time.Time) model.RunRecord {
	return model.RunRecord{
		VersionedRecord: CurrentVersion(),
		ID:              id,
		Haystack:        "DgHLiHf1AwNRiGjYB3DUiGZVEa==",
		WordsLocation:   "/usr/share/dict/words",
		Heads:           4,
		InitialFlip:     0.25,
		Inherit:         0.1,
		Cooling:         0.999,
		Floor:           0.01,
		Seed:            7,
		StartedAt:       started,
	}
}

func sampleCheckpoint(runID string) model.Checkpoint {
	return model.Checkpoint{
		VersionedRecord: CurrentVersion(),
		RunID:           runID,
		Trials:          1200,
		PFlip:           0.04,
		Heads: []model.HeadState{
			{Haystack: "dGhl", Guess: []byte("the"), Score: 181, Valid: true},
			{Haystack: "DGHL", Guess: []byte{0x0c, 0x71, 0xcb}, Score: -175, Valid: true},
		},
		Best:      model.HeadState{Haystack: "dGhl", Guess: []byte("the"), Score: 181, Valid: true},
		UpdatedAt: time.Unix(1700000000, 0).UTC(),
	}
}

// exerciseStore runs the behavior every Store backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	base := time.Unix(1700000000, 0).UTC()
	require.NoError(t, store.SaveRun(ctx, sampleRun("run-b", base.Add(time.Minute))))
	require.NoError(t, store.SaveRun(ctx, sampleRun("run-a", base)))

	run, ok, err := store.GetRun(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "DgHLiHf1AwNRiGjYB3DUiGZVEa==", run.Haystack)
	assert.Equal(t, 4, run.Heads)
	assert.True(t, run.StartedAt.Equal(base))

	_, ok, err = store.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)

	checkpoint := sampleCheckpoint("run-a")
	require.NoError(t, store.SaveCheckpoint(ctx, checkpoint))
	checkpoint.Trials = 2400
	checkpoint.Best.Score = 300
	require.NoError(t, store.SaveCheckpoint(ctx, checkpoint))

	loaded, ok, err := store.GetCheckpoint(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2400), loaded.Trials)
	assert.Equal(t, int64(300), loaded.Best.Score)
	require.Len(t, loaded.Heads, 2)
	assert.Equal(t, []byte{0x0c, 0x71, 0xcb}, loaded.Heads[1].Guess)

	require.NoError(t, store.DeleteRun(ctx, "run-a"))
	_, ok, err = store.GetRun(ctx, "run-a")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.GetCheckpoint(ctx, "run-a")
	require.NoError(t, err)
	assert.False(t, ok)
}
