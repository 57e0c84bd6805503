package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recase/internal/model"
)

func TestCheckpointCodecRoundTrip(t *testing.T) {
	in := sampleCheckpoint("run-1")
	data, err := EncodeCheckpoint(in)
	require.NoError(t, err)

	out, err := DecodeCheckpoint(data)
	require.NoError(t, err)
	assert.Equal(t, in.RunID, out.RunID)
	assert.Equal(t, in.Heads[1].Guess, out.Heads[1].Guess, "non-UTF-8 guesses survive JSON")
	assert.True(t, in.UpdatedAt.Equal(out.UpdatedAt))
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	run := sampleRun("run-1", sampleCheckpoint("run-1").UpdatedAt)
	run.VersionedRecord = model.VersionedRecord{SchemaVersion: CurrentSchemaVersion + 1, CodecVersion: CurrentCodecVersion}
	data, err := EncodeRun(run)
	require.NoError(t, err)

	_, err = DecodeRun(data)
	assert.True(t, errors.Is(err, ErrVersionMismatch))

	checkpoint := sampleCheckpoint("run-1")
	checkpoint.CodecVersion = 0
	data, err = EncodeCheckpoint(checkpoint)
	require.NoError(t, err)
	_, err = DecodeCheckpoint(data)
	assert.True(t, errors.Is(err, ErrVersionMismatch))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeRun([]byte("{"))
	assert.Error(t, err)
	_, err = DecodeCheckpoint([]byte("[]"))
	assert.Error(t, err)
}
