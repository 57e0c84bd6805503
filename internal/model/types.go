package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord describes one search run: the attacked haystack and the
// parameters it was started with.
type RunRecord struct {
	VersionedRecord
	ID            string    `json:"id"`
	Haystack      string    `json:"haystack"`
	WordsLocation string    `json:"words_location"`
	Heads         int       `json:"heads"`
	InitialFlip   float64   `json:"initial_flip"`
	Inherit       float64   `json:"inherit"`
	Cooling       float64   `json:"cooling"`
	Floor         float64   `json:"floor"`
	Seed          int64     `json:"seed"`
	StartedAt     time.Time `json:"started_at"`
}

// HeadState is a persisted search state. Guess is only meaningful when Valid.
type HeadState struct {
	Haystack string `json:"haystack"`
	Guess    []byte `json:"guess"`
	Score    int64  `json:"score"`
	Valid    bool   `json:"valid"`
}

// Checkpoint is the resumable state of a run after Trials iterations.
type Checkpoint struct {
	VersionedRecord
	RunID     string      `json:"run_id"`
	Trials    int64       `json:"trials"`
	PFlip     float64     `json:"p_flip"`
	Heads     []HeadState `json:"heads"`
	Best      HeadState   `json:"best"`
	UpdatedAt time.Time   `json:"updated_at"`
}
