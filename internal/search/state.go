package search

import (
	"math"

	"recase/internal/model"
)

// State is one search head (or the global best): a case-mutated haystack,
// its decoded guess and the guess's score. Guess and Score are only
// meaningful when Valid.
type State struct {
	Haystack []byte
	Guess    []byte
	Score    int64
	Valid    bool
}

// copyFrom overwrites s with o, reusing s's backing arrays.
func (s *State) copyFrom(o *State) {
	s.Haystack = append(s.Haystack[:0], o.Haystack...)
	s.Guess = append(s.Guess[:0], o.Guess...)
	s.Score = o.Score
	s.Valid = o.Valid
}

func (s *State) invalidate() {
	s.Guess = s.Guess[:0]
	s.Score = math.MinInt64
	s.Valid = false
}

// beats reports whether a scored trial strictly improves on s.
func (s *State) beats(score int64) bool {
	return !s.Valid || score > s.Score
}

func (s *State) record() model.HeadState {
	return model.HeadState{
		Haystack: string(s.Haystack),
		Guess:    append([]byte(nil), s.Guess...),
		Score:    s.Score,
		Valid:    s.Valid,
	}
}

func stateFromRecord(h model.HeadState) State {
	st := State{
		Haystack: []byte(h.Haystack),
		Guess:    append([]byte(nil), h.Guess...),
		Score:    h.Score,
		Valid:    h.Valid,
	}
	if !st.Valid {
		st.invalidate()
	}
	return st
}
