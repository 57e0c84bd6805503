// Package score ranks arbitrary byte strings by how much they look like
// natural-language text drawn from a corpus.
package score

import (
	"recase/internal/corpus"
)

const (
	alnumPoints      = 10
	whitespacePoints = 5
	controlPoints    = -100
	wordPointsPerLen = 50
	trigramScale     = 10
)

// Score returns the plausibility of guess against c. Higher is more
// plausible; values are only meaningful relative to each other.
func Score(guess []byte, c *corpus.Corpus) int64 {
	var s Scorer
	return s.Score(guess, c)
}

// Scorer computes Score while reusing its lower-case buffer between calls.
// The zero value is ready to use. A Scorer is not safe for concurrent use.
type Scorer struct {
	buf []byte
}

func (s *Scorer) Score(guess []byte, c *corpus.Corpus) int64 {
	s.buf = append(s.buf[:0], guess...)
	lower := s.buf
	corpus.LowerASCII(lower)

	var total int64
	for _, b := range lower {
		total += classPoints(b)
	}

	start := -1
	for i := 0; i <= len(lower); i++ {
		if i < len(lower) && !isSpace(lower[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if word := lower[start:i]; c.Contains(word) {
				total += wordPointsPerLen * int64(len(word))
			}
			start = -1
		}
	}

	if n := int64(c.Total()); n > 0 {
		for t := range corpus.Trigrams(lower) {
			total += int64(c.Frequency(t)) * trigramScale / n
		}
	}
	return total
}

func classPoints(b byte) int64 {
	switch {
	case isAlnum(b):
		return alnumPoints
	case isSpace(b):
		return whitespacePoints
	case isControl(b):
		return controlPoints
	default:
		return 0
	}
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// isSpace matches ASCII whitespace: space, tab, line feed, form feed and
// carriage return. Vertical tab is a control byte.
func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}

func isControl(b byte) bool {
	return b < 0x20 || b == 0x7f
}
