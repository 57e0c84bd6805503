package search

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"recase/internal/corpus"
)

// Progress describes one scored trial. Byte slices alias driver buffers and
// are only valid for the duration of the Reporter call.
type Progress struct {
	Trial        int64
	Head         int
	PFlip        float64
	BestScore    int64
	Score        int64
	BestGuess    []byte
	Guess        []byte
	Improved     bool
	BestHaystack []byte
}

// Reporter consumes search progress. Calls happen on the search goroutine.
type Reporter interface {
	Progress(p Progress)
	InvalidTail(trial int64, head int, haystack []byte, err error)
}

type nopReporter struct{}

func (nopReporter) Progress(Progress)                     {}
func (nopReporter) InvalidTail(int64, int, []byte, error) {}

// NopReporter drops every event.
func NopReporter() Reporter {
	return nopReporter{}
}

// TextReporter writes one human-readable line per event. When built with a
// positive line rate, non-improving progress lines above that rate are
// dropped; improvements and diagnostics are always written.
type TextReporter struct {
	w       *bufio.Writer
	limiter *rate.Limiter
	err     error
}

func NewTextReporter(w io.Writer, linesPerSecond float64) *TextReporter {
	limit := rate.Inf
	if linesPerSecond > 0 {
		limit = rate.Limit(linesPerSecond)
	}
	return &TextReporter{
		w:       bufio.NewWriter(w),
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (r *TextReporter) Progress(p Progress) {
	if !p.Improved && !r.limiter.Allow() {
		return
	}
	marker := ""
	if p.Improved {
		marker = " improved"
	}
	r.printf("trial=%s head=%d p_flip=%.4f best=%d score=%d best_guess=%s guess=%s%s best_haystack=%s\n",
		humanize.Comma(p.Trial), p.Head, p.PFlip, p.BestScore, p.Score,
		corpus.DebugBytes(p.BestGuess), corpus.DebugBytes(p.Guess), marker, p.BestHaystack)
}

func (r *TextReporter) InvalidTail(trial int64, head int, haystack []byte, err error) {
	r.printf("trial=%s head=%d discarded: %v haystack=%s\n", humanize.Comma(trial), head, err, haystack)
}

// Err returns the first write error, if any.
func (r *TextReporter) Err() error {
	return r.err
}

func (r *TextReporter) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	if _, err := fmt.Fprintf(r.w, format, args...); err != nil {
		r.err = err
		return
	}
	r.err = r.w.Flush()
}
