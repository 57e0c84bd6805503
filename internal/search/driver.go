// Package search runs the multi-head annealed local search that recovers the
// casing of a case-corrupted base64 haystack.
package search

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"recase/internal/codec"
	"recase/internal/corpus"
	"recase/internal/model"
	"recase/internal/mutation"
	"recase/internal/score"
)

const DefaultHeads = 4

// CheckpointFunc persists a snapshot of the driver. It is called on the
// search goroutine, so it sees a consistent population.
type CheckpointFunc func(ctx context.Context, checkpoint model.Checkpoint) error

type Config struct {
	RunID    string
	Haystack []byte
	Corpus   *corpus.Corpus
	Rand     *rand.Rand

	Heads    int
	PFlip    float64
	PInherit float64
	Cooling  float64
	Floor    float64

	// MaxTrials stops Run after that many trials in total; 0 means never.
	MaxTrials       int64
	CheckpointEvery int64
	Checkpoint      CheckpointFunc
	Reporter        Reporter
}

// Trial summarizes one Step.
type Trial struct {
	Number       int64
	Head         int
	Scored       bool
	Score        int64
	Improved     bool
	HeadImproved bool
}

// Driver owns the head population, the global best and the scratch buffers
// reused by every trial. It is single threaded.
type Driver struct {
	cfg      Config
	engine   mutation.Engine
	schedule *mutation.Schedule
	decoder  *codec.Decoder
	scorer   score.Scorer
	reporter Reporter

	heads []State
	pool  [][]byte
	best  State

	scratch State
	trials  int64
}

// New seeds every head with the decoded haystack. A haystack whose final
// symbol is non-canonical seeds invalid heads that any scored trial beats;
// every other decode failure is returned.
func New(cfg Config) (*Driver, error) {
	if cfg.Corpus == nil {
		return nil, errors.New("corpus is required")
	}
	if len(cfg.Haystack) == 0 {
		return nil, errors.New("haystack is required")
	}
	if cfg.Heads == 0 {
		cfg.Heads = DefaultHeads
	}
	if cfg.Cooling == 0 {
		cfg.Cooling = mutation.DefaultCooling
	}
	if cfg.MaxTrials < 0 || cfg.CheckpointEvery < 0 {
		return nil, errors.New("max trials and checkpoint interval must be >= 0")
	}
	if cfg.Reporter == nil {
		cfg.Reporter = NopReporter()
	}

	schedule, err := mutation.NewSchedule(cfg.Cooling, cfg.Floor, cfg.Heads)
	if err != nil {
		return nil, err
	}
	engine := mutation.Engine{Rand: cfg.Rand, PFlip: cfg.PFlip, PInherit: cfg.PInherit}
	if err := engine.Validate(); err != nil {
		return nil, err
	}

	d := &Driver{
		cfg:      cfg,
		engine:   engine,
		schedule: schedule,
		decoder:  codec.NewDecoder(),
		reporter: cfg.Reporter,
		heads:    make([]State, cfg.Heads),
		pool:     make([][]byte, cfg.Heads),
	}

	seed := State{Haystack: append([]byte(nil), cfg.Haystack...)}
	seed.Guess, err = d.decoder.DecodeInto(nil, seed.Haystack)
	switch {
	case err == nil:
		seed.Score = d.scorer.Score(seed.Guess, cfg.Corpus)
		seed.Valid = true
	case codec.Recoverable(err):
		seed.invalidate()
	default:
		return nil, fmt.Errorf("decode haystack: %w", err)
	}

	for i := range d.heads {
		d.heads[i].copyFrom(&seed)
		d.pool[i] = d.heads[i].Haystack
	}
	d.best.copyFrom(&seed)
	return d, nil
}

// Step runs one trial on the next head in round-robin order.
func (d *Driver) Step() (Trial, error) {
	head := int(d.trials % int64(len(d.heads)))
	d.trials++
	trial := Trial{Number: d.trials, Head: head}

	d.scratch.Haystack = append(d.scratch.Haystack[:0], d.heads[head].Haystack...)
	d.engine.Mutate(d.scratch.Haystack, d.pool)

	guess, err := d.decoder.DecodeInto(d.scratch.Guess, d.scratch.Haystack)
	d.scratch.Guess = guess
	d.engine.PFlip = d.schedule.Next(d.engine.PFlip)
	if err != nil {
		if !codec.Recoverable(err) {
			return trial, fmt.Errorf("trial %d head %d: %w", trial.Number, head, err)
		}
		d.reporter.InvalidTail(trial.Number, head, d.scratch.Haystack, err)
		d.scratch.Guess = d.scratch.Guess[:0]
		return trial, nil
	}

	d.scratch.Score = d.scorer.Score(d.scratch.Guess, d.cfg.Corpus)
	d.scratch.Valid = true
	trial.Scored = true
	trial.Score = d.scratch.Score
	trial.Improved = d.best.beats(d.scratch.Score)
	trial.HeadImproved = d.heads[head].beats(d.scratch.Score)

	d.reporter.Progress(Progress{
		Trial:        trial.Number,
		Head:         head,
		PFlip:        d.engine.PFlip,
		BestScore:    d.best.Score,
		Score:        d.scratch.Score,
		BestGuess:    d.best.Guess,
		Guess:        d.scratch.Guess,
		Improved:     trial.Improved,
		BestHaystack: d.best.Haystack,
	})

	if trial.Improved {
		d.best.copyFrom(&d.scratch)
	}
	if trial.HeadImproved {
		d.heads[head].copyFrom(&d.scratch)
		d.pool[head] = d.heads[head].Haystack
	}

	d.scratch.Guess = d.scratch.Guess[:0]
	return trial, nil
}

// Run steps until ctx is done, a fatal decode error occurs or MaxTrials is
// reached. A final checkpoint is written on every exit path.
func (d *Driver) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := d.checkpoint(context.WithoutCancel(ctx)); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.cfg.MaxTrials > 0 && d.trials >= d.cfg.MaxTrials {
			return nil
		}
		if _, err := d.Step(); err != nil {
			return err
		}
		if d.cfg.CheckpointEvery > 0 && d.trials%d.cfg.CheckpointEvery == 0 {
			if err := d.checkpoint(ctx); err != nil {
				return err
			}
		}
	}
}

func (d *Driver) checkpoint(ctx context.Context) error {
	if d.cfg.Checkpoint == nil {
		return nil
	}
	if err := d.cfg.Checkpoint(ctx, d.Snapshot()); err != nil {
		return fmt.Errorf("checkpoint after trial %d: %w", d.trials, err)
	}
	return nil
}

// Snapshot copies the population, the global best and the schedule position.
func (d *Driver) Snapshot() model.Checkpoint {
	heads := make([]model.HeadState, len(d.heads))
	for i := range d.heads {
		heads[i] = d.heads[i].record()
	}
	return model.Checkpoint{
		RunID:     d.cfg.RunID,
		Trials:    d.trials,
		PFlip:     d.engine.PFlip,
		Heads:     heads,
		Best:      d.best.record(),
		UpdatedAt: time.Now().UTC(),
	}
}

// Restore resumes from a checkpoint taken from a run over a haystack of the
// same length and head count.
func (d *Driver) Restore(c model.Checkpoint) error {
	if len(c.Heads) != len(d.heads) {
		return fmt.Errorf("checkpoint has %d heads, driver has %d", len(c.Heads), len(d.heads))
	}
	size := len(d.cfg.Haystack)
	for i, h := range c.Heads {
		if len(h.Haystack) != size {
			return fmt.Errorf("checkpoint head %d haystack length %d, want %d", i, len(h.Haystack), size)
		}
	}
	if len(c.Best.Haystack) != size {
		return fmt.Errorf("checkpoint best haystack length %d, want %d", len(c.Best.Haystack), size)
	}
	if c.Trials < 0 {
		return errors.New("checkpoint trials must be >= 0")
	}
	if c.PFlip < 0 || c.PFlip > 1 {
		return fmt.Errorf("checkpoint p_flip must be within [0, 1], got %v", c.PFlip)
	}

	for i, h := range c.Heads {
		d.heads[i] = stateFromRecord(h)
		d.pool[i] = d.heads[i].Haystack
	}
	d.best = stateFromRecord(c.Best)
	d.trials = c.Trials
	d.engine.PFlip = c.PFlip
	return nil
}

// Best returns a copy of the global best state.
func (d *Driver) Best() State {
	var out State
	out.copyFrom(&d.best)
	return out
}

// Head returns a copy of head i's retained state.
func (d *Driver) Head(i int) State {
	var out State
	out.copyFrom(&d.heads[i])
	return out
}

func (d *Driver) HeadCount() int {
	return len(d.heads)
}

func (d *Driver) Trials() int64 {
	return d.trials
}

func (d *Driver) PFlip() float64 {
	return d.engine.PFlip
}
