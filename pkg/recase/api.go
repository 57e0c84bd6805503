// Package recase is the public entry point for scoring decoded guesses and
// running, resuming and inspecting case-recovery searches.
package recase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"recase/internal/codec"
	"recase/internal/corpus"
	"recase/internal/logging"
	"recase/internal/model"
	"recase/internal/mutation"
	"recase/internal/score"
	"recase/internal/search"
	"recase/internal/storage"
)

const (
	defaultDBPath          = "recase.db"
	defaultCheckpointEvery = 10000
	defaultScoreWorkers    = 4

	DefaultPInherit = 0.1
)

var ErrRunNotFound = errors.New("run not found")

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *logging.Logger
	Source    corpus.SourceOptions
}

type Client struct {
	store  storage.Store
	logger *logging.Logger
	source corpus.SourceOptions

	initOnce sync.Once
	initErr  error
}

type ScoreRequest struct {
	Words     string
	Haystacks []string
	Workers   int
}

type ScoreResult struct {
	Haystack string
	Guess    []byte
	Score    int64
}

// SearchRequest configures a new or resumed search. Probabilities are taken
// as given; only Heads, Cooling, Words and CheckpointEvery fall back to
// defaults when zero.
type SearchRequest struct {
	Haystack        string  `json:"haystack"`
	Words           string  `json:"words"`
	Heads           int     `json:"heads"`
	PFlip           float64 `json:"p_flip"`
	PInherit        float64 `json:"p_inherit"`
	Cooling         float64 `json:"cooling"`
	Floor           float64 `json:"floor"`
	Seed            int64   `json:"seed"`
	MaxTrials       int64   `json:"max_trials"`
	CheckpointEvery int64   `json:"checkpoint_every"`
	ProgressRate    float64 `json:"progress_rate"`
	Resume          string  `json:"resume"`

	Output io.Writer `json:"-"`
}

// DefaultSearchRequest carries the documented search defaults.
func DefaultSearchRequest() SearchRequest {
	return SearchRequest{
		Words:           corpus.DefaultWordsPath,
		Heads:           search.DefaultHeads,
		PFlip:           mutation.DefaultInitialFlip,
		PInherit:        DefaultPInherit,
		Cooling:         mutation.DefaultCooling,
		Floor:           mutation.DefaultFloor,
		CheckpointEvery: defaultCheckpointEvery,
	}
}

type SearchSummary struct {
	RunID   string
	Trials  int64
	Best    model.HeadState
	Stopped string
}

type RunsRequest struct {
	Limit int
}

type ShowRequest struct {
	RunID  string
	Latest bool
}

// RunStatus pairs a run record with its latest checkpoint, if any.
type RunStatus struct {
	Run        model.RunRecord
	Checkpoint *model.Checkpoint
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Noop()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:  store,
		logger: logger,
		source: opts.Source,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) LoadCorpus(ctx context.Context, location string) (*corpus.Corpus, error) {
	if location == "" {
		location = corpus.DefaultWordsPath
	}
	started := time.Now()
	cp, err := corpus.Load(ctx, location, c.source)
	if err != nil {
		return nil, err
	}
	c.logger.Info("corpus loaded",
		"location", location,
		"size", humanize.Bytes(uint64(cp.SourceBytes())),
		"words", humanize.Comma(int64(cp.Len())),
		"trigrams", humanize.Comma(int64(cp.Total())),
		"distinct_trigrams", cp.DistinctTrigrams(),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return cp, nil
}

// Score decodes and scores every haystack against the same corpus. Any
// decode failure fails the whole batch.
func (c *Client) Score(ctx context.Context, req ScoreRequest) ([]ScoreResult, error) {
	if len(req.Haystacks) == 0 {
		return nil, errors.New("at least one haystack is required")
	}
	cp, err := c.LoadCorpus(ctx, req.Words)
	if err != nil {
		return nil, err
	}
	return ScoreBatch(ctx, cp, req.Haystacks, req.Workers)
}

// ScoreBatch scores haystacks concurrently. The corpus is shared read-only;
// each worker owns its decoder and scorer.
func ScoreBatch(ctx context.Context, cp *corpus.Corpus, haystacks []string, workers int) ([]ScoreResult, error) {
	if workers <= 0 {
		workers = defaultScoreWorkers
	}
	results := make([]ScoreResult, len(haystacks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, haystack := range haystacks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			guess, err := codec.NewDecoder().DecodeInto(nil, []byte(haystack))
			if err != nil {
				return fmt.Errorf("haystack %d: %w", i, err)
			}
			var s score.Scorer
			results[i] = ScoreResult{
				Haystack: haystack,
				Guess:    guess,
				Score:    s.Score(guess, cp),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Search starts a new run, or resumes req.Resume from its last checkpoint,
// and blocks until ctx is cancelled, MaxTrials is reached or a fatal decode
// error occurs. Cancellation is the normal way to stop and is not an error.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchSummary, error) {
	if err := c.ensureStore(ctx); err != nil {
		return SearchSummary{}, err
	}

	run, checkpoint, err := c.prepareRun(ctx, req)
	if err != nil {
		return SearchSummary{}, err
	}
	logger := c.logger.WithRun(run.ID)

	cp, err := c.LoadCorpus(ctx, run.WordsLocation)
	if err != nil {
		return SearchSummary{}, err
	}

	var reporter search.Reporter = search.NopReporter()
	var text *search.TextReporter
	if req.Output != nil {
		text = search.NewTextReporter(req.Output, req.ProgressRate)
		reporter = text
	}

	// A resumed run continues on a fresh stream rather than replaying the
	// draws its first segment already consumed.
	seed := run.Seed
	if checkpoint != nil {
		seed += checkpoint.Trials
	}

	checkpointEvery := req.CheckpointEvery
	if checkpointEvery == 0 {
		checkpointEvery = defaultCheckpointEvery
	}

	driver, err := search.New(search.Config{
		RunID:           run.ID,
		Haystack:        []byte(run.Haystack),
		Corpus:          cp,
		Rand:            rand.New(rand.NewSource(seed)),
		Heads:           run.Heads,
		PFlip:           run.InitialFlip,
		PInherit:        run.Inherit,
		Cooling:         run.Cooling,
		Floor:           run.Floor,
		MaxTrials:       req.MaxTrials,
		CheckpointEvery: checkpointEvery,
		Reporter:        reporter,
		Checkpoint: func(ctx context.Context, snap model.Checkpoint) error {
			snap.VersionedRecord = storage.CurrentVersion()
			if err := c.store.SaveCheckpoint(ctx, snap); err != nil {
				return err
			}
			logger.Debug("checkpoint saved", "trials", snap.Trials, "best_score", snap.Best.Score)
			return nil
		},
	})
	if err != nil {
		return SearchSummary{}, err
	}
	if checkpoint != nil {
		if err := driver.Restore(*checkpoint); err != nil {
			return SearchSummary{}, fmt.Errorf("resume run %s: %w", run.ID, err)
		}
		logger.Info("run resumed", "trials", checkpoint.Trials, "best_score", checkpoint.Best.Score)
	} else {
		logger.Info("run started", "heads", run.Heads, "seed", run.Seed)
	}

	runErr := driver.Run(ctx)
	best := driver.Best()
	summary := SearchSummary{
		RunID:  run.ID,
		Trials: driver.Trials(),
		Best: model.HeadState{
			Haystack: string(best.Haystack),
			Guess:    best.Guess,
			Score:    best.Score,
			Valid:    best.Valid,
		},
		Stopped: "max_trials",
	}
	if text != nil && text.Err() != nil {
		logger.Warn("progress output failed", "error", text.Err())
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		summary.Stopped = "cancelled"
	default:
		return summary, runErr
	}
	logger.Info("run stopped", "reason", summary.Stopped, "trials", humanize.Comma(summary.Trials), "best_score", best.Score)
	return summary, nil
}

func (c *Client) prepareRun(ctx context.Context, req SearchRequest) (model.RunRecord, *model.Checkpoint, error) {
	if req.Resume != "" {
		run, ok, err := c.store.GetRun(ctx, req.Resume)
		if err != nil {
			return model.RunRecord{}, nil, err
		}
		if !ok {
			return model.RunRecord{}, nil, fmt.Errorf("%w: %s", ErrRunNotFound, req.Resume)
		}
		if req.Words != "" {
			run.WordsLocation = req.Words
		}
		checkpoint, ok, err := c.store.GetCheckpoint(ctx, run.ID)
		if err != nil {
			return model.RunRecord{}, nil, err
		}
		if !ok {
			return run, nil, nil
		}
		return run, &checkpoint, nil
	}

	if req.Haystack == "" {
		return model.RunRecord{}, nil, errors.New("haystack is required")
	}
	if req.Heads == 0 {
		req.Heads = search.DefaultHeads
	}
	if req.Cooling == 0 {
		req.Cooling = mutation.DefaultCooling
	}
	if req.Words == "" {
		req.Words = corpus.DefaultWordsPath
	}
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	run := model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              uuid.NewString(),
		Haystack:        req.Haystack,
		WordsLocation:   req.Words,
		Heads:           req.Heads,
		InitialFlip:     req.PFlip,
		Inherit:         req.PInherit,
		Cooling:         req.Cooling,
		Floor:           req.Floor,
		Seed:            seed,
		StartedAt:       time.Now().UTC(),
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return model.RunRecord{}, nil, err
	}
	return run, nil, nil
}

// Runs lists persisted runs, most recent first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunStatus, error) {
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if req.Limit > 0 && len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}

	out := make([]RunStatus, 0, len(runs))
	for _, run := range runs {
		status, err := c.status(ctx, run)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}

func (c *Client) Show(ctx context.Context, req ShowRequest) (RunStatus, error) {
	if req.Latest {
		runs, err := c.Runs(ctx, RunsRequest{Limit: 1})
		if err != nil {
			return RunStatus{}, err
		}
		if len(runs) == 0 {
			return RunStatus{}, ErrRunNotFound
		}
		return runs[0], nil
	}
	if req.RunID == "" {
		return RunStatus{}, errors.New("run id is required")
	}
	if err := c.ensureStore(ctx); err != nil {
		return RunStatus{}, err
	}
	run, ok, err := c.store.GetRun(ctx, req.RunID)
	if err != nil {
		return RunStatus{}, err
	}
	if !ok {
		return RunStatus{}, fmt.Errorf("%w: %s", ErrRunNotFound, req.RunID)
	}
	return c.status(ctx, run)
}

// Reset deletes one run, or every run when runID is empty.
func (c *Client) Reset(ctx context.Context, runID string) (int, error) {
	if err := c.ensureStore(ctx); err != nil {
		return 0, err
	}
	if runID != "" {
		if _, ok, err := c.store.GetRun(ctx, runID); err != nil {
			return 0, err
		} else if !ok {
			return 0, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return 1, c.store.DeleteRun(ctx, runID)
	}

	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return 0, err
	}
	for _, run := range runs {
		if err := c.store.DeleteRun(ctx, run.ID); err != nil {
			return 0, err
		}
	}
	return len(runs), nil
}

func (c *Client) status(ctx context.Context, run model.RunRecord) (RunStatus, error) {
	checkpoint, ok, err := c.store.GetCheckpoint(ctx, run.ID)
	if err != nil {
		return RunStatus{}, err
	}
	status := RunStatus{Run: run}
	if ok {
		status.Checkpoint = &checkpoint
	}
	return status, nil
}

func (c *Client) ensureStore(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}
