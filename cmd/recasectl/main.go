package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"recase/internal/corpus"
	"recase/internal/logging"
	"recase/internal/storage"
	"recase/pkg/recase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "score":
		return runScore(ctx, args[1:], stdout, stderr)
	case "search":
		return runSearch(ctx, args[1:], stdout, stderr)
	case "runs":
		return runRuns(ctx, args[1:], stdout, stderr)
	case "show":
		return runShow(ctx, args[1:], stdout, stderr)
	case "reset":
		return runReset(ctx, args[1:], stdout, stderr)
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type commonFlags struct {
	storeKind   *string
	dbPath      *string
	logLevel    *string
	logFormat   *string
	s3Endpoint  *string
	s3AccessKey *string
	s3SecretKey *string
	s3Insecure  *bool
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		storeKind:   fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:      fs.String("db-path", "recase.db", "sqlite database path"),
		logLevel:    fs.String("log-level", "info", "log level: debug|info|warn|error"),
		logFormat:   fs.String("log-format", "text", "log format: text|json"),
		s3Endpoint:  fs.String("s3-endpoint", "", "object store endpoint for s3://bucket/key word lists"),
		s3AccessKey: fs.String("s3-access-key", "", "object store access key"),
		s3SecretKey: fs.String("s3-secret-key", "", "object store secret key"),
		s3Insecure:  fs.Bool("s3-insecure", false, "use plain http for the object store"),
	}
}

func (f commonFlags) client(stderr io.Writer) (*recase.Client, error) {
	logger, err := logging.New(stderr, *f.logFormat, *f.logLevel)
	if err != nil {
		return nil, err
	}
	return recase.New(recase.Options{
		StoreKind: *f.storeKind,
		DBPath:    *f.dbPath,
		Logger:    logger,
		Source: corpus.SourceOptions{
			Endpoint:  *f.s3Endpoint,
			AccessKey: *f.s3AccessKey,
			SecretKey: *f.s3SecretKey,
			Insecure:  *f.s3Insecure,
		},
	})
}

func runScore(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	fs.SetOutput(stderr)
	words := fs.String("words", corpus.DefaultWordsPath, "newline-delimited word list (plain, gzip, zstd, lz4 or s3://bucket/key)")
	workers := fs.Int("workers", 4, "concurrent scorers")
	jsonOut := fs.Bool("json", false, "emit scores as JSON")
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return usageError("score requires at least one haystack")
	}

	client, err := common.client(stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	results, err := client.Score(ctx, recase.ScoreRequest{
		Words:     *words,
		Haystacks: fs.Args(),
		Workers:   *workers,
	})
	if err != nil {
		return err
	}

	if *jsonOut {
		type scoreItem struct {
			Haystack string `json:"haystack"`
			Guess    string `json:"guess"`
			Score    int64  `json:"score"`
		}
		items := make([]scoreItem, 0, len(results))
		for _, r := range results {
			items = append(items, scoreItem{Haystack: r.Haystack, Guess: corpus.DebugBytes(r.Guess), Score: r.Score})
		}
		return writeJSON(stdout, items)
	}
	for _, r := range results {
		fmt.Fprintf(stdout, "score=%d guess=%s haystack=%s\n", r.Score, corpus.DebugBytes(r.Guess), r.Haystack)
	}
	return nil
}

func runSearch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(stderr)
	defaults := recase.DefaultSearchRequest()
	configPath := fs.String("config", "", "optional search config JSON path")
	words := fs.String("words", defaults.Words, "newline-delimited word list (plain, gzip, zstd, lz4 or s3://bucket/key)")
	heads := fs.Int("heads", defaults.Heads, "number of search heads")
	pFlip := fs.Float64("p-flip", defaults.PFlip, "initial per-letter case flip probability")
	pInherit := fs.Float64("p-inherit", defaults.PInherit, "per-byte probability of inheriting from another head")
	cooling := fs.Float64("cooling", defaults.Cooling, "p-flip decay per full pass over the heads")
	floor := fs.Float64("floor", defaults.Floor, "lower bound of p-flip")
	seed := fs.Int64("seed", 0, "rng seed (0 seeds from the clock)")
	maxTrials := fs.Int64("max-trials", 0, "stop after this many trials in total (0 runs until interrupted)")
	checkpointEvery := fs.Int64("checkpoint-every", defaults.CheckpointEvery, "trials between checkpoints")
	progressRate := fs.Float64("progress-rate", 0, "max non-improving progress lines per second (0 prints every trial)")
	resume := fs.String("resume", "", "resume a persisted run id from its last checkpoint")
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultSearchRequest(*configPath)
	if err != nil {
		return err
	}
	overrideFromFlags(&req, setFlags, map[string]any{
		"words":            *words,
		"heads":            *heads,
		"p-flip":           *pFlip,
		"p-inherit":        *pInherit,
		"cooling":          *cooling,
		"floor":            *floor,
		"seed":             *seed,
		"max-trials":       *maxTrials,
		"checkpoint-every": *checkpointEvery,
		"progress-rate":    *progressRate,
		"resume":           *resume,
	})

	if req.Resume != "" && !setFlags["words"] {
		// Resumed runs reuse the word list they were started with.
		req.Words = ""
	}

	switch {
	case fs.NArg() > 1:
		return usageError("search takes a single haystack")
	case fs.NArg() == 1:
		req.Haystack = fs.Arg(0)
	case req.Haystack == "" && req.Resume == "":
		return usageError("search requires a haystack or -resume")
	}
	req.Output = stdout

	client, err := common.client(stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Search(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "run_id=%s stopped=%s trials=%s best=%d guess=%s haystack=%s\n",
		summary.RunID, summary.Stopped, humanize.Comma(summary.Trials), summary.Best.Score,
		corpus.DebugBytes(summary.Best.Guess), summary.Best.Haystack)
	return nil
}

func runRuns(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := common.client(stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, recase.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(stdout, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs found")
		return nil
	}

	for _, status := range runs {
		trials, best := "-", "-"
		if status.Checkpoint != nil {
			trials = humanize.Comma(status.Checkpoint.Trials)
			best = fmt.Sprintf("%d", status.Checkpoint.Best.Score)
		}
		fmt.Fprintf(stdout, "run_id=%s started=%s heads=%d trials=%s best=%s haystack=%s\n",
			status.Run.ID, humanize.Time(status.Run.StartedAt), status.Run.Heads, trials, best, status.Run.Haystack)
	}
	return nil
}

func runShow(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(stderr)
	runID := fs.String("run-id", "", "run id to show")
	latest := fs.Bool("latest", false, "show the most recent run")
	jsonOut := fs.Bool("json", false, "emit the run as JSON")
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" && !*latest {
		return usageError("show requires -run-id or -latest")
	}

	client, err := common.client(stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	status, err := client.Show(ctx, recase.ShowRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(stdout, status)
	}

	run := status.Run
	fmt.Fprintf(stdout, "run_id=%s\nstarted=%s\nhaystack=%s\nwords=%s\nheads=%d p_flip=%g p_inherit=%g cooling=%g floor=%g seed=%d\n",
		run.ID, run.StartedAt.Format("2006-01-02T15:04:05Z07:00"), run.Haystack, run.WordsLocation,
		run.Heads, run.InitialFlip, run.Inherit, run.Cooling, run.Floor, run.Seed)
	if status.Checkpoint == nil {
		fmt.Fprintln(stdout, "checkpoint=none")
		return nil
	}
	cp := status.Checkpoint
	fmt.Fprintf(stdout, "trials=%s p_flip_now=%.4f\nbest=%d guess=%s best_haystack=%s\n",
		humanize.Comma(cp.Trials), cp.PFlip, cp.Best.Score, corpus.DebugBytes(cp.Best.Guess), cp.Best.Haystack)
	for i, head := range cp.Heads {
		fmt.Fprintf(stdout, "head[%d] score=%d guess=%s\n", i, head.Score, corpus.DebugBytes(head.Guess))
	}
	return nil
}

func runReset(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	fs.SetOutput(stderr)
	runID := fs.String("run-id", "", "delete a single run (default deletes every run)")
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.client(stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	removed, err := client.Reset(ctx, *runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "reset store=%s removed=%d\n", *common.storeKind, removed)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: recasectl <score|search|runs|show|reset> [flags] [haystack...]", msg)
}
