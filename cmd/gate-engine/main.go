package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	_ "modernc.org/sqlite"

	"github.com/memgate/engine/internal/cache"
	"github.com/memgate/engine/internal/config"
	"github.com/memgate/engine/internal/dataset"
	"github.com/memgate/engine/internal/emitter"
	"github.com/memgate/engine/internal/evaluator"
	"github.com/memgate/engine/internal/report"
	"github.com/memgate/engine/internal/runner"
	"github.com/memgate/engine/internal/scorer"
	"github.com/memgate/engine/pkg/types"
)

const version = "0.1.0"

const (
	exitSuccess    = 0
	exitValidation = 1
	exitConfig     = 2
	exitRuntime    = 3
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("gate-engine %s\n", version)
			os.Exit(exitSuccess)
		case "cache":
			handleCacheCommand(os.Args[2:])
			return
		case "run":
			os.Exit(runCommand(os.Args[2:]))
		}
	}

	fmt.Fprintln(os.Stderr, "usage: gate-engine run <dataset> --config <path> [--output <dir>] [--verbose] [--concurrency N] [--batch-size N] [--strict]")
	fmt.Fprintln(os.Stderr, "       gate-engine version")
	fmt.Fprintln(os.Stderr, "       gate-engine cache <stats|clear>")
	os.Exit(exitConfig)
}

func runCommand(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to the YAML config document")
	outputDir := fs.String("output", "", "directory to write report files to")
	verbose := fs.Bool("verbose", false, "enable debug logging (shorthand for --log-level=debug)")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	concurrency := fs.Int("concurrency", 0, "override config's concurrency")
	batchSize := fs.Int("batch-size", 0, "override config's batch_size")
	strict := fs.Bool("strict", false, "promote dataset/sample validation warnings to errors")
	noCache := fs.Bool("no-cache", false, "disable the on-disk raw-score cache")
	if err := fs.Parse(args); err != nil {
		return exitConfig
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: gate-engine run <dataset> --config <path> [--output <dir>] [--verbose] [--concurrency N] [--batch-size N] [--strict]")
		return exitConfig
	}
	datasetPath := fs.Arg(0)

	if *verbose {
		*logLevel = "debug"
	}
	level, err := parseLogLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %s\n", *logLevel)
		return exitConfig
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *configPath == "" {
		logger.Error("missing required --config flag")
		return exitConfig
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config load failed", "err", err)
		return exitConfig
	}

	conc := cfg.Hints.Concurrency
	if *concurrency > 0 {
		conc = *concurrency
	}
	batch := cfg.Hints.BatchSize
	if *batchSize > 0 {
		batch = *batchSize
	}

	ds, err := dataset.Load(datasetPath, dataset.LoadOptions{Strict: *strict, KnownConfig: &cfg.Eval})
	if err != nil {
		logger.Error("dataset load failed", "err", err)
		if *strict {
			return exitValidation
		}
		return exitConfig
	}

	ids, hyps := cfg.Eval.Hypotheses()
	sc, err := newScorer(ids, hyps)
	if err != nil {
		logger.Error("scorer init failed", "err", err)
		return exitConfig
	}
	if !*noCache {
		scoreCache, err := openScoreCache()
		if err != nil {
			logger.Warn("score cache unavailable, scoring uncached", "err", err)
		} else {
			sc = scorer.NewCachingScorer(sc, scoreCache)
		}
	}
	defer sc.Close()

	history, err := openHistoryStore()
	if err != nil {
		logger.Warn("history store unavailable, dynamic thresholds fall back to static", "err", err)
	}
	if history != nil {
		defer history.Close()
	}

	var evOpts []evaluator.Option
	if history != nil {
		evOpts = append(evOpts, evaluator.WithHistoryStore(history))
	}
	ev, err := evaluator.New(cfg.Eval, sc, evOpts...)
	if err != nil {
		logger.Error("evaluator init failed", "err", err)
		return exitConfig
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	emit := emitter.Func(func(name string, attrs map[string]any) {
		logger.Debug("signal", "name", name, "attrs", attrs)
	})

	runCfg := runner.RunnerConfig{
		Concurrency: conc,
		BatchSize:   batch,
		ProgressFn: func(done, total int) {
			logger.Debug("progress", "done", done, "total", total)
		},
		CancelFunc: cancel,
		Emit:       emit,
	}

	logger.Info("run starting", "dataset", datasetPath, "samples", len(ds.Samples), "concurrency", conc)
	start := time.Now()

	r := runner.New()
	result, runErr := r.RunAndCollect(ctx, ds, ev, runCfg)
	result.DatasetName = ds.Name
	elapsed := time.Since(start)

	printSummary(result, elapsed)

	if *outputDir != "" {
		if err := writeReports(*outputDir, datasetPath, result); err != nil {
			logger.Error("report write failed", "err", err)
			return exitConfig
		}
	}

	if runErr != nil {
		logger.Error("run completed with sample failures", "err", runErr)
		return exitRuntime
	}
	return exitSuccess
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// newScorer constructs the production Scorer: an ONNXScorer when the binary
// is built with -tags onnx, otherwise a MockScorer seeded with zero
// confidences so the CLI still runs end to end (at degraded accuracy)
// without the cgo-backed runtime.
func newScorer(ids []types.LabelID, hyps []string) (scorer.Scorer, error) {
	if scorer.ONNXAvailable {
		return scorer.NewONNXScorer(ids, hyps, scorer.ModelConfig{})
	}
	return scorer.NewMockScorer(ids, hyps, nil, nil), nil
}

func printSummary(result types.EvalResult, elapsed time.Duration) {
	c := result.Confusion
	color := colorEnabled()
	fmt.Printf("%s\n", withColor(color, "1;37", fmt.Sprintf("gate-engine: %d samples in %s", len(result.Results), elapsed.Round(time.Millisecond))))
	fmt.Printf("  accuracy=%.3f precision=%.3f recall=%.3f f1=%.3f\n", c.Accuracy(), c.Precision(), c.Recall(), c.F1())

	var accepted, rejectedBelow, rejectedPhatic int
	for _, sr := range result.Results {
		switch {
		case sr.Output.Decision == types.DecisionAccept:
			accepted++
		case sr.Output.Reason == types.ReasonPhatic:
			rejectedPhatic++
		default:
			rejectedBelow++
		}
	}
	fmt.Printf("  accepted=%d rejected_below_threshold=%d rejected_phatic=%d\n", accepted, rejectedBelow, rejectedPhatic)
}

func withColor(enabled bool, code, text string) string {
	if !enabled {
		return text
	}
	return fmt.Sprintf("\x1b[%sm%s\x1b[0m", code, text)
}

// colorEnabled reports whether ANSI coloring should be applied to stdout:
// only when stdout is a real terminal, never when piped or redirected.
func colorEnabled() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func writeReports(dir, datasetPath string, result types.EvalResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}
	stem := strippedExt(filepath.Base(datasetPath))

	jsonBytes, err := report.GenerateJSONReport(result)
	if err != nil {
		return fmt.Errorf("generate json report: %w", err)
	}
	jsonPath := filepath.Join(dir, stem+".results.json")
	if err := os.WriteFile(jsonPath, jsonBytes, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", jsonPath, err)
	}

	mdPath := filepath.Join(dir, stem+".results.md")
	f, err := os.Create(mdPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", mdPath, err)
	}
	defer f.Close()
	md := &report.MarkdownReport{Title: "Gate Evaluation Report", RunAt: time.Now(), Result: result}
	if err := report.GenerateMarkdown(f, md); err != nil {
		return fmt.Errorf("write %s: %w", mdPath, err)
	}

	return nil
}

func strippedExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}

func handleCacheCommand(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: gate-engine cache <stats|clear>")
		os.Exit(exitConfig)
	}

	historyPath := historyDBPath()
	scorePath := scoreCacheDBPath()

	switch args[0] {
	case "stats":
		printDBStats("history db", historyPath, `SELECT COUNT(*) FROM label_score_history`)
		printDBStats("score cache", scorePath, `SELECT COUNT(*) FROM scores`)

	case "clear":
		removeIfExists(historyPath, "history store")
		removeIfExists(scorePath, "score cache")

	default:
		fmt.Fprintf(os.Stderr, "unknown cache command: %s\n", args[0])
		os.Exit(exitConfig)
	}
}

func printDBStats(label, path, countQuery string) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		fmt.Printf("%s does not exist: %s\n", label, path)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "stat %s: %v\n", path, err)
		os.Exit(exitConfig)
	}
	fmt.Printf("%s:  %s\n", label, path)
	fmt.Printf("  size_bytes: %d\n", info.Size())

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", path, err)
		os.Exit(exitConfig)
	}
	defer db.Close()

	var rowCount int
	if err := db.QueryRow(countQuery).Scan(&rowCount); err != nil {
		fmt.Fprintf(os.Stderr, "count rows in %s: %v\n", path, err)
		os.Exit(exitConfig)
	}
	fmt.Printf("  rows:       %d\n", rowCount)
}

func removeIfExists(path, label string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("%s does not exist: %s\n", label, path)
		return
	}
	if err := os.Remove(path); err != nil {
		fmt.Fprintf(os.Stderr, "remove %s: %v\n", path, err)
		os.Exit(exitConfig)
	}
	fmt.Printf("cleared %s %s\n", label, path)
}

// cacheDir returns the cache directory from GATE_CACHE_DIR env or ~/.gate/cache/.
func cacheDir() string {
	if dir := os.Getenv("GATE_CACHE_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot determine home directory: %v\n", err)
		os.Exit(exitConfig)
	}
	return filepath.Join(home, ".gate", "cache")
}

func historyDBPath() string {
	return filepath.Join(cacheDir(), "history.db")
}

const defaultScoreCacheMaxMB = 256

func scoreCacheDBPath() string {
	return filepath.Join(cacheDir(), "scores.db")
}

func openScoreCache() (*cache.ScoreCache, error) {
	dir := cacheDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return cache.NewScoreCache(scoreCacheDBPath(), defaultScoreCacheMaxMB)
}

func openHistoryStore() (*cache.HistoryStore, error) {
	dir := cacheDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	db, err := sql.Open("sqlite", historyDBPath())
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	store, err := cache.NewHistoryStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
