// Package fetcher plans and executes the download of one season. It holds no
// process-wide state: every run is described by Options and a Plan.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"season-archiver/diskspace"
	"season-archiver/downloader"
	"season-archiver/history"
	"season-archiver/listing"
	"season-archiver/logging"
)

// Options describes one season download
type Options struct {
	DestinationRoot string // library root; files land in <root>/<season>/
	Season          int
	MaxConcurrency  int
	AutoConfirm     bool // read by the interactive front end
	SkipCompleted   bool // skip files the history records as complete
}

// Validate checks the options before any I/O
func (o Options) Validate() error {
	if o.DestinationRoot == "" {
		return errors.New("destination root cannot be empty")
	}
	if o.Season < 1 {
		return fmt.Errorf("season must be positive, got %d", o.Season)
	}
	if o.MaxConcurrency < 1 {
		return fmt.Errorf("max concurrency must be at least 1, got %d", o.MaxConcurrency)
	}
	return nil
}

// CapacityError reports that free space could not be determined
type CapacityError struct {
	Path string
	Err  error
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("check free space of %s: %v", e.Path, e.Err)
}

func (e *CapacityError) Unwrap() error {
	return e.Err
}

// Batcher runs a set of tasks to completion
type Batcher interface {
	DownloadAll(ctx context.Context, tasks []downloader.DownloadTask, maxConcurrency int) (*downloader.BatchResult, error)
}

// History is the subset of the download ledger the fetcher uses
type History interface {
	Completed(sourceURL, destinationPath string) (*history.Record, bool, error)
	RecordBatch(runID string, season int, result *downloader.BatchResult) error
}

// Fetcher turns a season number into files on disk
type Fetcher struct {
	resolver  listing.Resolver
	batch     Batcher
	history   History
	freeSpace diskspace.Checker
	newRunID  func() string
	logger    *zap.Logger
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithHistory enables skip-completed lookups and run recording
func WithHistory(h History) Option {
	return func(f *Fetcher) {
		f.history = h
	}
}

// WithCapacityChecker replaces the platform free-space query
func WithCapacityChecker(checker diskspace.Checker) Option {
	return func(f *Fetcher) {
		if checker != nil {
			f.freeSpace = checker
		}
	}
}

// New creates a Fetcher
func New(resolver listing.Resolver, batch Batcher, logger *zap.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		resolver:  resolver,
		batch:     batch,
		freeSpace: diskspace.Default,
		newRunID:  uuid.NewString,
		logger:    logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Plan resolves the season and computes everything needed to decide whether
// to proceed. It writes nothing but the library root directory.
func (f *Fetcher) Plan(ctx context.Context, opts Options) (*Plan, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	if err := os.MkdirAll(opts.DestinationRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create library root: %w", err)
	}

	season, err := f.resolver.ResolveSeason(ctx, opts.Season)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Options:   opts,
		Season:    season,
		SeasonDir: filepath.Join(opts.DestinationRoot, strconv.Itoa(opts.Season)),
	}

	seen := make(map[string]bool, len(season.Entries))
	for _, entry := range season.Entries {
		task := downloader.DownloadTask{
			SourceURL:         entry.URL,
			DestinationPath:   filepath.Join(plan.SeasonDir, entry.Name),
			ExpectedSizeBytes: int64(entry.SizeGB * diskspace.BytesPerGB),
		}

		if seen[task.DestinationPath] {
			f.logger.Warn("Dropping entry with duplicate destination",
				zap.String("file", entry.Name),
				zap.String("url", entry.URL))
			plan.Duplicates = append(plan.Duplicates, entry)
			continue
		}
		seen[task.DestinationPath] = true

		if opts.SkipCompleted && f.alreadyCompleted(task) {
			plan.Skipped = append(plan.Skipped, task)
			continue
		}

		plan.Tasks = append(plan.Tasks, task)
		plan.RequiredGB += entry.SizeGB
	}

	free, err := f.freeSpace(opts.DestinationRoot)
	if err != nil {
		return nil, &CapacityError{Path: opts.DestinationRoot, Err: err}
	}
	plan.FreeGB = free

	f.logger.Info("Season planned",
		zap.Int("season", opts.Season),
		zap.Int("files", len(plan.Tasks)),
		zap.Int("skipped", len(plan.Skipped)),
		zap.Float64("required_gb", plan.RequiredGB),
		zap.Float64("free_gb", plan.FreeGB))
	return plan, nil
}

// alreadyCompleted reports whether history records task as complete and the
// file on disk still has the recorded size
func (f *Fetcher) alreadyCompleted(task downloader.DownloadTask) bool {
	if f.history == nil {
		return false
	}

	rec, ok, err := f.history.Completed(task.SourceURL, task.DestinationPath)
	if err != nil {
		f.logger.Warn("History lookup failed", zap.String("file", task.Name()), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}

	info, err := os.Stat(task.DestinationPath)
	if err != nil || info.Size() != rec.BytesWritten {
		return false
	}

	f.logger.Info("Skipping completed file", zap.String("file", task.Name()), zap.String("run_id", rec.RunID))
	return true
}

// Execute downloads every task of plan. Per-file failures are reported in
// the result; the error is non-nil only when the batch could not run.
func (f *Fetcher) Execute(ctx context.Context, plan *Plan) (*downloader.BatchResult, error) {
	if plan == nil {
		return nil, errors.New("nil plan")
	}
	if len(plan.Tasks) == 0 {
		f.logger.Info("Nothing to download", zap.Int("season", plan.Options.Season))
		return &downloader.BatchResult{}, nil
	}

	if err := os.MkdirAll(plan.SeasonDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create season directory: %w", err)
	}

	runID := f.newRunID()
	logger := f.logger.With(zap.String("run_id", runID))
	logger.Info("Starting downloads",
		zap.Int("files", len(plan.Tasks)),
		zap.Int("workers", plan.Options.MaxConcurrency))

	result, err := f.batch.DownloadAll(ctx, plan.Tasks, plan.Options.MaxConcurrency)
	if err != nil {
		return nil, fmt.Errorf("download batch: %w", err)
	}

	if f.history != nil {
		if err := f.history.RecordBatch(runID, plan.Options.Season, result); err != nil {
			logger.Warn("Failed to record history", zap.Error(err))
		}
	}

	logger.Info("All downloads complete",
		zap.Int("succeeded", len(result.Succeeded())),
		zap.Int("failed", len(result.Failed())))
	return result, nil
}
