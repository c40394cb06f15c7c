// Package cli is the interactive front end: it asks for a season, shows the
// space requirement, asks for confirmation and prints the batch summary.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"season-archiver/downloader"
	"season-archiver/fetcher"
	"season-archiver/history"
	"season-archiver/logging"
)

// Fetcher plans and executes a season download
type Fetcher interface {
	Plan(ctx context.Context, opts fetcher.Options) (*fetcher.Plan, error)
	Execute(ctx context.Context, plan *fetcher.Plan) (*downloader.BatchResult, error)
}

// Progress is a background progress summary bound to one batch
type Progress interface {
	Start(ctx context.Context) error
	Stop()
}

// RunLister lists previous runs
type RunLister interface {
	Runs(limit int) ([]history.RunSummary, error)
}

// Config holds the settings of an interactive run
type Config struct {
	SeasonCount     int
	DestinationRoot string
	MaxConcurrency  int
	AutoConfirm     bool
	SkipCompleted   bool
}

// App runs one interactive season download
type App struct {
	cfg      Config
	fetcher  Fetcher
	prompter *Prompter
	out      io.Writer
	logger   *zap.Logger

	progress Progress
	runs     RunLister

	season int
}

// AppOption configures an App
type AppOption func(*App)

// WithProgress runs p while the batch executes
func WithProgress(p Progress) AppOption {
	return func(a *App) {
		a.progress = p
	}
}

// WithRunHistory lists recent runs after the summary
func WithRunHistory(r RunLister) AppOption {
	return func(a *App) {
		a.runs = r
	}
}

// NewApp creates an App
func NewApp(cfg Config, f Fetcher, prompter *Prompter, out io.Writer, logger *zap.Logger, opts ...AppOption) *App {
	a := &App{
		cfg:      cfg,
		fetcher:  f,
		prompter: prompter,
		out:      out,
		logger:   logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Season returns the season chosen by the last Run, 0 if none
func (a *App) Season() int {
	return a.season
}

// Run performs one season download. It returns ErrUserAbort when the
// operator declines and an error wrapping ErrDownloadsFailed when any file
// failed.
func (a *App) Run(ctx context.Context) error {
	season, ok, err := a.prompter.AskSeason(a.cfg.SeasonCount)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "No valid season selected, nothing to do.")
		a.logger.Info("No season selected")
		return nil
	}
	a.season = season

	plan, err := a.fetcher.Plan(ctx, fetcher.Options{
		DestinationRoot: a.cfg.DestinationRoot,
		Season:          season,
		MaxConcurrency:  a.cfg.MaxConcurrency,
		AutoConfirm:     a.cfg.AutoConfirm,
		SkipCompleted:   a.cfg.SkipCompleted,
	})
	if err != nil {
		return err
	}

	a.printPlan(plan)
	if plan.Empty() {
		fmt.Fprintln(a.out, "Nothing to download.")
		return nil
	}

	if !plan.Options.AutoConfirm {
		proceed, err := a.prompter.Confirm()
		if err != nil {
			return err
		}
		if !proceed {
			return ErrUserAbort
		}
	}

	if a.progress != nil {
		if err := a.progress.Start(ctx); err != nil {
			a.logger.Warn("Progress summary disabled", zap.Error(err))
		} else {
			defer a.progress.Stop()
		}
	}

	result, err := a.fetcher.Execute(ctx, plan)
	if err != nil {
		return err
	}

	a.printSummary(result)
	a.printRecentRuns()

	if failed := len(result.Failed()); failed > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrDownloadsFailed, failed, result.Len())
	}
	return nil
}

func (a *App) printPlan(plan *fetcher.Plan) {
	fmt.Fprintf(a.out, "\nSeason %d requires %.1fGB. You have %.1fGB free.\n",
		plan.Options.Season, plan.RequiredGB, plan.FreeGB)

	if n := len(plan.Skipped); n > 0 {
		fmt.Fprintf(a.out, "Skipping %d file(s) already downloaded.\n", n)
	}
	if n := len(plan.Duplicates); n > 0 {
		fmt.Fprintf(a.out, "Ignoring %d duplicate listing entries.\n", n)
	}
	if plan.InsufficientSpace() {
		fmt.Fprintf(a.out, "Warning: season %d needs %.1fGB more than is free.\n",
			plan.Options.Season, plan.RequiredGB-plan.FreeGB)
	}
}

func (a *App) printSummary(result *downloader.BatchResult) {
	succeeded := result.Succeeded()
	fmt.Fprintf(a.out, "\nDownloaded %d of %d files (%s).\n",
		len(succeeded), result.Len(), humanize.IBytes(uint64(result.BytesWritten())))

	for _, o := range result.Failed() {
		fmt.Fprintf(a.out, "  FAILED %s: %v\n", o.Task.Name(), o.Err)
	}
}

func (a *App) printRecentRuns() {
	if a.runs == nil {
		return
	}
	runs, err := a.runs.Runs(3)
	if err != nil {
		a.logger.Warn("Failed to list recent runs", zap.Error(err))
		return
	}
	if len(runs) == 0 {
		return
	}

	fmt.Fprintln(a.out, "Recent runs:")
	for _, r := range runs {
		id := r.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(a.out, "  %s  season %d  %d ok  %d failed  %s  %s\n",
			id, r.Season, r.Succeeded, r.Failed,
			humanize.IBytes(uint64(r.BytesWritten)), humanize.Time(r.FinishedAt))
	}
}
