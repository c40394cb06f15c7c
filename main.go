package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"season-archiver/cli"
	"season-archiver/config"
	"season-archiver/downloader"
	"season-archiver/fetcher"
	"season-archiver/history"
	"season-archiver/listing"
	"season-archiver/logging"
)

func main() {
	os.Exit(run())
}

func run() (exitCode int) {
	// Load and validate configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return cli.NewErrorHandler(nil, os.Stderr).HandleConfigError(err)
	}

	// Additional validation
	if err := cfg.Validate(); err != nil {
		return cli.NewErrorHandler(nil, os.Stderr).HandleConfigError(err)
	}

	// Bars and log lines share stderr through one console
	console := downloader.NewConsole(os.Stderr)
	logger, err := logging.NewWithOutput(cfg.LogLevel, console.LogWriter())
	if err != nil {
		return cli.NewErrorHandler(nil, os.Stderr).HandleConfigError(err)
	}
	defer logger.Sync()

	errorHandler := cli.NewErrorHandler(logger.Named("errors"), os.Stderr)
	defer errorHandler.RecoverFromPanic(&exitCode)

	logger.Info("Configuration loaded",
		zap.String("library_root", cfg.LibraryRoot),
		zap.String("archive_url", cfg.ArchiveURL),
		zap.String("scraper", cfg.Scraper),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Bool("history", cfg.HistoryEnabled))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files := downloader.NewFileDownloader(
		downloader.WithChunkSize(cfg.ChunkSize),
		downloader.WithPartialFilePolicy(downloader.ParsePartialFilePolicy(cfg.PartialFiles)),
		downloader.WithLogger(logger.Named("download")),
	)

	terminal := downloader.NewTerminalReporter(console, logger.Named("progress"))
	var reporter downloader.ProgressReporter = terminal
	var appOpts []cli.AppOption
	if cfg.ProgressInterval > 0 {
		tracker := downloader.NewProgressTrackerWithInterval(terminal, logger.Named("summary"), cfg.ProgressInterval)
		reporter = tracker
		appOpts = append(appOpts, cli.WithProgress(tracker))
	}
	batch := downloader.NewBatchDownloader(files, reporter, logger.Named("batch"))

	var fetchOpts []fetcher.Option
	if cfg.HistoryEnabled {
		store, err := history.Open(cfg.HistoryDB, logger.Named("history"))
		if err != nil {
			logger.Warn("History disabled", zap.String("path", cfg.HistoryDB), zap.Error(err))
		} else {
			defer store.Close()
			fetchOpts = append(fetchOpts, fetcher.WithHistory(store))
			appOpts = append(appOpts, cli.WithRunHistory(store))
		}
	}

	f := fetcher.New(newResolver(cfg, logger.Named("listing")), batch, logger.Named("fetcher"), fetchOpts...)

	app := cli.NewApp(cli.Config{
		SeasonCount:     cfg.SeasonCount,
		DestinationRoot: cfg.LibraryRoot,
		MaxConcurrency:  cfg.MaxConcurrency,
		AutoConfirm:     cfg.AutoConfirm,
		SkipCompleted:   cfg.SkipCompleted,
	}, f, cli.NewPrompter(os.Stdin, os.Stdout), os.Stdout, logger.Named("cli"), appOpts...)

	err = app.Run(ctx)
	return errorHandler.Handle(err, app.Season())
}

// newResolver picks the listing scraper named in the configuration
func newResolver(cfg *config.Config, logger *zap.Logger) listing.Resolver {
	if cfg.Scraper == config.ScraperBrowser {
		return listing.NewBrowserResolver(cfg.ArchiveURL, cfg.PageTimeout, cfg.BrowserInstall, logger)
	}
	return listing.NewHTMLResolver(cfg.ArchiveURL, cfg.PageTimeout, listing.WithLogger(logger))
}
