package downloader

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// TerminalReporter implements ProgressReporter with one byte progress bar per
// in-flight task and log lines for queue and completion events
type TerminalReporter struct {
	out      io.Writer
	logger   *zap.Logger
	throttle time.Duration

	mu      sync.Mutex
	bars    map[string]*progressbar.ProgressBar
	started map[string]time.Time
}

// NewTerminalReporter creates a TerminalReporter drawing to out (stderr when nil)
func NewTerminalReporter(out io.Writer, logger *zap.Logger) *TerminalReporter {
	if out == nil {
		out = os.Stderr
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TerminalReporter{
		out:      out,
		logger:   logger,
		throttle: 100 * time.Millisecond,
		bars:     make(map[string]*progressbar.ProgressBar),
		started:  make(map[string]time.Time),
	}
}

// Queued implements ProgressReporter
func (tr *TerminalReporter) Queued(task DownloadTask, position, total int) {
	tr.logger.Debug("Queued",
		zap.String("file", task.Name()),
		zap.Int("position", position),
		zap.Int("total", total))
}

// Started implements ProgressReporter
func (tr *TerminalReporter) Started(task DownloadTask, progress TransferProgress) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.bars[task.DestinationPath] = tr.newBar(task.Name(), progress.TotalBytes)
	tr.started[task.DestinationPath] = time.Now()
}

// Advanced implements ProgressReporter
func (tr *TerminalReporter) Advanced(task DownloadTask, progress TransferProgress) {
	tr.mu.Lock()
	bar, ok := tr.bars[task.DestinationPath]
	tr.mu.Unlock()
	if !ok {
		return
	}
	// Totals may be listing estimates, so only Finished completes a bar
	if limit := bar.GetMax64(); limit > 0 && progress.BytesWritten >= limit {
		bar.ChangeMax64(progress.BytesWritten + 1)
	}
	_ = bar.Set64(progress.BytesWritten)
}

// Finished implements ProgressReporter
func (tr *TerminalReporter) Finished(task DownloadTask, progress TransferProgress, err error) {
	tr.mu.Lock()
	bar, ok := tr.bars[task.DestinationPath]
	startTime, hasStart := tr.started[task.DestinationPath]
	delete(tr.bars, task.DestinationPath)
	delete(tr.started, task.DestinationPath)
	tr.mu.Unlock()

	elapsed := time.Duration(0)
	if hasStart {
		elapsed = time.Since(startTime).Round(time.Second)
	}

	if err != nil {
		if ok {
			_ = bar.Exit()
		}
		tr.logger.Error("Download failed",
			zap.String("file", task.Name()),
			zap.String("written", humanize.IBytes(uint64(progress.BytesWritten))),
			zap.Error(err))
		return
	}

	if ok {
		_ = bar.Finish()
	}
	tr.logger.Info("Download complete",
		zap.String("file", task.Name()),
		zap.String("size", humanize.IBytes(uint64(progress.BytesWritten))),
		zap.Duration("elapsed", elapsed))
}

// Active returns the number of bars currently drawn
func (tr *TerminalReporter) Active() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.bars)
}

// newBar creates a byte bar; an unknown total (0) renders as a spinner
func (tr *TerminalReporter) newBar(name string, total int64) *progressbar.ProgressBar {
	limit := total
	if limit <= 0 {
		limit = -1
	}
	return progressbar.NewOptions64(limit,
		progressbar.OptionSetWriter(tr.out),
		progressbar.OptionSetDescription(name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(25),
		progressbar.OptionThrottle(tr.throttle),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			_, _ = io.WriteString(tr.out, "\n")
		}),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
