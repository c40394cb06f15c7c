package downloader

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchDownloader runs tasks through a fixed number of slots. Every task
// reaches a terminal Outcome; one failure never cancels the others.
type BatchDownloader struct {
	files    SingleFileDownloader
	reporter ProgressReporter
	logger   *zap.Logger
}

// NewBatchDownloader creates a BatchDownloader. A nil reporter discards progress.
func NewBatchDownloader(files SingleFileDownloader, reporter ProgressReporter, logger *zap.Logger) *BatchDownloader {
	if reporter == nil {
		reporter = NopReporter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchDownloader{
		files:    files,
		reporter: reporter,
		logger:   logger,
	}
}

// DownloadAll downloads every task with at most maxConcurrency transfers in
// flight, dispatching in the given order as slots free up. It blocks until
// all tasks are terminal and returns their outcomes in task order.
// The error is non-nil only when the batch could not start.
func (b *BatchDownloader) DownloadAll(ctx context.Context, tasks []DownloadTask, maxConcurrency int) (*BatchResult, error) {
	if maxConcurrency < 1 {
		return nil, NewDownloadError(ErrorInvalidTask, fmt.Sprintf("max concurrency must be at least 1, got %d", maxConcurrency))
	}

	result := &BatchResult{Outcomes: make([]Outcome, len(tasks))}
	if len(tasks) == 0 {
		return result, nil
	}

	for i, task := range tasks {
		b.logger.Info("Queueing download",
			zap.Int("position", i+1),
			zap.Int("total", len(tasks)),
			zap.String("file", task.Name()),
			zap.String("url", task.SourceURL))
		b.reporter.Queued(task, i+1, len(tasks))
	}
	b.logger.Info("All downloads queued", zap.Int("workers", maxConcurrency))

	// The group has no derived context: a failed task must not cancel siblings.
	var g errgroup.Group
	g.SetLimit(maxConcurrency)
	for i, task := range tasks {
		g.Go(func() error {
			result.Outcomes[i] = b.run(ctx, task)
			return nil
		})
	}
	_ = g.Wait()

	b.logger.Info("Batch finished",
		zap.Int("succeeded", len(result.Succeeded())),
		zap.Int("failed", len(result.Failed())))
	return result, nil
}

func (b *BatchDownloader) run(ctx context.Context, task DownloadTask) Outcome {
	started := time.Now()
	progress, err := b.files.Download(ctx, task, b.reporter)

	outcome := Outcome{
		Task:     task,
		Status:   OutcomeSuccess,
		Progress: progress,
		Duration: time.Since(started),
	}
	if err != nil {
		outcome.Status = OutcomeFailure
		outcome.Err = err
		b.logger.Error("Download failed", zap.String("file", task.Name()), zap.Error(err))
	}

	b.reporter.Finished(task, progress, err)
	return outcome
}
