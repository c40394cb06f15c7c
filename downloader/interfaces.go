package downloader

import "context"

// SingleFileDownloader transfers one task and reports its byte progress
type SingleFileDownloader interface {
	// Download fetches task.SourceURL into task.DestinationPath and returns the
	// final counter. Errors are scoped to this task.
	Download(ctx context.Context, task DownloadTask, reporter ProgressReporter) (TransferProgress, error)
}

// ProgressReporter receives the observable lifecycle of each task.
// Implementations must be safe for concurrent use: the batch calls them from
// every worker.
type ProgressReporter interface {
	// Queued is called once per task, in submission order, with a 1-based position
	Queued(task DownloadTask, position, total int)

	// Started is called when the response headers arrived and the file is open
	Started(task DownloadTask, progress TransferProgress)

	// Advanced is called after each chunk is written
	Advanced(task DownloadTask, progress TransferProgress)

	// Finished is called once per task with its terminal state; err is nil on success
	Finished(task DownloadTask, progress TransferProgress, err error)
}
