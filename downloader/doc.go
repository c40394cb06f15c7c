// Package downloader transfers files from HTTP sources to local paths.
//
// The package provides:
//   - FileDownloader: streams one URL to one file in fixed-size chunks,
//     verifying status code and declared length
//   - BatchDownloader: runs many DownloadTasks through a bounded pool and
//     collects one Outcome per task (a failure never cancels siblings)
//   - ProgressReporter implementations for terminals and logs
//   - Structured DownloadError values classified by ErrorType
//
// Files that fail mid-transfer are left on disk unless the FileDownloader
// is configured with PartialDelete.
package downloader
