package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// DefaultChunkSize is the read/write unit of a transfer
const DefaultChunkSize = 1024

// PartialFilePolicy decides what happens to a destination file when its
// transfer fails after the file was created.
type PartialFilePolicy string

const (
	// PartialKeep leaves the truncated file for manual inspection
	PartialKeep PartialFilePolicy = "keep"
	// PartialDelete removes the truncated file
	PartialDelete PartialFilePolicy = "delete"
)

// ParsePartialFilePolicy converts a string to a PartialFilePolicy, defaulting to PartialKeep
func ParsePartialFilePolicy(s string) PartialFilePolicy {
	switch PartialFilePolicy(s) {
	case PartialDelete:
		return PartialDelete
	default:
		return PartialKeep
	}
}

// FileDownloader implements SingleFileDownloader over net/http
type FileDownloader struct {
	client        *http.Client
	chunkSize     int
	partialPolicy PartialFilePolicy
	logger        *zap.Logger
}

// FileDownloaderOption configures a FileDownloader
type FileDownloaderOption func(*FileDownloader)

// WithHTTPClient sets the client used for transfers
func WithHTTPClient(client *http.Client) FileDownloaderOption {
	return func(d *FileDownloader) {
		if client != nil {
			d.client = client
		}
	}
}

// WithChunkSize sets the read/write chunk size
func WithChunkSize(size int) FileDownloaderOption {
	return func(d *FileDownloader) {
		if size > 0 {
			d.chunkSize = size
		}
	}
}

// WithPartialFilePolicy sets the policy for truncated files
func WithPartialFilePolicy(policy PartialFilePolicy) FileDownloaderOption {
	return func(d *FileDownloader) {
		d.partialPolicy = policy
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) FileDownloaderOption {
	return func(d *FileDownloader) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewFileDownloader creates a FileDownloader with a streaming-friendly client
func NewFileDownloader(opts ...FileDownloaderOption) *FileDownloader {
	d := &FileDownloader{
		client:        NewHTTPClient(),
		chunkSize:     DefaultChunkSize,
		partialPolicy: PartialKeep,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewHTTPClient returns a client suited to long transfers: no overall
// timeout, bounded dial and header waits.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   64,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
	}
	return &http.Client{Transport: transport}
}

// Download implements SingleFileDownloader
func (d *FileDownloader) Download(ctx context.Context, task DownloadTask, reporter ProgressReporter) (TransferProgress, error) {
	if reporter == nil {
		reporter = NopReporter{}
	}
	logger := d.logger.With(zap.String("file", task.Name()))

	var progress TransferProgress
	if task.SourceURL == "" || task.DestinationPath == "" {
		return progress, NewDownloadError(ErrorInvalidTask, "task needs a source URL and a destination path")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.SourceURL, nil)
	if err != nil {
		return progress, NewDownloadErrorWithCause(ErrorInvalidTask, "failed to build request", err).
			WithContext("url", task.SourceURL)
	}

	logger.Debug("Starting download", zap.String("url", task.SourceURL))
	resp, err := d.client.Do(req)
	if err != nil {
		return progress, d.classifyTransferError("request failed", err).WithContext("url", task.SourceURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return progress, NewDownloadError(ErrorHTTPStatus, fmt.Sprintf("server returned %s", resp.Status)).
			WithContext("url", task.SourceURL).
			WithContext("status", resp.StatusCode)
	}

	// The listing size is approximate: it only sizes the progress display and
	// never takes part in the size check
	declared := resp.ContentLength
	switch {
	case declared > 0:
		progress.TotalBytes = declared
	case task.ExpectedSizeBytes > 0:
		progress.TotalBytes = task.ExpectedSizeBytes
	}

	file, err := os.OpenFile(task.DestinationPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return progress, NewDownloadErrorWithCause(ErrorFileSystemError, "failed to open destination", err).
			WithContext("path", task.DestinationPath)
	}
	reporter.Started(task, progress)

	progress, err = d.copyChunks(ctx, file, resp.Body, task, progress, reporter)
	if closeErr := file.Close(); closeErr != nil && err == nil {
		err = NewDownloadErrorWithCause(ErrorFileSystemError, "failed to close destination", closeErr).
			WithContext("path", task.DestinationPath)
	}

	if err == nil && declared > 0 && progress.BytesWritten != declared {
		err = NewDownloadError(ErrorSizeMismatch,
			fmt.Sprintf("wrote %d bytes, server declared %d", progress.BytesWritten, declared)).
			WithContext("path", task.DestinationPath)
	}

	if err != nil {
		d.handlePartialFile(logger, task)
		return progress, err
	}

	logger.Debug("Download finished", zap.Int64("bytes", progress.BytesWritten))
	return progress, nil
}

// copyChunks moves the body to the file chunk by chunk
func (d *FileDownloader) copyChunks(ctx context.Context, dst io.Writer, src io.Reader, task DownloadTask, progress TransferProgress, reporter ProgressReporter) (TransferProgress, error) {
	buf := make([]byte, d.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return progress, NewDownloadErrorWithCause(ErrorCancelled, "download cancelled", err)
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			written, writeErr := dst.Write(buf[:n])
			progress.BytesWritten += int64(written)
			if writeErr != nil {
				return progress, NewDownloadErrorWithCause(ErrorFileSystemError, "failed to write destination", writeErr).
					WithContext("path", task.DestinationPath)
			}
			reporter.Advanced(task, progress)
		}

		if readErr == io.EOF {
			return progress, nil
		}
		if readErr != nil {
			return progress, d.classifyTransferError("failed to read response body", readErr).
				WithContext("bytes_written", progress.BytesWritten)
		}
	}
}

func (d *FileDownloader) classifyTransferError(message string, err error) *DownloadError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewDownloadErrorWithCause(ErrorCancelled, message, err)
	}
	return NewDownloadErrorWithCause(ErrorNetworkFailure, message, err)
}

func (d *FileDownloader) handlePartialFile(logger *zap.Logger, task DownloadTask) {
	if d.partialPolicy != PartialDelete {
		logger.Warn("Leaving partial file on disk", zap.String("path", task.DestinationPath))
		return
	}
	if err := os.Remove(task.DestinationPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove partial file", zap.String("path", task.DestinationPath), zap.Error(err))
		return
	}
	logger.Debug("Removed partial file", zap.String("path", task.DestinationPath))
}
