package downloader

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// DownloadTask is one file to fetch. It is immutable once created and is
// consumed by exactly one FileDownloader invocation.
type DownloadTask struct {
	SourceURL         string `json:"source_url"`
	DestinationPath   string `json:"destination_path"`
	ExpectedSizeBytes int64  `json:"expected_size_bytes,omitempty"` // listing estimate, 0 when unknown
}

// Name returns the file name of the destination path
func (t DownloadTask) Name() string {
	return filepath.Base(t.DestinationPath)
}

// TransferProgress is the byte counter of a single transfer.
// TotalBytes is the declared content length, falling back to the task's
// expected size when the server sent none; 0 when neither is known.
type TransferProgress struct {
	BytesWritten int64 `json:"bytes_written"`
	TotalBytes   int64 `json:"total_bytes"`
}

// Percentage returns completion in the range 0-100, or 0 when the total is unknown
func (p TransferProgress) Percentage() float64 {
	if p.TotalBytes <= 0 {
		return 0
	}
	return float64(p.BytesWritten) / float64(p.TotalBytes) * 100
}

// OutcomeStatus is the terminal state of a task
type OutcomeStatus int

const (
	OutcomeSuccess OutcomeStatus = iota
	OutcomeFailure
)

// String returns the string representation of the status
func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome records how one task ended
type Outcome struct {
	Task     DownloadTask
	Status   OutcomeStatus
	Progress TransferProgress
	Err      error
	Duration time.Duration
}

// BatchResult holds one Outcome per submitted task, in submission order
type BatchResult struct {
	Outcomes []Outcome
}

// Len returns the number of recorded outcomes
func (r *BatchResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Outcomes)
}

// Succeeded returns the successful outcomes
func (r *BatchResult) Succeeded() []Outcome {
	return r.filter(OutcomeSuccess)
}

// Failed returns the failed outcomes
func (r *BatchResult) Failed() []Outcome {
	return r.filter(OutcomeFailure)
}

// BytesWritten returns the total bytes written across all outcomes
func (r *BatchResult) BytesWritten() int64 {
	if r == nil {
		return 0
	}
	var total int64
	for _, o := range r.Outcomes {
		total += o.Progress.BytesWritten
	}
	return total
}

// Err joins the errors of all failed outcomes, or returns nil
func (r *BatchResult) Err() error {
	var errs []error
	for _, o := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", o.Task.Name(), o.Err))
	}
	return errors.Join(errs...)
}

func (r *BatchResult) filter(status OutcomeStatus) []Outcome {
	if r == nil {
		return nil
	}
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}
