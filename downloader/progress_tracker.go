package downloader

import (
	"context"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// DefaultSummaryInterval is the period of batch summary lines
const DefaultSummaryInterval = 10 * time.Second

// BatchSnapshot is the aggregate state of a running batch
type BatchSnapshot struct {
	Queued       int   `json:"queued"`
	Active       int   `json:"active"`
	Succeeded    int   `json:"succeeded"`
	Failed       int   `json:"failed"`
	BytesWritten int64 `json:"bytes_written"`
	BytesTotal   int64 `json:"bytes_total"` // declared totals of started tasks
}

// Finished returns the number of terminal tasks
func (s BatchSnapshot) Finished() int {
	return s.Succeeded + s.Failed
}

// ProgressTracker aggregates progress across a batch, forwards every event to
// an inner reporter and emits a periodic summary while running
type ProgressTracker struct {
	// Configuration
	updateInterval time.Duration
	reporter       ProgressReporter
	logger         *zap.Logger
	onTick         func(BatchSnapshot)

	// State management
	mu        sync.RWMutex
	isRunning bool
	snapshot  BatchSnapshot
	inFlight  map[string]TransferProgress

	// Goroutine management
	ctx      context.Context
	cancel   context.CancelFunc
	ticker   *time.Ticker
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewProgressTracker creates a ProgressTracker forwarding to reporter
func NewProgressTracker(reporter ProgressReporter, logger *zap.Logger) *ProgressTracker {
	if reporter == nil {
		reporter = NopReporter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pt := &ProgressTracker{
		updateInterval: DefaultSummaryInterval,
		reporter:       reporter,
		logger:         logger,
		inFlight:       make(map[string]TransferProgress),
	}
	pt.onTick = pt.logSnapshot
	return pt
}

// NewProgressTrackerWithInterval creates a ProgressTracker with a custom summary interval
func NewProgressTrackerWithInterval(reporter ProgressReporter, logger *zap.Logger, interval time.Duration) *ProgressTracker {
	pt := NewProgressTracker(reporter, logger)
	pt.updateInterval = interval
	return pt
}

// Start begins the periodic summary
func (pt *ProgressTracker) Start(ctx context.Context) error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.isRunning {
		return NewDownloadError(ErrorUnknown, "progress tracker is already running")
	}
	if pt.updateInterval <= 0 {
		return NewDownloadError(ErrorUnknown, "progress tracker interval must be positive")
	}

	pt.stopChan = make(chan struct{})
	pt.doneChan = make(chan struct{})
	pt.ctx, pt.cancel = context.WithCancel(ctx)
	pt.ticker = time.NewTicker(pt.updateInterval)
	pt.isRunning = true

	go pt.updateLoop()

	return nil
}

// Stop stops the periodic summary and waits for the loop to exit
func (pt *ProgressTracker) Stop() {
	pt.mu.Lock()
	if !pt.isRunning {
		pt.mu.Unlock()
		return
	}

	close(pt.stopChan)
	if pt.cancel != nil {
		pt.cancel()
	}
	pt.isRunning = false
	doneChan := pt.doneChan
	pt.mu.Unlock()

	<-doneChan

	pt.mu.Lock()
	if pt.ticker != nil {
		pt.ticker.Stop()
		pt.ticker = nil
	}
	pt.mu.Unlock()
}

// IsRunning returns whether the summary loop is running
func (pt *ProgressTracker) IsRunning() bool {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.isRunning
}

// Snapshot returns the current aggregate state (thread-safe)
func (pt *ProgressTracker) Snapshot() BatchSnapshot {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	snap := pt.snapshot
	snap.Active = len(pt.inFlight)
	for _, p := range pt.inFlight {
		snap.BytesWritten += p.BytesWritten
		snap.BytesTotal += p.TotalBytes
	}
	return snap
}

// Queued implements ProgressReporter
func (pt *ProgressTracker) Queued(task DownloadTask, position, total int) {
	pt.mu.Lock()
	pt.snapshot.Queued++
	pt.mu.Unlock()

	pt.reporter.Queued(task, position, total)
}

// Started implements ProgressReporter
func (pt *ProgressTracker) Started(task DownloadTask, progress TransferProgress) {
	pt.mu.Lock()
	pt.inFlight[task.DestinationPath] = progress
	pt.mu.Unlock()

	pt.reporter.Started(task, progress)
}

// Advanced implements ProgressReporter
func (pt *ProgressTracker) Advanced(task DownloadTask, progress TransferProgress) {
	pt.mu.Lock()
	pt.inFlight[task.DestinationPath] = progress
	pt.mu.Unlock()

	pt.reporter.Advanced(task, progress)
}

// Finished implements ProgressReporter. Bytes of finished tasks stay in the
// totals so the summary never goes backwards.
func (pt *ProgressTracker) Finished(task DownloadTask, progress TransferProgress, err error) {
	pt.mu.Lock()
	delete(pt.inFlight, task.DestinationPath)
	pt.snapshot.BytesWritten += progress.BytesWritten
	pt.snapshot.BytesTotal += progress.TotalBytes
	if err != nil {
		pt.snapshot.Failed++
	} else {
		pt.snapshot.Succeeded++
	}
	pt.mu.Unlock()

	pt.reporter.Finished(task, progress, err)
}

// updateLoop runs the summary loop in a separate goroutine
func (pt *ProgressTracker) updateLoop() {
	defer close(pt.doneChan)

	for {
		select {
		case <-pt.ctx.Done():
			return

		case <-pt.stopChan:
			return

		case <-pt.ticker.C:
			snap := pt.Snapshot()
			if snap.Queued > 0 && pt.onTick != nil {
				pt.onTick(snap)
			}
		}
	}
}

func (pt *ProgressTracker) logSnapshot(snap BatchSnapshot) {
	pt.logger.Info("Batch progress",
		zap.Int("finished", snap.Finished()),
		zap.Int("queued", snap.Queued),
		zap.Int("active", snap.Active),
		zap.Int("failed", snap.Failed),
		zap.String("written", humanize.IBytes(uint64(snap.BytesWritten))),
		zap.String("declared", humanize.IBytes(uint64(snap.BytesTotal))))
}
