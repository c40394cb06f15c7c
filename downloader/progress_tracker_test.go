package downloader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestProgressTracker_NewProgressTracker(t *testing.T) {
	reporter := NewMockProgressReporter()
	tracker := NewProgressTracker(reporter, nil)

	if tracker == nil {
		t.Fatal("NewProgressTracker returned nil")
	}

	if tracker.updateInterval != DefaultSummaryInterval {
		t.Errorf("Expected update interval to be %v, got %v", DefaultSummaryInterval, tracker.updateInterval)
	}

	if tracker.reporter != reporter {
		t.Error("Reporter not set correctly")
	}

	if tracker.IsRunning() {
		t.Error("Tracker should not be running initially")
	}
}

func TestProgressTracker_NewProgressTrackerWithInterval(t *testing.T) {
	customInterval := 500 * time.Millisecond
	tracker := NewProgressTrackerWithInterval(nil, nil, customInterval)

	if tracker.updateInterval != customInterval {
		t.Errorf("Expected update interval to be %v, got %v", customInterval, tracker.updateInterval)
	}
}

func TestProgressTracker_StartAndStop(t *testing.T) {
	tracker := NewProgressTracker(NewMockProgressReporter(), nil)
	ctx := context.Background()

	if err := tracker.Start(ctx); err != nil {
		t.Fatalf("Failed to start tracker: %v", err)
	}

	if !tracker.IsRunning() {
		t.Error("Tracker should be running after Start()")
	}

	if err := tracker.Start(ctx); err == nil {
		t.Error("Expected error when starting already running tracker")
	}

	tracker.Stop()
	if tracker.IsRunning() {
		t.Error("Tracker should not be running after Stop()")
	}

	// Stop is idempotent
	tracker.Stop()
}

func TestProgressTracker_StartRejectsNonPositiveInterval(t *testing.T) {
	tracker := NewProgressTrackerWithInterval(nil, nil, 0)
	if err := tracker.Start(context.Background()); err == nil {
		t.Error("Expected error for a zero interval")
	}
	if tracker.IsRunning() {
		t.Error("Tracker should not run with a zero interval")
	}
}

func TestProgressTracker_SnapshotAggregation(t *testing.T) {
	reporter := NewMockProgressReporter()
	tracker := NewProgressTracker(reporter, nil)

	first := DownloadTask{SourceURL: "http://archive.test/a.mkv", DestinationPath: "/lib/Season 1/a.mkv"}
	second := DownloadTask{SourceURL: "http://archive.test/b.mkv", DestinationPath: "/lib/Season 1/b.mkv"}

	tracker.Queued(first, 1, 2)
	tracker.Queued(second, 2, 2)
	tracker.Started(first, TransferProgress{TotalBytes: 100})
	tracker.Started(second, TransferProgress{TotalBytes: 200})
	tracker.Advanced(first, TransferProgress{BytesWritten: 40, TotalBytes: 100})
	tracker.Advanced(second, TransferProgress{BytesWritten: 10, TotalBytes: 200})

	snap := tracker.Snapshot()
	if snap.Queued != 2 || snap.Active != 2 {
		t.Errorf("Expected 2 queued and 2 active, got %d and %d", snap.Queued, snap.Active)
	}
	if snap.BytesWritten != 50 || snap.BytesTotal != 300 {
		t.Errorf("Expected 50/300 bytes, got %d/%d", snap.BytesWritten, snap.BytesTotal)
	}

	tracker.Finished(first, TransferProgress{BytesWritten: 100, TotalBytes: 100}, nil)
	tracker.Finished(second, TransferProgress{BytesWritten: 10, TotalBytes: 200}, errors.New("connection reset"))

	snap = tracker.Snapshot()
	if snap.Active != 0 {
		t.Errorf("Expected no active tasks, got %d", snap.Active)
	}
	if snap.Succeeded != 1 || snap.Failed != 1 || snap.Finished() != 2 {
		t.Errorf("Expected 1 succeeded and 1 failed, got %+v", snap)
	}
	if snap.BytesWritten != 110 || snap.BytesTotal != 300 {
		t.Errorf("Expected 110/300 bytes, got %d/%d", snap.BytesWritten, snap.BytesTotal)
	}
}

func TestProgressTracker_ForwardsEvents(t *testing.T) {
	reporter := NewMockProgressReporter()
	tracker := NewProgressTracker(reporter, nil)
	task := DownloadTask{SourceURL: "http://archive.test/a.mkv", DestinationPath: "/lib/a.mkv"}
	failure := errors.New("boom")

	tracker.Queued(task, 1, 1)
	tracker.Started(task, TransferProgress{TotalBytes: 10})
	tracker.Advanced(task, TransferProgress{BytesWritten: 5, TotalBytes: 10})
	tracker.Finished(task, TransferProgress{BytesWritten: 5, TotalBytes: 10}, failure)

	queued := reporter.GetQueuedCalls()
	if len(queued) != 1 || queued[0].Position != 1 || queued[0].Total != 1 {
		t.Errorf("Queued not forwarded correctly: %+v", queued)
	}
	if len(reporter.GetStartedCalls()) != 1 {
		t.Errorf("Started not forwarded")
	}
	if advanced := reporter.GetAdvancedCalls(); len(advanced) != 1 || advanced[0].BytesWritten != 5 {
		t.Errorf("Advanced not forwarded correctly: %+v", advanced)
	}
	finished := reporter.GetFinishedCalls()
	if len(finished) != 1 || !errors.Is(finished[0].Err, failure) {
		t.Errorf("Finished not forwarded correctly: %+v", finished)
	}
}

func TestProgressTracker_PeriodicSummary(t *testing.T) {
	tracker := NewProgressTrackerWithInterval(nil, nil, 20*time.Millisecond)

	ticks := make(chan BatchSnapshot, 16)
	tracker.onTick = func(snap BatchSnapshot) {
		select {
		case ticks <- snap:
		default:
		}
	}

	if err := tracker.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start tracker: %v", err)
	}
	defer tracker.Stop()

	// Nothing queued yet: no summary
	select {
	case snap := <-ticks:
		t.Fatalf("Unexpected summary before any task was queued: %+v", snap)
	case <-time.After(60 * time.Millisecond):
	}

	task := DownloadTask{SourceURL: "http://archive.test/a.mkv", DestinationPath: "/lib/a.mkv"}
	tracker.Queued(task, 1, 1)
	tracker.Started(task, TransferProgress{TotalBytes: 64})

	select {
	case snap := <-ticks:
		if snap.Queued != 1 || snap.Active != 1 {
			t.Errorf("Unexpected summary: %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected a periodic summary")
	}
}

func TestProgressTracker_ContextCancellation(t *testing.T) {
	tracker := NewProgressTrackerWithInterval(nil, nil, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	if err := tracker.Start(ctx); err != nil {
		t.Fatalf("Failed to start tracker: %v", err)
	}

	cancel()
	time.Sleep(20 * time.Millisecond)

	// Tracker should still report as running until Stop() is called
	if !tracker.IsRunning() {
		t.Error("Tracker should still report as running until Stop() is called")
	}

	tracker.Stop()
	if tracker.IsRunning() {
		t.Error("Tracker should not be running after Stop()")
	}
}

func TestProgressTracker_ResourceCleanup(t *testing.T) {
	tracker := NewProgressTrackerWithInterval(nil, nil, 10*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := tracker.Start(ctx); err != nil {
			t.Fatalf("Failed to start tracker on iteration %d: %v", i, err)
		}
		time.Sleep(15 * time.Millisecond)
		tracker.Stop()

		if tracker.IsRunning() {
			t.Errorf("Tracker should not be running after Stop() on iteration %d", i)
		}
	}
}

func TestProgressTracker_ConcurrentEvents(t *testing.T) {
	tracker := NewProgressTrackerWithInterval(NewMockProgressReporter(), nil, 5*time.Millisecond)
	if err := tracker.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start tracker: %v", err)
	}
	defer tracker.Stop()

	numGoroutines := 10
	chunks := 5

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			task := DownloadTask{
				SourceURL:       fmt.Sprintf("http://archive.test/%d.mkv", id),
				DestinationPath: fmt.Sprintf("/lib/%d.mkv", id),
			}
			tracker.Queued(task, id+1, numGoroutines)
			progress := TransferProgress{TotalBytes: int64(chunks * 10)}
			tracker.Started(task, progress)
			for j := 0; j < chunks; j++ {
				progress.BytesWritten += 10
				tracker.Advanced(task, progress)
				time.Sleep(time.Millisecond)
			}
			tracker.Finished(task, progress, nil)
		}(i)
	}
	wg.Wait()

	snap := tracker.Snapshot()
	if snap.Succeeded != numGoroutines || snap.Active != 0 {
		t.Errorf("Expected %d succeeded and none active, got %+v", numGoroutines, snap)
	}
	if want := int64(numGoroutines * chunks * 10); snap.BytesWritten != want {
		t.Errorf("Expected %d bytes written, got %d", want, snap.BytesWritten)
	}
}
