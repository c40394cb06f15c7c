package downloader

import (
	"sync"
)

// MockProgressReporter records every event for assertions
type MockProgressReporter struct {
	mu            sync.RWMutex
	queuedCalls   []QueuedCall
	startedCalls  []DownloadTask
	advancedCalls []TransferProgress
	finishedCalls []FinishedCall
}

type QueuedCall struct {
	Task     DownloadTask
	Position int
	Total    int
}

type FinishedCall struct {
	Task     DownloadTask
	Progress TransferProgress
	Err      error
}

func NewMockProgressReporter() *MockProgressReporter {
	return &MockProgressReporter{}
}

func (m *MockProgressReporter) Queued(task DownloadTask, position, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queuedCalls = append(m.queuedCalls, QueuedCall{Task: task, Position: position, Total: total})
}

func (m *MockProgressReporter) Started(task DownloadTask, progress TransferProgress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startedCalls = append(m.startedCalls, task)
}

func (m *MockProgressReporter) Advanced(task DownloadTask, progress TransferProgress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advancedCalls = append(m.advancedCalls, progress)
}

func (m *MockProgressReporter) Finished(task DownloadTask, progress TransferProgress, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finishedCalls = append(m.finishedCalls, FinishedCall{Task: task, Progress: progress, Err: err})
}

func (m *MockProgressReporter) GetQueuedCalls() []QueuedCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]QueuedCall, len(m.queuedCalls))
	copy(calls, m.queuedCalls)
	return calls
}

func (m *MockProgressReporter) GetStartedCalls() []DownloadTask {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]DownloadTask, len(m.startedCalls))
	copy(calls, m.startedCalls)
	return calls
}

func (m *MockProgressReporter) GetAdvancedCalls() []TransferProgress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]TransferProgress, len(m.advancedCalls))
	copy(calls, m.advancedCalls)
	return calls
}

func (m *MockProgressReporter) GetFinishedCalls() []FinishedCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]FinishedCall, len(m.finishedCalls))
	copy(calls, m.finishedCalls)
	return calls
}
