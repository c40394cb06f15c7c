package downloader

// NopReporter discards all progress events
type NopReporter struct{}

func (NopReporter) Queued(DownloadTask, int, int) {}
func (NopReporter) Started(DownloadTask, TransferProgress) {}
func (NopReporter) Advanced(DownloadTask, TransferProgress) {}
func (NopReporter) Finished(DownloadTask, TransferProgress, error) {}

// MultiReporter forwards every event to each reporter in order
type MultiReporter []ProgressReporter

// NewMultiReporter builds a MultiReporter, skipping nil reporters
func NewMultiReporter(reporters ...ProgressReporter) MultiReporter {
	out := make(MultiReporter, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m MultiReporter) Queued(task DownloadTask, position, total int) {
	for _, r := range m {
		r.Queued(task, position, total)
	}
}

func (m MultiReporter) Started(task DownloadTask, progress TransferProgress) {
	for _, r := range m {
		r.Started(task, progress)
	}
}

func (m MultiReporter) Advanced(task DownloadTask, progress TransferProgress) {
	for _, r := range m {
		r.Advanced(task, progress)
	}
}

func (m MultiReporter) Finished(task DownloadTask, progress TransferProgress, err error) {
	for _, r := range m {
		r.Finished(task, progress, err)
	}
}
