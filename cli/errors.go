package cli

import "errors"

var (
	// ErrUserAbort is returned when the operator declines the download
	ErrUserAbort = errors.New("download aborted by operator")

	// ErrDownloadsFailed is returned when at least one file failed
	ErrDownloadsFailed = errors.New("one or more downloads failed")
)
