package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"season-archiver/downloader"
	"season-archiver/fetcher"
	"season-archiver/listing"
	"season-archiver/logging"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrorTypeConfiguration ErrorType = iota
	ErrorTypeResolution
	ErrorTypeCapacity
	ErrorTypeDownload
	ErrorTypeRuntime
)

// String returns the string representation of ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeConfiguration:
		return "CONFIGURATION"
	case ErrorTypeResolution:
		return "RESOLUTION"
	case ErrorTypeCapacity:
		return "CAPACITY"
	case ErrorTypeDownload:
		return "DOWNLOAD"
	case ErrorTypeRuntime:
		return "RUNTIME"
	default:
		return "UNKNOWN"
	}
}

// ErrorContext provides context information for error handling
type ErrorContext struct {
	Season        int
	CorrelationID string
	Timestamp     time.Time
}

// ErrorHandler provides centralized error management for the CLI. It logs
// every error with a correlation ID and prints a short message for the
// operator.
type ErrorHandler struct {
	logger *zap.Logger
	out    io.Writer
	newID  func() string
}

// NewErrorHandler creates a new ErrorHandler instance writing operator
// messages to out (stderr when nil)
func NewErrorHandler(logger *zap.Logger, out io.Writer) *ErrorHandler {
	if out == nil {
		out = os.Stderr
	}
	return &ErrorHandler{
		logger: logging.OrNop(logger),
		out:    out,
		newID:  uuid.NewString,
	}
}

// Classify maps an error to its category
func (e *ErrorHandler) Classify(err error) ErrorType {
	var resolutionErr *listing.ResolutionError
	var capacityErr *fetcher.CapacityError

	switch {
	case errors.As(err, &resolutionErr):
		return ErrorTypeResolution
	case errors.As(err, &capacityErr):
		return ErrorTypeCapacity
	case errors.Is(err, ErrDownloadsFailed), downloader.IsDownloadError(err):
		return ErrorTypeDownload
	default:
		return ErrorTypeRuntime
	}
}

// HandleConfigError handles configuration errors and returns the exit code.
// They happen before the logger level is known, so they always print.
func (e *ErrorHandler) HandleConfigError(err error) int {
	errorCtx := e.newContext(0)
	e.logStructuredError(ErrorTypeConfiguration, err, errorCtx, "Configuration error occurred")
	fmt.Fprintln(e.out, e.createOperatorMessage(ErrorTypeConfiguration, err, errorCtx))
	return 1
}

// Handle reports the result of a run and returns the process exit code
func (e *ErrorHandler) Handle(err error, season int) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrUserAbort) {
		e.logger.Info("Download cancelled by operator", zap.Int("season", season))
		return 0
	}

	errorType := e.Classify(err)
	errorCtx := e.newContext(season)
	e.logStructuredError(errorType, err, errorCtx, "Run failed")
	fmt.Fprintln(e.out, e.createOperatorMessage(errorType, err, errorCtx))
	return 1
}

// RecoverFromPanic recovers from panics, reports them as runtime errors and
// sets *exitCode. It must be deferred directly.
func (e *ErrorHandler) RecoverFromPanic(exitCode *int) {
	if r := recover(); r != nil {
		var err error
		if re, ok := r.(error); ok {
			err = re
		} else {
			err = fmt.Errorf("panic: %v", r)
		}
		code := e.Handle(fmt.Errorf("recovered from panic: %w", err), 0)
		if exitCode != nil {
			*exitCode = code
		}
	}
}

// IsNetworkError checks if an error is network-related
func (e *ErrorHandler) IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errorMsg := strings.ToLower(err.Error())
	for _, keyword := range []string{"connection", "timeout", "dns", "tls", "no such host"} {
		if strings.Contains(errorMsg, keyword) {
			return true
		}
	}
	return false
}

func (e *ErrorHandler) newContext(season int) *ErrorContext {
	return &ErrorContext{
		Season:        season,
		CorrelationID: e.newID(),
		Timestamp:     time.Now(),
	}
}

// logStructuredError logs errors with structured information
func (e *ErrorHandler) logStructuredError(errorType ErrorType, err error, ctx *ErrorContext, message string) {
	fields := []zap.Field{
		zap.String("type", errorType.String()),
		zap.Error(err),
		zap.String("correlation_id", ctx.CorrelationID),
		zap.Time("timestamp", ctx.Timestamp),
	}
	if ctx.Season != 0 {
		fields = append(fields, zap.Int("season", ctx.Season))
	}

	switch errorType {
	case ErrorTypeDownload:
		e.logger.Warn(message, fields...)
	default:
		e.logger.Error(message, fields...)
	}
}

// createOperatorMessage creates the message printed for the operator
func (e *ErrorHandler) createOperatorMessage(errorType ErrorType, err error, ctx *ErrorContext) string {
	var msg string
	switch errorType {
	case ErrorTypeConfiguration:
		msg = fmt.Sprintf("Configuration error: %v", err)
	case ErrorTypeResolution:
		switch {
		case errors.Is(err, listing.ErrSeasonNotFound):
			msg = fmt.Sprintf("Season %d was not found in the archive.", ctx.Season)
		case e.IsNetworkError(err):
			msg = "Could not reach the archive. Check your connection and try again."
		default:
			msg = fmt.Sprintf("Could not read the archive listing: %v", err)
		}
	case ErrorTypeCapacity:
		msg = fmt.Sprintf("Could not determine free disk space: %v", err)
	case ErrorTypeDownload:
		msg = "Some downloads failed. See the summary above."
	default:
		if errors.Is(err, context.Canceled) {
			msg = "Interrupted."
		} else {
			msg = fmt.Sprintf("Something went wrong: %v", err)
		}
	}

	// Only the first 8 characters; the full ID is in the log
	if len(ctx.CorrelationID) >= 8 {
		msg += fmt.Sprintf(" (error ID: %s)", ctx.CorrelationID[:8])
	}
	return msg
}
