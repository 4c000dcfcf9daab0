package logpack

import (
	"errors"
	"fmt"

	"github.com/logpack/logpack/compaction"
)

// Error taxonomy for compaction runs. Configuration errors fail fast
// before any log is touched; store and malformed-log errors are
// surfaced per log.
var (
	// ErrInvalidConfig indicates an invalid tunable.
	ErrInvalidConfig = compaction.ErrInvalidConfig

	// ErrMalformedLog indicates a log that violates the data model.
	ErrMalformedLog = compaction.ErrMalformedLog

	// ErrStoreRead indicates the persistence layer failed to read a log.
	ErrStoreRead = errors.New("store read failed")

	// ErrStoreWrite indicates the persistence layer failed to write a
	// log. The original log remains unmodified.
	ErrStoreWrite = errors.New("store write failed")
)

// CompactError provides structured context for a failed compaction.
type CompactError struct {
	// Op is the operation that failed (e.g. "read", "compact", "write").
	Op string

	// LogID is the affected log, if any.
	LogID string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
func (e *CompactError) Error() string {
	msg := fmt.Sprintf("compaction %s failed", e.Op)
	if e.LogID != "" {
		msg += fmt.Sprintf(" for log %s", e.LogID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *CompactError) Unwrap() error {
	return e.Err
}

// NewCompactError creates a CompactError for the given operation and log.
func NewCompactError(op, logID string, err error) *CompactError {
	return &CompactError{Op: op, LogID: logID, Err: err}
}

// ErrorKind maps an error to its stable taxonomy name, for per-log
// status reporting. Unrecognized errors report as "unknown".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, ErrMalformedLog):
		return "malformed_log"
	case errors.Is(err, ErrStoreRead):
		return "store_read"
	case errors.Is(err, ErrStoreWrite):
		return "store_write"
	default:
		return "unknown"
	}
}
