package compaction

import (
	"errors"
)

// Sentinel errors for compaction operations.
var (
	// ErrInvalidConfig indicates an invalid compaction configuration.
	ErrInvalidConfig = errors.New("invalid compaction configuration")

	// ErrMalformedLog indicates a log whose messages violate the data
	// model: a missing role, or a broken sequence ordering.
	ErrMalformedLog = errors.New("malformed log")
)
