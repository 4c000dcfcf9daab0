package logpack

import (
	"fmt"

	"github.com/logpack/logpack/compaction"
)

// DefaultWorkers is the default batch-mode parallelism.
const DefaultWorkers = 4

// Config holds runner configuration.
type Config struct {
	// WindowSize is the duplicate-detection look-back window K.
	// Must be >= 1. Default: 3
	WindowSize int

	// MergeDelimiter separates the contents of merged system messages.
	// Default: "\n"
	MergeDelimiter string

	// Workers is the number of logs compacted concurrently in batch
	// mode. Each worker owns its own log snapshot; there is no shared
	// mutable state between them. Must be >= 1. Default: 4
	Workers int
}

// DefaultConfig returns a Config with the default values.
func DefaultConfig() *Config {
	return &Config{
		WindowSize:     compaction.DefaultWindowSize,
		MergeDelimiter: compaction.DefaultMergeDelimiter,
		Workers:        DefaultWorkers,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.WindowSize == 0 {
		c.WindowSize = compaction.DefaultWindowSize
	}
	if c.MergeDelimiter == "" {
		c.MergeDelimiter = compaction.DefaultMergeDelimiter
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, c.Workers)
	}
	return c.compaction().Validate()
}

// compaction derives the pipeline configuration.
func (c *Config) compaction() *compaction.Config {
	return &compaction.Config{
		WindowSize:     c.WindowSize,
		MergeDelimiter: c.MergeDelimiter,
	}
}
