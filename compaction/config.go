package compaction

import (
	"fmt"
)

// Default configuration values.
const (
	// DefaultWindowSize is the number of retained messages the duplicate
	// detector looks back over.
	DefaultWindowSize = 3

	// DefaultMergeDelimiter separates the contents of merged system
	// messages.
	DefaultMergeDelimiter = "\n"
)

// Config holds compaction configuration.
type Config struct {
	// WindowSize is the look-back window K for duplicate detection: a
	// message is dropped only if it repeats one of the last K retained
	// messages. Must be >= 1.
	// Default: 3
	WindowSize int

	// MergeDelimiter is the string placed between the contents of
	// consecutive system messages when they are merged.
	// Default: "\n"
	MergeDelimiter string
}

// DefaultConfig returns a Config with the default values.
func DefaultConfig() *Config {
	return &Config{
		WindowSize:     DefaultWindowSize,
		MergeDelimiter: DefaultMergeDelimiter,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.WindowSize == 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.MergeDelimiter == "" {
		c.MergeDelimiter = DefaultMergeDelimiter
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.WindowSize < 1 {
		return fmt.Errorf("%w: window_size must be >= 1, got %d", ErrInvalidConfig, c.WindowSize)
	}
	return nil
}
