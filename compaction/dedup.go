package compaction

import (
	"github.com/logpack/logpack/types"
)

// Detector marks messages that are redundant copies of a message
// already retained nearby. It never reorders.
type Detector struct {
	window int
}

// NewDetector creates a detector with the given look-back window.
// The window must be >= 1; Pipeline validates this before use.
func NewDetector(window int) *Detector {
	return &Detector{window: window}
}

// Mark returns one drop decision per input message. A message is
// marked for dropping when an equal message (same role, same content)
// exists among the last `window` retained messages and its role is not
// user. The first occurrence in a duplicate run is always retained.
func (d *Detector) Mark(messages []*types.Message) []bool {
	drop := make([]bool, len(messages))

	// Ring of the most recently retained messages, oldest first.
	retained := make([]*types.Message, 0, d.window)

	for i, msg := range messages {
		if msg.Role != types.RoleUser {
			for _, prev := range retained {
				if msg.EqualForDedup(prev) {
					drop[i] = true
					break
				}
			}
		}
		if drop[i] {
			continue
		}

		retained = append(retained, msg)
		if len(retained) > d.window {
			retained = retained[1:]
		}
	}

	return drop
}
