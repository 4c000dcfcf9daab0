package compaction

import (
	"strings"

	"github.com/logpack/logpack/types"
)

// Merger combines consecutive system messages into one, reducing
// message count without losing any distinct instruction.
type Merger struct {
	delimiter string
}

// NewMerger creates a merger using the given content delimiter.
func NewMerger(delimiter string) *Merger {
	return &Merger{delimiter: delimiter}
}

// Merge scans for maximal runs of consecutive system messages and
// collapses each run of length >= 2 into a single message. It returns
// the new sequence and the number of merges performed.
//
// The merged message's content is the ordered, delimiter-joined
// concatenation of the run members' contents, with no deduplication
// of sub-lines. Its metadata is the union of the run
// members' maps with the earliest message's value winning per key, and
// its Seq is the first member's.
//
// Runs are only recognized in the sequence as given: a system message
// separated from another by any non-system message is never merged
// across that boundary.
func (m *Merger) Merge(messages []*types.Message) ([]*types.Message, int) {
	out := make([]*types.Message, 0, len(messages))
	merges := 0

	for i := 0; i < len(messages); {
		if !messages[i].IsSystem() {
			out = append(out, messages[i])
			i++
			continue
		}

		// Extend to the maximal system run starting at i.
		j := i + 1
		for j < len(messages) && messages[j].IsSystem() {
			j++
		}

		if j-i == 1 {
			out = append(out, messages[i])
		} else {
			out = append(out, m.mergeRun(messages[i:j]))
			merges++
		}
		i = j
	}

	return out, merges
}

// mergeRun collapses a run of two or more system messages.
func (m *Merger) mergeRun(run []*types.Message) *types.Message {
	contents := make([]string, len(run))
	for i, msg := range run {
		contents[i] = msg.Content
	}

	var metadata map[string]any
	for _, msg := range run {
		for k, v := range msg.Metadata {
			if metadata == nil {
				metadata = make(map[string]any)
			}
			if _, exists := metadata[k]; !exists {
				metadata[k] = v
			}
		}
	}

	return &types.Message{
		Role:     types.RoleSystem,
		Content:  strings.Join(contents, m.delimiter),
		Metadata: metadata,
		Seq:      run[0].Seq,
	}
}
