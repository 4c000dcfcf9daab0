package compaction

import (
	"fmt"
	"sort"

	"github.com/logpack/logpack/types"
)

// Result contains the outcome of one pipeline run.
type Result struct {
	// Messages is the new ordered sequence. It is never longer than the
	// input and surviving messages keep their relative order.
	Messages []*types.Message

	// Removed is the number of messages dropped as duplicates.
	Removed int

	// Merged is the number of merge operations performed (one per
	// collapsed run of system messages).
	Merged int

	// PreservedMetadataKeys is the sorted set of metadata keys present
	// in the result. Metadata preservation is a documented contract of
	// the pipeline, not a runtime check; the set is reported for
	// inspection only.
	PreservedMetadataKeys []string
}

// Unchanged reports whether the run dropped or merged nothing.
func (r *Result) Unchanged() bool {
	return r.Removed == 0 && r.Merged == 0
}

// Pipeline orchestrates duplicate detection and system-message merging
// over one log snapshot.
//
// A Pipeline is safe for concurrent use: Run is a pure function of its
// input and the immutable configuration.
type Pipeline struct {
	config   *Config
	detector *Detector
	merger   *Merger
}

// NewPipeline creates a pipeline from the given configuration.
// A nil config uses defaults; zero fields are filled in. The
// configuration is validated before any log is touched.
func NewPipeline(config *Config) (*Pipeline, error) {
	if config == nil {
		config = DefaultConfig()
	} else {
		cp := *config
		cp.ApplyDefaults()
		config = &cp
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Pipeline{
		config:   config,
		detector: NewDetector(config.WindowSize),
		merger:   NewMerger(config.MergeDelimiter),
	}, nil
}

// Config returns the pipeline's effective configuration.
func (p *Pipeline) Config() *Config {
	return p.config
}

// Run compacts one log snapshot and returns the result. The input is
// never mutated; running twice on the same input yields identical
// output, and running on the pipeline's own output is a no-op.
//
// If any message lacks a role, or sequence indices are not strictly
// increasing, Run fails with ErrMalformedLog and produces no partial
// result.
func (p *Pipeline) Run(log *types.Log) (*Result, error) {
	if err := validate(log); err != nil {
		return nil, err
	}

	current := make([]*types.Message, 0, len(log.Messages))
	for _, msg := range log.Messages {
		current = append(current, msg.Clone())
	}

	removed := 0
	merges := 0

	// A merge can synthesize content equal to a surviving message
	// inside the look-back window, which a single pass would leave as
	// a duplicate for the next run to drop. Repeat the two passes
	// until neither changes the sequence, so the output is a fixed
	// point. Every changing pass strictly shortens the sequence, so
	// the loop terminates.
	for {
		drop := p.detector.Mark(current)

		kept := make([]*types.Message, 0, len(current))
		dropped := 0
		for i, msg := range current {
			if drop[i] {
				dropped++
				continue
			}
			kept = append(kept, msg)
		}

		merged, passMerges := p.merger.Merge(kept)

		removed += dropped
		merges += passMerges
		current = merged

		if dropped == 0 && passMerges == 0 {
			break
		}
	}

	// Drops and merges leave gaps; re-stamp to a dense 0..n-1 ordering
	// consistent with the original relative order.
	for i, msg := range current {
		msg.Seq = i
	}

	return &Result{
		Messages:              current,
		Removed:               removed,
		Merged:                merges,
		PreservedMetadataKeys: metadataKeys(current),
	}, nil
}

// validate checks the data-model invariants the pipeline relies on.
func validate(log *types.Log) error {
	prev := 0
	for i, msg := range log.Messages {
		if msg == nil {
			return fmt.Errorf("%w: message at position %d is nil", ErrMalformedLog, i)
		}
		if msg.Role == "" {
			return fmt.Errorf("%w: message at position %d has no role", ErrMalformedLog, i)
		}
		if i > 0 && msg.Seq <= prev {
			return fmt.Errorf("%w: sequence index %d at position %d does not increase", ErrMalformedLog, msg.Seq, i)
		}
		prev = msg.Seq
	}
	return nil
}

func metadataKeys(messages []*types.Message) []string {
	seen := make(map[string]struct{})
	for _, msg := range messages {
		for k := range msg.Metadata {
			seen[k] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
