package logpack

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/logpack/logpack/compaction"
	"github.com/logpack/logpack/storage"
	"github.com/logpack/logpack/tokens"
)

// Outcome is the result of compacting one log.
type Outcome struct {
	// LogID identifies the log.
	LogID string

	// Removed is the number of duplicate messages dropped.
	Removed int

	// Merged is the number of system-message merges performed.
	Merged int

	// TokensBefore and TokensAfter are estimated token counts around
	// the rewrite.
	TokensBefore int
	TokensAfter  int

	// Err is set when this log's compaction failed. A failed log's
	// stored content is untouched.
	Err error
}

// Changed reports whether compaction altered the log.
func (o *Outcome) Changed() bool {
	return o.Removed > 0 || o.Merged > 0
}

// TokensSaved returns the estimated token reduction.
func (o *Outcome) TokensSaved() int {
	return o.TokensBefore - o.TokensAfter
}

// Status returns the log's outcome as one of "compacted", "unchanged"
// or "failed:<kind>".
func (o *Outcome) Status() string {
	if o.Err != nil {
		return "failed:" + ErrorKind(o.Err)
	}
	if o.Changed() {
		return "compacted"
	}
	return "unchanged"
}

// Report is the result of a batch run over every stored log.
type Report struct {
	// RunID identifies the batch run.
	RunID uuid.UUID

	// Outcomes holds one entry per log, ordered by log ID.
	Outcomes []Outcome
}

// Failed returns the number of logs whose compaction failed.
func (r *Report) Failed() int {
	failed := 0
	for i := range r.Outcomes {
		if r.Outcomes[i].Err != nil {
			failed++
		}
	}
	return failed
}

// Summary returns a one-line human-readable digest of the run.
func (r *Report) Summary() string {
	compacted := 0
	for i := range r.Outcomes {
		if r.Outcomes[i].Err == nil && r.Outcomes[i].Changed() {
			compacted++
		}
	}
	return fmt.Sprintf("run %s: %d logs, %d compacted, %d failed, ~%d tokens saved",
		r.RunID, len(r.Outcomes), compacted, r.Failed(), r.TokensSaved())
}

// TokensSaved returns the estimated token reduction across all
// successfully compacted logs.
func (r *Report) TokensSaved() int {
	saved := 0
	for i := range r.Outcomes {
		if r.Outcomes[i].Err == nil {
			saved += r.Outcomes[i].TokensSaved()
		}
	}
	return saved
}

// Runner resolves which logs to compact and executes the
// read → compact → atomic write cycle per log.
//
// A Runner holds no global state: every run is a function of its
// explicit inputs, namely the scope, the configuration and the
// store's current content.
type Runner struct {
	store    storage.Store
	config   *Config
	pipeline *compaction.Pipeline
	logger   Logger
}

// New creates a Runner. A nil config uses defaults; zero fields are
// filled in. Invalid configuration fails here, before any log is
// touched. A nil logger disables logging.
func New(store storage.Store, config *Config, logger Logger) (*Runner, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}

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

	pipeline, err := compaction.NewPipeline(config.compaction())
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = noopLogger{}
	}

	return &Runner{
		store:    store,
		config:   config,
		pipeline: pipeline,
		logger:   logger,
	}, nil
}

// Config returns the runner's effective configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// CompactLog compacts a single identified log. The log is read in
// full, the result computed from that snapshot, and the new sequence
// written back only if something changed. On failure the stored log is
// untouched and the error carries one taxonomy kind.
func (r *Runner) CompactLog(ctx context.Context, logID string) (*Outcome, error) {
	log, err := r.store.ReadLog(ctx, logID)
	if err != nil {
		return nil, NewCompactError("read", logID, fmt.Errorf("%w: %v", ErrStoreRead, err))
	}

	result, err := r.pipeline.Run(log)
	if err != nil {
		return nil, NewCompactError("compact", logID, err)
	}

	outcome := &Outcome{
		LogID:        logID,
		Removed:      result.Removed,
		Merged:       result.Merged,
		TokensBefore: tokens.Sum(log.Messages),
		TokensAfter:  tokens.Sum(result.Messages),
	}

	if !result.Unchanged() {
		if err := r.store.WriteLog(ctx, logID, result.Messages); err != nil {
			return nil, NewCompactError("write", logID, fmt.Errorf("%w: %v", ErrStoreWrite, err))
		}
		r.logger.Info("log compacted",
			"log_id", logID,
			"removed", outcome.Removed,
			"merged", outcome.Merged,
			"tokens_saved", outcome.TokensSaved(),
		)
	} else {
		r.logger.Debug("log unchanged", "log_id", logID)
	}

	return outcome, nil
}

// CompactAll compacts every stored log. The log list is snapshotted
// once at the start; logs added while the batch runs are not included.
// Logs are processed by a pool of workers, one log per worker at a
// time, and one log's failure never aborts the others.
//
// Cancellation takes effect between logs: when ctx is done, remaining
// logs are skipped, already-finished outcomes are returned alongside
// ctx.Err(), and no committed log is affected.
func (r *Runner) CompactAll(ctx context.Context) (*Report, error) {
	infos, err := r.store.ListLogs(ctx)
	if err != nil {
		return nil, NewCompactError("list", "", fmt.Errorf("%w: %v", ErrStoreRead, err))
	}

	report := &Report{RunID: uuid.New()}
	r.logger.Info("batch compaction started", "run_id", report.RunID, "logs", len(infos))

	workers := r.config.Workers
	if workers > len(infos) {
		workers = len(infos)
	}

	jobs := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for logID := range jobs {
				outcome, err := r.CompactLog(ctx, logID)
				if err != nil {
					r.logger.Warn("log compaction failed", "log_id", logID, "error", err)
					outcome = &Outcome{LogID: logID, Err: err}
				}

				mu.Lock()
				report.Outcomes = append(report.Outcomes, *outcome)
				mu.Unlock()
			}
		}()
	}

	// Feed jobs until done or cancelled; a log's write phase is never
	// interrupted, only the hand-off of further logs stops.
	var cancelled error
feed:
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		case jobs <- info.ID:
		}
	}
	close(jobs)
	wg.Wait()

	sort.Slice(report.Outcomes, func(i, j int) bool {
		return report.Outcomes[i].LogID < report.Outcomes[j].LogID
	})

	r.logger.Info("batch compaction finished",
		"run_id", report.RunID,
		"logs", len(report.Outcomes),
		"failed", report.Failed(),
		"tokens_saved", report.TokensSaved(),
	)

	return report, cancelled
}
