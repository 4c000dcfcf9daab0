// Package logpack compacts append-only conversation logs.
//
// Over a long assistant session the stored transcript accumulates
// redundant entries (repeated system preambles, duplicate assistant
// retries, echoed tool outputs) that inflate storage and the token
// budget consumed when the log is replayed as model context. logpack
// rewrites each log into a semantically equivalent but smaller one:
// whole messages are removed or merged under exact rules, and content
// is never altered or summarized.
//
// The Runner ties the pieces together: it resolves which logs to
// compact (one session or every stored session), runs the
// compaction pipeline over a snapshot of each log, and persists the
// result through an atomic store write so that no failure can leave a
// log truncated or half-rewritten.
//
//	store := storage.NewFileStore(logsDir, true)
//	runner, err := logpack.New(store, nil, nil)
//	if err != nil {
//	    return err
//	}
//
//	// One session:
//	outcome, err := runner.CompactLog(ctx, "2024-06-01-refactor")
//
//	// Every session, in parallel workers:
//	report, err := runner.CompactAll(ctx)
//	for _, out := range report.Outcomes {
//	    fmt.Println(out.LogID, out.Status())
//	}
//
// Batch runs never abort on a single log's failure: each failure is
// recorded in the report and the remaining logs proceed. Unchanged
// logs are detected and skipped without a write.
package logpack
