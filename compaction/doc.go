// Package compaction rewrites a conversation log into a semantically
// equivalent but smaller one, deterministically and without touching
// message content.
//
// The pipeline applies two rules, in fixed order:
//
//   - Duplicate detection: a single left-to-right pass drops messages
//     that exactly repeat (same role, same content) one of the last K
//     retained messages. The window is bounded on purpose: two
//     genuinely repeated user questions far apart in a long
//     conversation are meaningful, not redundant. User turns are never
//     dropped; only assistant retries, tool-result echoes and repeated
//     system notices are deduplicated.
//
//   - System-message merging: maximal runs of consecutive system
//     messages that survive deduplication collapse into one message
//     whose content is the delimiter-joined concatenation of the run.
//     Merging is pure concatenation, so no distinct instruction is
//     lost. Metadata maps are unioned with the earliest message's
//     value winning on conflict.
//
// Running the pipeline is a pure function of its input snapshot: the
// same input always yields byte-identical output, and running it on
// its own output changes nothing.
//
// # Usage
//
//	pipeline, err := compaction.NewPipeline(&compaction.Config{
//	    WindowSize:     3,
//	    MergeDelimiter: "\n",
//	})
//	if err != nil {
//	    return err
//	}
//	result, err := pipeline.Run(log)
//
// The result carries the new ordered message sequence plus removal and
// merge counts for reporting.
package compaction
