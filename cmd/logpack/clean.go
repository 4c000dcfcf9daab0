package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [log-id]",
		Short: "compact one log, or every log with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runClean,
	}
	cmd.Flags().Bool("all", false, "compact every stored log")
	return cmd
}

func runClean(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if all == (len(args) == 1) {
		return fmt.Errorf("provide a log id or --all, not both")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	runner, closeStore, err := newRunner(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()

	if !all {
		outcome, err := runner.CompactLog(ctx, args[0])
		if err != nil {
			return err
		}
		printOutcome(outcome.LogID, outcome.Status(), outcome.Removed, outcome.Merged, outcome.TokensSaved())
		return nil
	}

	report, err := runner.CompactAll(ctx)
	if report != nil {
		for i := range report.Outcomes {
			o := &report.Outcomes[i]
			printOutcome(o.LogID, o.Status(), o.Removed, o.Merged, o.TokensSaved())
		}
		fmt.Println(report.Summary())
	}
	if err != nil {
		return err
	}
	if report.Failed() > 0 {
		return fmt.Errorf("%d of %d logs failed", report.Failed(), len(report.Outcomes))
	}
	return nil
}

func printOutcome(logID, status string, removed, merged, saved int) {
	switch status {
	case "compacted":
		fmt.Printf("%s: %s (removed %d, merged %d, ~%d tokens saved)\n",
			logID, status, removed, merged, saved)
	default:
		fmt.Printf("%s: %s\n", logID, status)
	}
}
