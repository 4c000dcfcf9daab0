package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/logpack/logpack/export"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <log-id>",
		Short: "render a log as a standalone HTML page",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	cmd.Flags().StringP("output", "o", "", "output file (default <log-id>.html)")
	cmd.Flags().String("title", "", "page title (default log id)")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	log, err := store.ReadLog(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = args[0] + ".html"
	}
	title, _ := cmd.Flags().GetString("title")

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := export.NewHTMLExporter().Export(f, log, &export.Options{Title: title}); err != nil {
		return err
	}

	fmt.Printf("wrote %s (%d messages)\n", output, len(log.Messages))
	return nil
}
