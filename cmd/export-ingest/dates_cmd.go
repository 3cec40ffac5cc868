package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/iota-uz/export-ingest/modules/ingest/services"
)

type datesSummary struct {
	Files     int    `json:"files"`
	Ambiguous int    `json:"ambiguous"`
	DayFirst  int    `json:"dmy"`
	Report    string `json:"report,omitempty"`
}

func newDatesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dates [file...]",
		Short: "Report ambiguous day/month dates without touching the database",
		Long: "Scans the given exports, or every export in the data folder when none are given,\n" +
			"and writes a date discrepancy report for dates that read both as DD/MM and MM/DD.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDates(cmd.Context(), root, args, cmd.OutOrStdout())
		},
	}
}

func runDates(ctx context.Context, root *rootOptions, paths []string, out io.Writer) error {
	a, ctx, err := newApp(ctx, root, "dates")
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if len(paths) == 0 {
		if paths, err = services.ListExports(a.conf.Ingest.DataPath); err != nil {
			return withCode(exitUsage, err)
		}
	}
	decisions, report, err := a.ingestor(services.ParseMergePolicy(a.conf.Ingest.MergePolicy)).CheckDates(ctx, paths)
	if err != nil {
		return withCode(exitReport, err)
	}
	summary := datesSummary{Files: len(paths), Ambiguous: len(decisions), Report: report}
	for _, d := range decisions {
		if d.Chosen == services.ChoiceDayFirst {
			summary.DayFirst++
		}
	}
	return writeJSONLine(out, summary)
}
