package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/iota-uz/export-ingest/modules/ingest/infrastructure/persistence"
	"github.com/iota-uz/export-ingest/modules/ingest/services"
)

func newReclassifyCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reclassify",
		Short: "Replace stored distribution labels with canonical post types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReclassify(cmd.Context(), root, cmd.OutOrStdout())
		},
	}
}

func runReclassify(ctx context.Context, root *rootOptions, out io.Writer) error {
	a, ctx, err := newApp(ctx, root, "reclassify")
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if ctx, err = a.connect(ctx); err != nil {
		return err
	}
	// Batches commit on their own; a failed batch is logged and skipped.
	updated, err := services.NewReclassifier(persistence.NewPostRepository(), a.rules).Run(ctx, a.conf.Ingest.CompanyID)
	if err != nil {
		return withCode(exitDB, err)
	}
	return writeJSONLine(out, map[string]any{"company_id": a.conf.Ingest.CompanyID, "updated": updated})
}
