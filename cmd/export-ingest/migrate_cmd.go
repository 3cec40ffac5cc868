package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/iota-uz/export-ingest/modules/ingest/infrastructure/persistence"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), root, cmd.OutOrStdout())
		},
	}
}

func runMigrate(ctx context.Context, root *rootOptions, out io.Writer) error {
	a, ctx, err := newApp(ctx, root, "migrate")
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if ctx, err = a.connect(ctx); err != nil {
		return err
	}
	if err := persistence.Migrate(ctx, a.pool); err != nil {
		return withCode(exitWrite, err)
	}
	version, err := persistence.MigrationVersion(ctx, a.pool)
	if err != nil {
		return withCode(exitDB, err)
	}
	a.logger.WithField("version", version).Info("migrations applied")
	return writeJSONLine(out, map[string]any{"version": version})
}
