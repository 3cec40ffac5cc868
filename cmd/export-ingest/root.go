package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFiles []string
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "export-ingest",
		Short:         "Ingest LinkedIn analytics exports into PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env", []string{".env", ".env.local"}, "Env files to load, in order")

	cmd.AddCommand(newIngestCmd(&opts))
	cmd.AddCommand(newDatesCmd(&opts))
	cmd.AddCommand(newReclassifyCmd(&opts))
	cmd.AddCommand(newMigrateCmd(&opts))
	return cmd
}

func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
