package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/export-ingest/modules/ingest/services"
)

type ingestOptions struct {
	file   string
	policy string
}

type ingestSummary struct {
	RunID      uuid.UUID            `json:"run_id"`
	CompanyID  string               `json:"company_id"`
	Policy     services.MergePolicy `json:"policy"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	*services.ScanResult
}

func newIngestCmd(root *rootOptions) *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Scan the export folder (or one file) and reconcile into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), root, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "Process a single export and leave it in place")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "Merge policy: max|new (default from POST_UPDATE_POLICY)")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		p := strings.ToLower(strings.TrimSpace(opts.policy))
		if p != "" && p != string(services.PolicyMax) && p != string(services.PolicyNew) {
			return withCode(exitUsage, fmt.Errorf("unsupported --policy %q (expected max|new)", opts.policy))
		}
		opts.policy = p
		return nil
	}
	return cmd
}

func runIngest(ctx context.Context, root *rootOptions, opts ingestOptions, out io.Writer) error {
	a, ctx, err := newApp(ctx, root, "ingest")
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if ctx, err = a.connect(ctx); err != nil {
		return err
	}

	policy := services.ParseMergePolicy(a.conf.Ingest.MergePolicy)
	if opts.policy != "" {
		policy = services.ParseMergePolicy(opts.policy)
	}
	summary := ingestSummary{
		RunID:     uuid.New(),
		CompanyID: a.conf.Ingest.CompanyID,
		Policy:    policy,
		StartedAt: a.now().UTC(),
	}
	logger := a.logger.WithField("run_id", summary.RunID.String())
	logger.WithField("policy", policy).Info("ingest started")

	ing := a.ingestor(policy)
	if opts.file != "" {
		summary.ScanResult, err = processOne(ctx, ing, opts.file)
	} else {
		summary.ScanResult, err = ing.ScanFolder(ctx)
	}
	if err != nil {
		return withCode(exitDB, err)
	}
	summary.FinishedAt = a.now().UTC()
	logger.WithFields(logrus.Fields{
		"posts":        summary.Posts,
		"demographics": summary.Demographics,
		"files":        len(summary.Files),
	}).Info("ingest finished")

	if err := writeJSONLine(out, summary); err != nil {
		return err
	}
	if failed := failedFiles(summary.Files); len(failed) > 0 {
		return withCode(exitWrite, fmt.Errorf("%d file(s) not processed: %s", len(failed), strings.Join(failed, ", ")))
	}
	return nil
}

func processOne(ctx context.Context, ing *services.Ingestor, path string) (*services.ScanResult, error) {
	res := &services.ScanResult{}
	fr := services.FileResult{Name: filepath.Base(path), Route: services.Route(path)}
	var err error
	if fr.Route == services.RouteDemographics {
		fr.Records, err = ing.ProcessDemographicsFile(ctx, path)
		res.Demographics = fr.Records
	} else {
		fr.Records, err = ing.ProcessPostsFile(ctx, path)
		res.Posts = fr.Records
	}
	if err != nil {
		fr.Error = err.Error()
	}
	res.Files = append(res.Files, fr)
	return res, nil
}

func failedFiles(files []services.FileResult) []string {
	var out []string
	for _, f := range files {
		if f.Error != "" {
			out = append(out, f.Name)
		}
	}
	return out
}
