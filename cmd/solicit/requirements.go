package main

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/solicitation-tracker/internal/ingest"
	"github.com/joseph-ayodele/solicitation-tracker/internal/requirements"
)

type requirementsOptions struct {
	*rootOptions
	ProposalID  string
	XLSX        string
	Out         string
	Concurrency int
}

func newRequirementsCommand(root *rootOptions) *cobra.Command {
	opts := &requirementsOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "requirements <path>...",
		Short: "Extract requirement statements and build a compliance matrix",
		Long: `Runs section extraction, then a second pass over Section L, Section M, SOW,
CDRL and Section H text that lists every shall/must/will requirement.

Example:
  solicit requirements ./rfp-package --proposal acme-2026 --xlsx matrix.xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequirements(cmd.Context(), opts, args, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.ProposalID, "proposal", "", "proposal id (default: random)")
	cmd.Flags().StringVar(&opts.XLSX, "xlsx", "", "write the compliance matrix workbook here")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write JSON here instead of stdout")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "max concurrent files (default from config)")
	return cmd
}

func runRequirements(ctx context.Context, opts *requirementsOptions, paths []string, stdout io.Writer) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	a, err := newApp(ctx, opts.rootOptions, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.ProposalID == "" {
		opts.ProposalID = uuid.NewString()
	}
	files, err := ingest.Paths(ctx, paths, ingest.Options{SkipHidden: true, Dedupe: true}, a.logger)
	if err != nil {
		return err
	}
	res, err := extractBatch(ctx, a, files, opts.Concurrency)
	if err != nil {
		return err
	}

	svcOpts := []requirements.Option{requirements.WithOracle(a.oracle), requirements.WithLogger(a.logger)}
	if repo := a.requirementRepo(); repo != nil {
		svcOpts = append(svcOpts, requirements.WithStore(repo))
	}
	svc := requirements.NewService(a.shredder, svcOpts...)

	reqs, err := svc.Extract(ctx, opts.ProposalID, res.Sections)
	if err != nil {
		return err
	}
	if reqs == nil {
		reqs = []requirements.Requirement{}
	}
	if opts.XLSX != "" {
		b, err := svc.ExportMatrix(ctx, opts.ProposalID, reqs)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.XLSX, b, 0o644); err != nil {
			return err
		}
		a.logger.Info("compliance matrix written", "path", opts.XLSX, "rows", len(reqs))
	}
	return writeJSON(opts.Out, stdout, map[string]any{
		"proposal_id":  opts.ProposalID,
		"batch_id":     res.BatchID,
		"requirements": reqs,
	})
}
