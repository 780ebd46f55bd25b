package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/solicitation-tracker/internal/core/batch"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
	"github.com/joseph-ayodele/solicitation-tracker/internal/ingest"
)

type extractOptions struct {
	*rootOptions
	Out         string
	Concurrency int
	Sequential  bool
	Dedupe      bool
}

func newExtractCommand(root *rootOptions) *cobra.Command {
	opts := &extractOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "extract <path>...",
		Short: "Extract structured section data from solicitation files",
		Long: `Classifies every file, extracts its section through the language model and
prints the merged result. Directories are walked for supported files.

Example:
  solicit extract ./rfp-package --out result.json
  solicit extract section_l.pdf section_m.docx --sequential`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), opts, args, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write JSON here instead of stdout")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "max concurrent files (default from config)")
	cmd.Flags().BoolVar(&opts.Sequential, "sequential", false, "extract files one at a time without retries")
	cmd.Flags().BoolVar(&opts.Dedupe, "dedupe", true, "skip files with identical content")
	return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runExtract(ctx context.Context, opts *extractOptions, paths []string, stdout io.Writer) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	a, err := newApp(ctx, opts.rootOptions, true)
	if err != nil {
		return err
	}
	defer a.Close()

	files, err := ingest.Paths(ctx, paths, ingest.Options{SkipHidden: true, Dedupe: opts.Dedupe}, a.logger)
	if err != nil {
		return err
	}

	var out any
	if opts.Sequential {
		out = a.extractor.ExtractAll(ctx, files)
	} else {
		res, err := extractBatch(ctx, a, files, opts.Concurrency)
		if err != nil {
			return err
		}
		out = res
	}
	return writeJSON(opts.Out, stdout, out)
}

func extractBatch(ctx context.Context, a *app, files []document.File, concurrency int) (*batch.Result, error) {
	res, err := a.processor.ProcessWithProgress(ctx, files, concurrency, func(s batch.Snapshot) {
		a.logger.Info("batch progress",
			"batch_id", s.BatchID,
			"processed", s.Processed,
			"total", s.TotalFiles,
			"percent", s.PercentComplete,
			"current", s.Current,
		)
	})
	if err != nil {
		return nil, err
	}
	a.saveBatch(ctx, res)
	return res, nil
}

func writeJSON(path string, stdout io.Writer, v any) error {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
