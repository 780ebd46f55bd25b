package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/solicitation-tracker/internal/ingest"
)

type classifyOptions struct {
	*rootOptions
	NamesOnly bool
}

func newClassifyCommand(root *rootOptions) *cobra.Command {
	opts := &classifyOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "classify <path>...",
		Short: "Show the section each file would be filed under",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd.Context(), opts, args, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&opts.NamesOnly, "names-only", false, "classify by filename without reading content")
	return cmd
}

func runClassify(ctx context.Context, opts *classifyOptions, paths []string, stdout io.Writer) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	a, err := newApp(ctx, opts.rootOptions, false)
	if err != nil {
		return err
	}
	defer a.Close()

	files, err := ingest.Paths(ctx, paths, ingest.Options{SkipHidden: true}, a.logger)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tCATEGORY\tSECTION\tDECIDED BY\tCANDIDATES")
	for _, f := range files {
		content := ""
		if !opts.NamesOnly {
			if res, err := a.reader.Read(ctx, f.Path); err == nil {
				content = res.Text
			} else {
				a.logger.Warn("classify read failed", "file", f.Filename, "error", err)
			}
		}
		res := a.classifier.ClassifyDetailed(f.Filename, content)
		key, _ := res.Category.Key()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n", f.Filename, res.Category, key, res.Source, res.Candidates)
	}
	return tw.Flush()
}
