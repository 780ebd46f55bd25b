package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/solicitation-tracker/internal/core/shredder"
)

type shredOptions struct {
	*rootOptions
	Size    int
	Overlap int
	Raw     bool
	Out     string
}

func newShredCommand(root *rootOptions) *cobra.Command {
	opts := &shredOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "shred <file>",
		Short: "Split a document into overlapping chunks",
		Long: `Reads one file and prints its chunks as JSON. By default chunking follows
the document's paragraphs, pages and SECTION headers; --raw chunks the plain
text instead.

Example:
  solicit shred section_l.pdf --size 1500 --overlap 300`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShred(cmd.Context(), opts, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&opts.Size, "size", 0, "chunk size in characters (default from config)")
	cmd.Flags().IntVar(&opts.Overlap, "overlap", -1, "overlap in characters (default from config)")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "chunk plain text instead of document elements")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write JSON here instead of stdout")
	return cmd
}

func runShred(ctx context.Context, opts *shredOptions, path string, stdout io.Writer) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	a, err := newApp(ctx, opts.rootOptions, false)
	if err != nil {
		return err
	}
	defer a.Close()

	sh := a.shredder
	if opts.Size > 0 || opts.Overlap >= 0 {
		cfg := shredder.Config{ChunkSize: a.cfg.Shredder.ChunkSize, Overlap: a.cfg.Shredder.Overlap}
		if opts.Size > 0 {
			cfg.ChunkSize = opts.Size
		}
		if opts.Overlap >= 0 {
			cfg.Overlap = opts.Overlap
		}
		sh = shredder.New(cfg, a.logger)
	}

	var chunks []shredder.Chunk
	if opts.Raw {
		res, err := a.reader.Read(ctx, path)
		if err != nil {
			return err
		}
		chunks = sh.ShredText(res.Text)
	} else {
		elements, err := a.reader.Elements(ctx, path)
		if err != nil {
			return err
		}
		chunks = sh.ShredElements(elements)
	}
	a.logger.Info("shredded", "file", path, "chunks", len(chunks))
	return writeJSON(opts.Out, stdout, chunks)
}
