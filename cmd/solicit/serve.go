package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/solicitation-tracker/internal/core/batch"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
	"github.com/joseph-ayodele/solicitation-tracker/internal/ingest"
	"github.com/joseph-ayodele/solicitation-tracker/internal/requirements"
	"github.com/joseph-ayodele/solicitation-tracker/internal/server"
)

type serveOptions struct {
	*rootOptions
	Watch    []string
	Debounce time.Duration
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the batch queue with the gRPC and HTTP status APIs",
		Long: `Starts the asynchronous batch queue and serves progress, batch status and
metrics over gRPC (GRPC_ADDR) and HTTP (HTTP_ADDR). With --watch, files
dropped into the given directories are submitted as they arrive.

Example:
  solicit serve --watch ./inbox`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.Watch, "watch", nil, "directories to watch for new files")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 2*time.Second, "coalesce file events for this long")
	return cmd
}

func runServe(ctx context.Context, opts *serveOptions) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	a, err := newApp(ctx, opts.rootOptions, true)
	if err != nil {
		return err
	}
	defer a.Close()

	queue := batch.NewQueue(a.processor, a.logger,
		batch.WithWorkers(a.cfg.Batch.QueueWorkers),
		batch.WithQueueSize(a.cfg.Batch.QueueSize),
		batch.WithProcessTimeout(a.cfg.Batch.JobTimeout),
		batch.WithCompletionHook(a.saveBatch),
	)
	defer queue.Shutdown(context.Background())

	reqOpts := []requirements.Option{requirements.WithOracle(a.oracle), requirements.WithLogger(a.logger)}
	deps := server.Deps{
		Batches:   queue,
		Submitter: queue,
		Metrics:   a.metrics,
		Ingest:    ingest.Options{SkipHidden: true, Dedupe: true},
		Logger:    a.logger,
	}
	if repo := a.requirementRepo(); repo != nil {
		reqOpts = append(reqOpts, requirements.WithStore(repo))
	}
	reqSvc := requirements.NewService(a.shredder, reqOpts...)
	deps.Progress = reqSvc.Tracker()
	deps.Runner = reqSvc
	if a.db != nil {
		deps.Matrix = reqSvc
		deps.Health = func(ctx context.Context) error { return a.db.HealthCheck(ctx, 2*time.Second, a.logger) }
	}

	if len(opts.Watch) > 0 {
		if err := watchAndSubmit(ctx, a, queue, opts); err != nil {
			return err
		}
	}

	srv := server.New(server.Config{GRPCAddr: a.cfg.Server.GRPCAddr, HTTPAddr: a.cfg.Server.HTTPAddr}, deps)
	return srv.Run(ctx)
}

// watchAndSubmit enqueues every file that appears under the watched
// directories as its own batch.
func watchAndSubmit(ctx context.Context, a *app, queue *batch.Queue, opts *serveOptions) error {
	events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:    opts.Watch,
		Debounce: opts.Debounce,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case f, ok := <-events:
				if !ok {
					return
				}
				id, err := queue.Enqueue(ctx, []document.File{f}, 1)
				if err != nil {
					a.logger.Error("watch submit failed", "file", f.Filename, "error", err)
					continue
				}
				a.logger.Info("watch submitted", "file", f.Filename, "batch_id", id)
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				a.logger.Warn("watch error", "error", err)
			}
		}
	}()
	return nil
}
