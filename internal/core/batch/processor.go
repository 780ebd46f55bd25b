// Package batch runs the extractor over many files with bounded
// concurrency, retries and live progress.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/extractor"
)

// Extractor is the per-file unit of work.
type Extractor interface {
	ExtractFile(ctx context.Context, f document.File) (extractor.FileResult, error)
}

type Config struct {
	MaxConcurrency   int           // default 5
	MaxRetries       int           // retries after the first attempt; 0 disables
	RetryDelay       time.Duration // multiplied by the attempt number
	RateLimitDelay   time.Duration // spacing before every extractor call
	ItemTimeout      time.Duration // per attempt; 0 disables
	ProgressInterval time.Duration // callback period for ProcessWithProgress
}

// ItemError records a file that failed every attempt. Error is the last
// attempt's message; Kind and Cause carry the taxonomy.
type ItemError struct {
	File     string           `json:"file"`
	Error    string           `json:"error"`
	Kind     common.ErrorKind `json:"kind"`
	Cause    common.ErrorKind `json:"cause"`
	Attempts int              `json:"attempts"`
}

// Result is the immutable outcome of one batch. Successful+Failed always
// equals TotalFiles.
type Result struct {
	BatchID     string                 `json:"batch_id"`
	TotalFiles  int                    `json:"total_files"`
	Successful  int                    `json:"successful"`
	Failed      int                    `json:"failed"`
	Results     []extractor.FileResult `json:"results"`
	Errors      []ItemError            `json:"errors"`
	Duration    float64                `json:"duration"` // seconds
	SuccessRate float64                `json:"success_rate"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt time.Time              `json:"completed_at"`
	Sections    *extractor.Result      `json:"sections"`
}

type Processor struct {
	cfg    Config
	ext    Extractor
	logger *slog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error

	mu     sync.RWMutex
	active map[string]*progress
}

type Option func(*Processor)

func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSleep replaces the context-aware sleep used for rate limiting and backoff.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Processor) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

func NewProcessor(ext Extractor, cfg Config, opts ...Option) *Processor {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 5
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = time.Second
	}
	p := &Processor{
		cfg:    cfg,
		ext:    ext,
		logger: slog.Default(),
		now:    time.Now,
		sleep:  sleepCtx,
		active: make(map[string]*progress),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GetBatchStatus returns a snapshot of a batch that is still running.
func (p *Processor) GetBatchStatus(batchID string) (Snapshot, bool) {
	p.mu.RLock()
	prog, ok := p.active[batchID]
	p.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return prog.snapshot(p.now()), true
}

// ActiveBatches lists the ids of running batches.
func (p *Processor) ActiveBatches() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.active))
	for id := range p.active {
		ids = append(ids, id)
	}
	return ids
}

// ProcessBatch extracts every file, at most maxConcurrency at a time
// (the configured default when <= 0). Per-file failures never abort the
// batch; they are reported in Result.Errors.
func (p *Processor) ProcessBatch(ctx context.Context, files []document.File, maxConcurrency int) (*Result, error) {
	return p.run(ctx, uuid.NewString(), files, maxConcurrency, nil)
}

// ProcessWithProgress is ProcessBatch plus a callback invoked every
// ProgressInterval with a live snapshot, and once more at the end.
func (p *Processor) ProcessWithProgress(ctx context.Context, files []document.File, maxConcurrency int, cb func(Snapshot)) (*Result, error) {
	return p.run(ctx, uuid.NewString(), files, maxConcurrency, cb)
}

type outcome struct {
	res      extractor.FileResult
	err      error // BatchItemExhausted
	last     error // last attempt's error
	attempts int
	done     bool
}

func (p *Processor) run(ctx context.Context, batchID string, files []document.File, maxConcurrency int, cb func(Snapshot)) (*Result, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = p.cfg.MaxConcurrency
	}
	started := p.now()
	prog := newProgress(batchID, len(files), started)

	p.mu.Lock()
	p.active[batchID] = prog
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.active, batchID)
		p.mu.Unlock()
	}()

	ctx = common.WithBatchID(ctx, batchID)
	log := p.logger.With("batch_id", batchID)
	log.Info("batch.start", "files", len(files), "max_concurrency", maxConcurrency)

	pool, err := ants.NewPool(maxConcurrency)
	if err != nil {
		return nil, fmt.Errorf("worker pool: %w", err)
	}
	defer pool.Release()

	stopTicker := func() {}
	if cb != nil {
		stopTicker = p.tick(prog, cb)
	}

	outcomes := make([]outcome, len(files))
	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			res, attempts, last, err := p.runItem(ctx, prog, f, log)
			outcomes[i] = outcome{res: res, err: err, last: last, attempts: attempts, done: true}
			if err != nil {
				prog.failed.Add(1)
			} else {
				prog.successful.Add(1)
			}
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			err = fmt.Errorf("submit: %w", err)
			outcomes[i] = outcome{err: err, last: err, done: true}
			prog.failed.Add(1)
		}
	}
	wg.Wait()
	stopTicker()

	res := p.assemble(batchID, files, outcomes, started)
	if cb != nil {
		cb(prog.snapshot(p.now()))
	}
	log.Info("batch.done",
		"successful", res.Successful,
		"failed", res.Failed,
		"success_rate", res.SuccessRate,
		"duration_s", res.Duration,
	)
	return res, nil
}

func (p *Processor) tick(prog *progress, cb func(Snapshot)) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		t := time.NewTicker(p.cfg.ProgressInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				cb(prog.snapshot(p.now()))
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}

// runItem makes one attempt plus up to MaxRetries retries, sleeping
// RateLimitDelay before each call and RetryDelay*attempt between attempts.
// On exhaustion it returns the last attempt's error and the wrapping
// BatchItemExhausted error.
func (p *Processor) runItem(ctx context.Context, prog *progress, f document.File, log *slog.Logger) (extractor.FileResult, int, error, error) {
	var lastErr error
	attempt := 0
	maxAttempts := p.cfg.MaxRetries + 1
	for attempt < maxAttempts {
		attempt++
		if err := p.sleep(ctx, p.cfg.RateLimitDelay); err != nil {
			lastErr = err
			break
		}
		prog.setCurrent(f.Filename)

		actx, cancel := ctx, context.CancelFunc(func() {})
		if p.cfg.ItemTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, p.cfg.ItemTimeout)
		}
		res, err := p.ext.ExtractFile(actx, f)
		cancel()
		if err == nil {
			if attempt > 1 {
				log.Info("batch.item.recovered", "file", f.Filename, "attempt", attempt)
			}
			return res, attempt, nil, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < maxAttempts {
			delay := p.cfg.RetryDelay * time.Duration(attempt)
			log.Warn("batch.item.retry", "file", f.Filename, "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", err)
			if err := p.sleep(ctx, delay); err != nil {
				break
			}
		}
	}
	err := common.BatchItemExhausted(f.Filename, attempt, lastErr)
	log.Error("batch.item.failed", "file", f.Filename, "attempts", attempt, "error", lastErr)
	return extractor.FileResult{File: f}, attempt, lastErr, err
}

func (p *Processor) assemble(batchID string, files []document.File, outcomes []outcome, started time.Time) *Result {
	completed := p.now()
	res := &Result{
		BatchID:     batchID,
		TotalFiles:  len(files),
		Results:     []extractor.FileResult{},
		Errors:      []ItemError{},
		StartedAt:   started,
		CompletedAt: completed,
		Duration:    completed.Sub(started).Seconds(),
		Sections:    extractor.NewResult(),
	}
	for i, o := range outcomes {
		if o.err != nil || !o.done {
			last := o.last
			if last == nil {
				last = o.err
			}
			if last == nil {
				last = errors.New("not run")
			}
			res.Errors = append(res.Errors, ItemError{
				File:     files[i].Filename,
				Error:    last.Error(),
				Kind:     common.KindBatchItemExhausted,
				Cause:    common.Kind(last),
				Attempts: o.attempts,
			})
			continue
		}
		res.Results = append(res.Results, o.res)
		res.Sections.Add(o.res)
	}
	res.Successful = len(res.Results)
	res.Failed = len(res.Errors)
	if res.TotalFiles > 0 {
		res.SuccessRate = float64(res.Successful) / float64(res.TotalFiles) * 100
	}
	return res
}
