package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("batch queue is shutting down")

// Job is one submitted batch.
type Job struct {
	BatchID        string
	Files          []document.File
	MaxConcurrency int
	SubmittedAt    time.Time
}

// Status is what pollers see for a submitted batch.
type Status struct {
	BatchID     string              `json:"batch_id"`
	State       constants.JobStatus `json:"state"`
	SubmittedAt time.Time           `json:"submitted_at"`
	Progress    *Snapshot           `json:"progress,omitempty"`
	Result      *Result             `json:"result,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// CompletionHook runs after a batch finishes, on the worker goroutine.
type CompletionHook func(ctx context.Context, res *Result)

// Queue runs submitted batches on a fixed set of workers so callers get a
// batch id back immediately.
type Queue struct {
	proc    *Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	keep    int
	hooks   []CompletionHook

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	sendMu sync.RWMutex // held for reading while sending, for writing to close ch
	closed bool

	mu       sync.Mutex
	statuses map[string]*Status
	order    []string // finished batch ids, oldest first
}

type QueueOption func(*Queue)

func WithWorkers(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithRetained bounds how many finished batches stay queryable.
func WithRetained(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.keep = n
		}
	}
}

func WithCompletionHook(h CompletionHook) QueueOption {
	return func(q *Queue) {
		if h != nil {
			q.hooks = append(q.hooks, h)
		}
	}
}

func NewQueue(proc *Processor, logger *slog.Logger, opts ...QueueOption) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		proc:     proc,
		logger:   logger,
		workers:  2,
		timeout:  time.Hour,
		keep:     256,
		ch:       make(chan Job, 64),
		statuses: make(map[string]*Status),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)
				for job := range q.ch {
					q.process(workerID, job)
				}
				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *Queue) process(workerID int, job Job) {
	q.setState(job.BatchID, constants.JobStatusRunning, nil, "")

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	res, err := q.proc.run(ctx, job.BatchID, job.Files, job.MaxConcurrency, nil)
	if err != nil {
		q.logger.Error("batch failed", "worker_id", workerID, "batch_id", job.BatchID, "error", err)
		q.setState(job.BatchID, constants.JobStatusFailed, nil, err.Error())
		return
	}
	q.setState(job.BatchID, constants.JobStatusCompleted, res, "")
	for _, h := range q.hooks {
		h(ctx, res)
	}
	q.logger.Info("batch processed", "worker_id", workerID, "batch_id", job.BatchID,
		"successful", res.Successful, "failed", res.Failed)
}

// Enqueue registers a batch and returns its id. It blocks when the queue is full.
func (q *Queue) Enqueue(ctx context.Context, files []document.File, maxConcurrency int) (string, error) {
	job := Job{
		BatchID:        uuid.NewString(),
		Files:          files,
		MaxConcurrency: maxConcurrency,
		SubmittedAt:    time.Now(),
	}

	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	if q.closed {
		return "", ErrQueueClosed
	}

	q.mu.Lock()
	q.statuses[job.BatchID] = &Status{BatchID: job.BatchID, State: constants.JobStatusQueued, SubmittedAt: job.SubmittedAt}
	q.mu.Unlock()

	select {
	case q.ch <- job:
		q.logger.Info("queued batch", "batch_id", job.BatchID, "files", len(files))
	default:
		q.logger.Warn("queue full, applying backpressure", "batch_id", job.BatchID)
		select {
		case q.ch <- job:
		case <-ctx.Done():
			q.mu.Lock()
			delete(q.statuses, job.BatchID)
			q.mu.Unlock()
			return "", ctx.Err()
		}
	}
	return job.BatchID, nil
}

// Status reports a batch's state; running batches carry a live snapshot.
func (q *Queue) Status(batchID string) (Status, bool) {
	q.mu.Lock()
	st, ok := q.statuses[batchID]
	var out Status
	if ok {
		out = *st
	}
	q.mu.Unlock()
	if !ok {
		return Status{}, false
	}
	if out.State == constants.JobStatusRunning {
		if snap, live := q.proc.GetBatchStatus(batchID); live {
			out.Progress = &snap
		}
	}
	return out, true
}

func (q *Queue) setState(batchID string, state constants.JobStatus, res *Result, errText string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	st, ok := q.statuses[batchID]
	if !ok {
		st = &Status{BatchID: batchID}
		q.statuses[batchID] = st
	}
	st.State = state
	st.Result = res
	st.Error = errText
	if state.Terminal() {
		q.order = append(q.order, batchID)
		for len(q.order) > q.keep {
			delete(q.statuses, q.order[0])
			q.order = q.order[1:]
		}
	}
}

// Shutdown stops accepting batches and waits for queued ones to drain.
func (q *Queue) Shutdown(ctx context.Context) {
	q.sendMu.Lock()
	if q.closed {
		q.sendMu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.sendMu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
