package batch

import (
	"sync/atomic"
	"time"
)

// progress is mutated by the batch's own tasks and read lock-free by
// pollers. Processed is always derived as successful+failed.
type progress struct {
	batchID    string
	total      int
	startedAt  time.Time
	successful atomic.Int64
	failed     atomic.Int64
	current    atomic.Pointer[string]
}

func newProgress(batchID string, total int, now time.Time) *progress {
	return &progress{batchID: batchID, total: total, startedAt: now}
}

func (p *progress) setCurrent(name string) { p.current.Store(&name) }

// Snapshot is a consistent point-in-time view of a running batch.
type Snapshot struct {
	BatchID            string    `json:"batch_id"`
	TotalFiles         int       `json:"total_files"`
	Processed          int       `json:"processed"`
	Successful         int       `json:"successful"`
	Failed             int       `json:"failed"`
	Current            string    `json:"current,omitempty"`
	StartedAt          time.Time `json:"started_at"`
	PercentComplete    float64   `json:"percent_complete"`
	ElapsedSeconds     float64   `json:"elapsed_seconds"`
	EstimatedRemaining float64   `json:"estimated_remaining_seconds"`
}

func (p *progress) snapshot(now time.Time) Snapshot {
	ok := int(p.successful.Load())
	failed := int(p.failed.Load())
	s := Snapshot{
		BatchID:    p.batchID,
		TotalFiles: p.total,
		Successful: ok,
		Failed:     failed,
		Processed:  ok + failed,
		StartedAt:  p.startedAt,
	}
	if c := p.current.Load(); c != nil {
		s.Current = *c
	}
	elapsed := now.Sub(p.startedAt)
	s.ElapsedSeconds = elapsed.Seconds()
	if s.TotalFiles > 0 {
		s.PercentComplete = float64(s.Processed) / float64(s.TotalFiles) * 100
	}
	if s.Processed > 0 {
		avg := elapsed / time.Duration(s.Processed)
		s.EstimatedRemaining = (avg * time.Duration(s.TotalFiles-s.Processed)).Seconds()
	}
	return s
}
