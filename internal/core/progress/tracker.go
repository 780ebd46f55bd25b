// Package progress is the polling store for requirement-extraction runs,
// one record per job (proposal) id.
package progress

import (
	"sync"
	"time"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
)

// Progress is a point-in-time copy of a job's record.
type Progress struct {
	JobID       string              `json:"job_id"`
	Status      constants.JobStatus `json:"status"`
	Stage       string              `json:"stage,omitempty"`
	Total       int                 `json:"total"`
	Processed   int                 `json:"processed"`
	Current     string              `json:"current,omitempty"`
	Message     string              `json:"message,omitempty"`
	Error       string              `json:"error,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// Percent is Processed/Total as a percentage; 0 when Total is 0.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Processed) / float64(p.Total) * 100
}

// Update carries optional changes; nil fields are left untouched.
type Update struct {
	Stage     *string
	Total     *int
	Processed *int
	Current   *string
	Message   *string
}

// Tracker holds the current run per job id. It keeps no history.
type Tracker struct {
	mu   sync.Mutex
	jobs map[string]*Progress
	now  func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]*Progress), now: time.Now}
}

// Start replaces any previous record for jobID with a running one.
func (t *Tracker) Start(jobID string, total int) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[jobID] = &Progress{
		JobID:     jobID,
		Status:    constants.JobStatusRunning,
		Total:     total,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Update applies u to a running job. Unknown jobs are ignored.
func (t *Tracker) Update(jobID string, u Update) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.jobs[jobID]
	if !ok {
		return
	}
	if u.Stage != nil {
		p.Stage = *u.Stage
	}
	if u.Total != nil {
		p.Total = *u.Total
	}
	if u.Processed != nil {
		p.Processed = *u.Processed
	}
	if u.Current != nil {
		p.Current = *u.Current
	}
	if u.Message != nil {
		p.Message = *u.Message
	}
	p.UpdatedAt = t.now()
}

// Advance increments Processed by one and records the item in flight.
func (t *Tracker) Advance(jobID, current string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.jobs[jobID]; ok {
		p.Processed++
		p.Current = current
		p.UpdatedAt = t.now()
	}
}

func (t *Tracker) Complete(jobID, message string) {
	t.finish(jobID, constants.JobStatusCompleted, message, "")
}

func (t *Tracker) Fail(jobID string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	t.finish(jobID, constants.JobStatusFailed, "", msg)
}

func (t *Tracker) finish(jobID string, status constants.JobStatus, message, errText string) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.jobs[jobID]
	if !ok {
		return
	}
	p.Status = status
	p.Current = ""
	if message != "" {
		p.Message = message
	}
	p.Error = errText
	if status == constants.JobStatusCompleted {
		p.Processed = max(p.Processed, p.Total)
	}
	p.UpdatedAt = now
	p.CompletedAt = &now
}

// Get returns a copy of the record, or false if jobID was never started
// or has been cleared.
func (t *Tracker) Get(jobID string) (Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.jobs[jobID]
	if !ok {
		return Progress{}, false
	}
	out := *p
	if p.CompletedAt != nil {
		ts := *p.CompletedAt
		out.CompletedAt = &ts
	}
	return out, true
}

func (t *Tracker) Clear(jobID string) {
	t.mu.Lock()
	delete(t.jobs, jobID)
	t.mu.Unlock()
}
