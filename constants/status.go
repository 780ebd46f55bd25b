package constants

// JobStatus is the lifecycle state of a batch or requirement-extraction job.
type JobStatus string

// Stable values (stored as-is in the repository).
const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Terminal reports whether no further transitions are expected.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}
