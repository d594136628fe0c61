package job

import "fmt"

// Status is the lifecycle state of a job run.
type Status string

const (
	// StatusInitializing is the state of a job that has been built but has
	// not opened its reader yet.
	StatusInitializing Status = "initializing"
	// StatusRunning means the batch cycle is in progress.
	StatusRunning Status = "running"
	// StatusCompleted means the reader reached end of stream without a
	// fatal error.
	StatusCompleted Status = "completed"
	// StatusFailed means an opening, reading or writing error, or the error
	// threshold, ended the run.
	StatusFailed Status = "failed"
	// StatusAborted means the run was cancelled between two batches.
	StatusAborted Status = "aborted"
)

// IsTerminal reports whether s is a final status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusAborted:
		return true
	default:
		return false
	}
}

// ParseStatus parses the textual form of a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusInitializing, StatusRunning, StatusCompleted, StatusFailed, StatusAborted:
		return st, nil
	default:
		return "", fmt.Errorf("job: unknown status %q", s)
	}
}
