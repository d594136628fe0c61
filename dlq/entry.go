package dlq

import (
	"time"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/id"
)

// Stage names where an entry's record failed.
const (
	StageProcessing = "processing"
	StageWriting    = "writing"
)

// Entry is a record that failed, with the error that rejected it.
type Entry struct {
	ID         id.ID            `json:"id"`
	JobName    string           `json:"job_name"`
	Stage      string           `json:"stage"`
	Record     *conveyor.Record `json:"record"`
	Error      string           `json:"error"`
	FailedAt   time.Time        `json:"failed_at"`
	ReplayedAt *time.Time       `json:"replayed_at,omitempty"`
}

// Replayed reports whether the entry was already replayed.
func (e *Entry) Replayed() bool { return e.ReplayedAt != nil }

// ListOpts filters List results. Zero values match everything.
type ListOpts struct {
	JobName string
	Stage   string

	// Pending restricts results to entries not replayed yet.
	Pending bool

	// Limit caps the number of results. Zero means no limit.
	Limit int
}

func (o ListOpts) matches(e *Entry) bool {
	switch {
	case o.JobName != "" && e.JobName != o.JobName:
		return false
	case o.Stage != "" && e.Stage != o.Stage:
		return false
	case o.Pending && e.Replayed():
		return false
	}
	return true
}
