package job

import "time"

// Metrics counts what happened during a run. Only the engine goroutine
// driving the run mutates it.
type Metrics struct {
	ReadCount   int64     `json:"read_count"`
	WriteCount  int64     `json:"write_count"`
	FilterCount int64     `json:"filter_count"`
	ErrorCount  int64     `json:"error_count"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time,omitzero"`
}

// Duration returns the elapsed run time. For a run still in progress it
// is measured up to now.
func (m Metrics) Duration() time.Duration {
	if m.StartTime.IsZero() {
		return 0
	}
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}
