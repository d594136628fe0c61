package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/conveyor/id"
)

// Report summarises a job run. The engine returns it once the run ends
// and never modifies it afterwards.
type Report struct {
	RunID      id.ID      `json:"run_id"`
	JobName    string     `json:"job_name"`
	Parameters Parameters `json:"parameters"`
	Metrics    Metrics    `json:"metrics"`
	Status     Status     `json:"status"`
	LastError  error      `json:"-"`
	Result     any        `json:"result,omitempty"`
}

// NewReport returns an initializing report for params.
func NewReport(runID id.ID, params Parameters) *Report {
	return &Report{
		RunID:      runID,
		JobName:    params.Name,
		Parameters: params,
		Status:     StatusInitializing,
	}
}

// Clone returns a shallow copy of r, safe to hand to other goroutines
// while the run continues.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Failed reports whether the run ended in StatusFailed.
func (r *Report) Failed() bool { return r.Status == StatusFailed }

type reportJSON struct {
	RunID      id.ID      `json:"run_id"`
	JobName    string     `json:"job_name"`
	Parameters Parameters `json:"parameters"`
	Metrics    Metrics    `json:"metrics"`
	Duration   string     `json:"duration"`
	Status     Status     `json:"status"`
	LastError  string     `json:"last_error,omitempty"`
	Result     any        `json:"result,omitempty"`
}

// MarshalJSON renders LastError as a string and adds the run duration.
func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		RunID:      r.RunID,
		JobName:    r.JobName,
		Parameters: r.Parameters,
		Metrics:    r.Metrics,
		Duration:   r.Metrics.Duration().String(),
		Status:     r.Status,
		Result:     r.Result,
	}
	if r.LastError != nil {
		out.LastError = r.LastError.Error()
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a report rendered by MarshalJSON. LastError
// comes back as an opaque error carrying the original message.
func (r *Report) UnmarshalJSON(data []byte) error {
	var in reportJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Report{
		RunID:      in.RunID,
		JobName:    in.JobName,
		Parameters: in.Parameters,
		Metrics:    in.Metrics,
		Status:     in.Status,
		Result:     in.Result,
	}
	if in.LastError != "" {
		r.LastError = errors.New(in.LastError)
	}
	return nil
}

const timeLayout = "2006-01-02 15:04:05"

// String renders r as a human-readable, multi-line report.
func (r *Report) String() string {
	var sb strings.Builder
	p := r.Parameters
	m := r.Metrics

	sb.WriteString("Job Report:\n")
	sb.WriteString("===========\n")
	fmt.Fprintf(&sb, "Status: %s\n", r.Status)

	sb.WriteString("Parameters:\n")
	fmt.Fprintf(&sb, "\tName = %s\n", p.Name)
	fmt.Fprintf(&sb, "\tRun Id = %s\n", r.RunID)
	fmt.Fprintf(&sb, "\tBatch size = %d\n", p.BatchSize)
	if p.HasErrorThreshold() {
		fmt.Fprintf(&sb, "\tError threshold = %d\n", p.ErrorThreshold)
	} else {
		sb.WriteString("\tError threshold = N/A\n")
	}
	fmt.Fprintf(&sb, "\tMonitoring = %t\n", p.Monitoring)
	fmt.Fprintf(&sb, "\tBatch scanning = %t\n", p.BatchScanning)

	sb.WriteString("Metrics:\n")
	fmt.Fprintf(&sb, "\tStart time = %s\n", formatTime(m.StartTime))
	fmt.Fprintf(&sb, "\tEnd time = %s\n", formatTime(m.EndTime))
	fmt.Fprintf(&sb, "\tDuration = %s\n", m.Duration().Round(time.Millisecond))
	fmt.Fprintf(&sb, "\tRead count = %d\n", m.ReadCount)
	fmt.Fprintf(&sb, "\tWrite count = %d\n", m.WriteCount)
	fmt.Fprintf(&sb, "\tFilter count = %d\n", m.FilterCount)
	fmt.Fprintf(&sb, "\tError count = %d\n", m.ErrorCount)

	if r.LastError != nil {
		fmt.Fprintf(&sb, "Last error: %v\n", r.LastError)
	}
	if r.Result != nil {
		fmt.Fprintf(&sb, "Result: %v\n", r.Result)
	} else {
		sb.WriteString("Result: N/A\n")
	}
	return sb.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(timeLayout)
}
