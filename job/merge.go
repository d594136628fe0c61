package job

import (
	"errors"
	"strings"
)

// Merge combines the reports of jobs that ran in parallel over parts of
// the same input. The merged report spans the earliest start to the
// latest end, sums the counters and collects non-nil results in order.
// Its status is failed if any run failed, otherwise aborted if any run
// was aborted, otherwise completed. Last errors are joined.
func Merge(reports ...*Report) *Report {
	merged := &Report{Status: StatusCompleted}
	if len(reports) == 0 {
		return merged
	}

	var (
		names   []string
		results []any
		errs    []error
	)
	first := true
	for _, r := range reports {
		if r == nil {
			continue
		}
		m := r.Metrics
		if !m.StartTime.IsZero() && (merged.Metrics.StartTime.IsZero() || m.StartTime.Before(merged.Metrics.StartTime)) {
			merged.Metrics.StartTime = m.StartTime
		}
		if m.EndTime.After(merged.Metrics.EndTime) {
			merged.Metrics.EndTime = m.EndTime
		}
		if first {
			merged.Parameters = r.Parameters
			first = false
		}

		merged.Metrics.ReadCount += m.ReadCount
		merged.Metrics.WriteCount += m.WriteCount
		merged.Metrics.FilterCount += m.FilterCount
		merged.Metrics.ErrorCount += m.ErrorCount

		switch r.Status {
		case StatusFailed:
			merged.Status = StatusFailed
		case StatusAborted:
			if merged.Status != StatusFailed {
				merged.Status = StatusAborted
			}
		}

		if r.Result != nil {
			results = append(results, r.Result)
		}
		if r.LastError != nil {
			errs = append(errs, r.LastError)
		}
		names = append(names, r.JobName)
	}

	merged.JobName = strings.Join(names, ",")
	merged.Parameters.Name = merged.JobName
	if len(results) > 0 {
		merged.Result = results
	}
	merged.LastError = errors.Join(errs...)
	return merged
}
