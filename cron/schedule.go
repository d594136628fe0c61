package cron

import (
	"fmt"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("cron: parse %q: %w", expr, err)
	}
	return sched, nil
}

// once fires a single time. The zero time it returns ends the entry.
type once struct{}

func (once) Next(time.Time) time.Time { return time.Time{} }

// every fires on a fixed grid anchored at start.
type every struct {
	start    time.Time
	interval time.Duration
}

func (e every) Next(t time.Time) time.Time {
	if t.Before(e.start) {
		return e.start
	}
	n := t.Sub(e.start)/e.interval + 1
	return e.start.Add(n * e.interval)
}
