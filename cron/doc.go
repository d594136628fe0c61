// Package cron schedules batch jobs on a worker executor.
//
// A [Scheduler] keeps a set of entries keyed by job name. Each entry has a
// schedule and fires by submitting its job to a [Submitter], usually a
// started *worker.Executor:
//
//	exec := worker.NewExecutor()
//	_ = exec.Start(ctx)
//
//	s := cron.NewScheduler(exec)
//	_ = s.ScheduleCron(importJob, "0 2 * * *")
//	_ = s.ScheduleEvery(syncJob, time.Now(), 10*time.Minute)
//	_ = s.ScheduleAt(backfillJob, time.Now().Add(time.Hour))
//	_ = s.Start(ctx)
//	defer s.Stop(ctx)
//
// # Schedules
//
//   - ScheduleAt fires once at the given time, then the entry is removed.
//   - ScheduleEvery fires at start and then every interval after it.
//   - ScheduleCron accepts standard 5-field expressions and descriptors
//     such as "@hourly" or "@every 30s".
//
// A start time in the past fires on the next tick.
//
// # Overlap
//
// An entry never runs twice at once. When an entry comes due while its
// previous run is still in progress, the firing is skipped and the entry
// moves on to its next time.
package cron
