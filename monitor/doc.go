// Package monitor exposes running jobs to operators.
//
// A Registry tracks the jobs that run with monitoring enabled. Each run
// registers under its run ID when it starts, publishes a snapshot of its
// report as it progresses and unregisters when it ends. Default returns
// the process-wide registry used by the engine unless a job is given its
// own.
//
// Server serves the registry over HTTP: a JSON listing of the running
// jobs, a lookup by run ID and a WebSocket stream of updates. Watch is
// the matching WebSocket client.
//
// MetricsListener is a job listener recording OpenTelemetry metrics for
// every job it is registered with.
package monitor
