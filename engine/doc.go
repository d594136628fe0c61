// Package engine drives batch jobs.
//
// A Job reads records one at a time from a conveyor.Reader, passes each
// through an ordered list of conveyor.Processors, collects the surviving
// records into batches of Parameters.BatchSize and writes each batch with
// a conveyor.Writer. Listeners registered on the job are notified at
// every step, in onion order (see package listener).
//
// # Lifecycle
//
// A run moves through initializing → running → completed, failed or
// aborted:
//
//   - Failing to open the reader or writer, a read error or a write error
//     fails the run immediately.
//   - A processing error drops the record and is counted. Once the count
//     goes above Parameters.ErrorThreshold the run fails.
//   - Cancelling the run's context aborts it after the current batch.
//
// Whatever happens, the reader and writer are closed and Run returns a
// report. Run never panics: panics in readers, writers, processors and
// listeners are turned into errors.
//
// # Monitoring
//
// With Parameters.Monitoring set, the run registers itself with a
// Monitor (monitor.Default() unless WithMonitor is given) under its run
// ID, publishes a snapshot of its report after every record and
// unregisters when it ends.
package engine
