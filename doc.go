// Package conveyor is a batch-job execution engine for Go. A job pulls
// records one at a time from a Reader, runs each through an ordered
// pipeline of Processors, accumulates the survivors into fixed-size
// batches and hands every batch to a Writer, while keeping metrics and
// notifying lifecycle listeners at every stage.
//
// Conveyor is a library, not a service. Readers, writers and processors
// are ordinary Go values implementing small interfaces.
//
// # Quick Start
//
//	j, err := engine.New(
//	    engine.WithName("import-users"),
//	    engine.WithReader(memory.NewSliceReader("users", users)),
//	    engine.WithProcessors(processor.Select(isActive)),
//	    engine.WithWriter(pgWriter),
//	    engine.WithBatchSize(500),
//	)
//	report := j.Run(ctx)
//
// # Architecture
//
// The root package defines the data model (Header, Record, Batch) and the
// collaborator contracts (Reader, Writer, Processor, Predicate). The
// engine package drives the record/batch loop; listener carries the
// lifecycle hooks; retry decorates readers and writers with bounded
// retries; dispatcher fans records out to several sinks; worker runs
// many jobs concurrently; monitor exposes running jobs to operators.
//
// Job run IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package conveyor
