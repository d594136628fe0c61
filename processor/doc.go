// Package processor provides stock record processors and composable
// middleware around them.
//
// Middleware wraps a single processor call and can observe or change it
// (recover from panics, log, enforce a deadline, rate limit, record
// metrics and traces). Wrap applies a middleware chain to any
// conveyor.Processor:
//
//	p := processor.Wrap(enrich,
//	    processor.Recover(logger),
//	    processor.Logging(logger),
//	    processor.Tracing(),
//	)
//
// Stock processors cover the usual pipeline stages: Select and Reject
// filter by predicate, Map converts payloads, Validate rejects bad
// payloads with an error, and Encode/Decode convert payloads with a
// codec.
package processor
