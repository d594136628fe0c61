// Package dlq keeps the records a job could not process or write so they
// can be inspected and replayed.
//
// # Capture
//
// Register a [Listener] on a job. It pushes an [Entry] to a [Store] for
// every record that failed in the pipeline and for every record of a
// batch the writer rejected:
//
//	store := dlq.NewMemoryStore()
//	j, _ := engine.New(
//	    engine.WithReader(r),
//	    engine.WithWriter(w),
//	    engine.WithListener(dlq.NewListener(store)),
//	)
//
// With batch scanning enabled, only the records that still fail when
// written one at a time end up in the store.
//
// # Replay
//
// A [ReplayReader] reads the entries that were not replayed yet, marking
// each one as it goes. Plugging it into a new job reprocesses them:
//
//	replay := dlq.NewReplayReader(store, dlq.ListOpts{JobName: "import"})
//	fix, _ := engine.New(engine.WithReader(replay), engine.WithWriter(w))
package dlq
