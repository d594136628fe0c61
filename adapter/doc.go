// Package adapter groups the concrete readers and writers shipped with
// conveyor. Each backend lives in its own subpackage so that importing
// one does not pull in the drivers of the others:
//
//   - memory: slices and channels, for tests and in-process hand-offs
//   - postgres: pgx query reader and transactional batch writer
//   - mongo: cursor reader and InsertMany writer
//   - redis: list-backed queue reader, writer and dispatcher sink
package adapter
