// Package sqlite provides the SQLite implementation of the activity archive.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements the following through a
// single database connection:
//
//   - ActivityStore: activity persistence and full-text search
//   - Migrator: versioned schema migrations
//   - ScriptRunner: raw SQL seed scripts
//
// # Schema
//
// Activities are stored as JSON in activities.json. The id and the other
// queryable fields are STORED generated columns computed by SQLite from the
// payload, so no writer can make them disagree. The activities_search FTS5
// table is maintained by AFTER INSERT, UPDATE and DELETE triggers that run
// inside the writing statement.
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Thread Safety
//
// All operations are thread-safe. Writes are serialised by the store and
// each runs in its own transaction; reads use WAL snapshots and never see a
// row without its index entry.
package sqlite
