// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The importer, search, activity and schema services depend only on
// driven ports, so they run unchanged against the SQLite store or the
// in-memory store used in tests.
package services
