// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - ActivityStore: Activity persistence with a synchronised search index
//   - Migrator: Versioned schema migrations
//   - MigrationWriter: Scaffolding for new migration files
//   - ScriptRunner: Raw SQL scripts such as seed files
//   - ConfigStore: Persisted configuration file
//   - ImportMetrics: Import telemetry counters (optional, may be nil)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
