// Package domain defines the core business entities for outbox.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Activity: A stored ActivityStreams record and its derived fields
//   - SearchEntry: The full-text index shadow of an Activity
//   - Migration: A versioned schema change
//   - ImportProgress, ImportResult: Telemetry and outcome of an import
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
