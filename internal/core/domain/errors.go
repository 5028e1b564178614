package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Import Errors.

	// ErrStructuralInput indicates an import source envelope has no
	// orderedItems array. No records from the source are written.
	ErrStructuralInput = errors.New("no items found in source")

	// ErrMissingID indicates a record has no extractable string id.
	// The importer skips such records with a warning.
	ErrMissingID = errors.New("record has no id")

	// ErrStorage indicates the store failed to persist a record.
	// It is fatal to the import invocation that encountered it.
	ErrStorage = errors.New("storage failure")

	// Schema Errors.

	// ErrMigrationFailed indicates a migration batch could not be applied
	// and was rolled back as a whole.
	ErrMigrationFailed = errors.New("migration failed")

	// ErrUnknownSchemaVersion indicates the database has a migration
	// applied that this build does not know about.
	ErrUnknownSchemaVersion = errors.New("unknown schema version")
)
