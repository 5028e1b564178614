package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Migration is a named, ordered, reversible schema-change unit.
type Migration struct {
	// Version orders migrations. It is the numeric file name prefix.
	Version int64

	// Name is the descriptive part of the file name.
	Name string

	// AppliedAt is set for migrations recorded in the database.
	AppliedAt time.Time
}

// String returns the migration in its file name form, e.g. 001_activities.
func (m Migration) String() string {
	return fmt.Sprintf("%03d_%s", m.Version, m.Name)
}

// MigrationDirection selects the .up.sql or .down.sql half of a migration.
type MigrationDirection string

const (
	MigrationUp   MigrationDirection = "up"
	MigrationDown MigrationDirection = "down"
)

// ParseMigrationFile splits a file name such as "002_search.up.sql" into
// its parts. ok is false for files that do not follow the pattern.
func ParseMigrationFile(filename string) (m Migration, dir MigrationDirection, ok bool) {
	base, found := strings.CutSuffix(filename, ".sql")
	if !found {
		return Migration{}, "", false
	}

	switch {
	case strings.HasSuffix(base, ".up"):
		dir = MigrationUp
	case strings.HasSuffix(base, ".down"):
		dir = MigrationDown
	default:
		return Migration{}, "", false
	}
	base = strings.TrimSuffix(base, "."+string(dir))

	prefix, name, found := strings.Cut(base, "_")
	if !found || name == "" {
		return Migration{}, "", false
	}
	version, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil || version <= 0 {
		return Migration{}, "", false
	}

	return Migration{Version: version, Name: name}, dir, true
}

// SeedResult describes one seed file that was run.
type SeedResult struct {
	// Name is the seed file name.
	Name string

	// Records is the number of activities upserted, or -1 for SQL seeds.
	Records int
}
