// Package migrations embeds the SQL migrations for the SQLite store.
// Each migration is a pair of NNN_name.up.sql and NNN_name.down.sql files.
package migrations

import "embed"

// FS contains all SQL migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
