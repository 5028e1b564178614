package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at DATETIME NOT NULL
	)
`

// migrationFile is a known migration with its SQL.
type migrationFile struct {
	domain.Migration
	up   string
	down string
}

// Migrator applies and reverts the migrations found in an fs.FS.
// Every batch runs in one transaction together with its schema_migrations
// writes, so a failure leaves the schema version unchanged.
type Migrator struct {
	store *Store
	fsys  fs.FS
	dir   string
	now   func() time.Time
}

// known returns the migrations in the FS in version order.
func (m *Migrator) known() ([]migrationFile, error) {
	entries, err := fs.ReadDir(m.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	byVersion := make(map[int64]*migrationFile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		mig, dir, ok := domain.ParseMigrationFile(entry.Name())
		if !ok {
			continue // Skip files that don't match the pattern
		}

		f, exists := byVersion[mig.Version]
		if !exists {
			f = &migrationFile{Migration: mig}
			byVersion[mig.Version] = f
		} else if f.Name != mig.Name {
			return nil, fmt.Errorf("migration version %d used by both %q and %q", mig.Version, f.Name, mig.Name)
		}

		content, err := fs.ReadFile(m.fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		if dir == domain.MigrationUp {
			f.up = string(content)
		} else {
			f.down = string(content)
		}
	}

	files := make([]migrationFile, 0, len(byVersion))
	for _, f := range byVersion {
		if f.up == "" {
			return nil, fmt.Errorf("migration %s has no up file", f.Migration)
		}
		files = append(files, *f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	if _, err := m.store.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) timestamp() time.Time {
	if m.now != nil {
		return m.now().UTC()
	}
	return time.Now().UTC()
}

// ApplyForward applies pending migrations up to target, or all of them
// when target is 0.
func (m *Migrator) ApplyForward(ctx context.Context, target int64) ([]domain.Migration, error) {
	known, err := m.known()
	if err != nil {
		return nil, err
	}
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.ListApplied(ctx)
	if err != nil {
		return nil, err
	}
	current := int64(0)
	isApplied := make(map[int64]bool, len(applied))
	for _, a := range applied {
		isApplied[a.Version] = true
		current = max(current, a.Version)
	}

	var batch []migrationFile
	for _, f := range known {
		if isApplied[f.Version] {
			continue
		}
		if target > 0 && f.Version > target {
			break
		}
		if f.Version < current {
			return nil, fmt.Errorf("%w: %s is older than applied version %d", domain.ErrMigrationFailed, f.Migration, current)
		}
		batch = append(batch, f)
	}
	if len(batch) == 0 {
		return nil, nil
	}

	result := make([]domain.Migration, 0, len(batch))
	err = m.store.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, f := range batch {
			if _, err := tx.ExecContext(ctx, f.up); err != nil {
				return fmt.Errorf("%s: %w", f.Migration, err)
			}
			at := m.timestamp()
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
				f.Version, f.Name, at); err != nil {
				return fmt.Errorf("recording %s: %w", f.Migration, err)
			}
			mig := f.Migration
			mig.AppliedAt = at
			result = append(result, mig)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMigrationFailed, err)
	}
	return result, nil
}

// ApplyBackward reverts the most recently applied steps migrations.
func (m *Migrator) ApplyBackward(ctx context.Context, steps int) ([]domain.Migration, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("%w: steps must be positive", domain.ErrInvalidInput)
	}

	known, err := m.known()
	if err != nil {
		return nil, err
	}
	byVersion := make(map[int64]migrationFile, len(known))
	for _, f := range known {
		byVersion[f.Version] = f
	}

	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.ListApplied(ctx)
	if err != nil {
		return nil, err
	}

	var batch []migrationFile
	for i := len(applied) - 1; i >= 0 && len(batch) < steps; i-- {
		f, ok := byVersion[applied[i].Version]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSchemaVersion, applied[i])
		}
		if strings.TrimSpace(f.down) == "" {
			return nil, fmt.Errorf("%w: %s has no down file", domain.ErrMigrationFailed, f.Migration)
		}
		batch = append(batch, f)
	}
	if len(batch) == 0 {
		return nil, nil
	}

	result := make([]domain.Migration, 0, len(batch))
	err = m.store.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, f := range batch {
			if _, err := tx.ExecContext(ctx, f.down); err != nil {
				return fmt.Errorf("%s: %w", f.Migration, err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", f.Version); err != nil {
				return fmt.Errorf("unrecording %s: %w", f.Migration, err)
			}
			result = append(result, f.Migration)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMigrationFailed, err)
	}
	return result, nil
}

// CurrentVersion returns the highest applied version, or 0.
func (m *Migrator) CurrentVersion(ctx context.Context) (int64, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	var version int64
	row := m.store.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("getting current version: %w", err)
	}
	return version, nil
}

// ListApplied returns applied migrations in version order.
func (m *Migrator) ListApplied(ctx context.Context) ([]domain.Migration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}

	rows, err := m.store.db.QueryContext(ctx,
		"SELECT version, name, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	defer rows.Close()

	var applied []domain.Migration
	for rows.Next() {
		var mig domain.Migration
		if err := rows.Scan(&mig.Version, &mig.Name, &mig.AppliedAt); err != nil {
			return nil, fmt.Errorf("scanning migration: %w", err)
		}
		applied = append(applied, mig)
	}
	return applied, rows.Err()
}

// ListPending returns known migrations that are not applied.
func (m *Migrator) ListPending(ctx context.Context) ([]domain.Migration, error) {
	known, err := m.known()
	if err != nil {
		return nil, err
	}
	applied, err := m.ListApplied(ctx)
	if err != nil {
		return nil, err
	}
	isApplied := make(map[int64]bool, len(applied))
	for _, a := range applied {
		isApplied[a.Version] = true
	}

	var pending []domain.Migration
	for _, f := range known {
		if !isApplied[f.Version] {
			pending = append(pending, f.Migration)
		}
	}
	return pending, nil
}

// verify fails if the database has a migration applied that is not in
// the known set.
func (m *Migrator) verify(ctx context.Context) error {
	known, err := m.known()
	if err != nil {
		return err
	}
	isKnown := make(map[int64]bool, len(known))
	for _, f := range known {
		isKnown[f.Version] = true
	}

	applied, err := m.ListApplied(ctx)
	if err != nil {
		return err
	}
	for _, a := range applied {
		if !isKnown[a.Version] {
			return fmt.Errorf("%w: database has %s applied", domain.ErrUnknownSchemaVersion, a)
		}
	}
	return nil
}

// Make writes an empty up/down migration pair numbered after the highest
// version in the migrations directory and returns the up file path.
// A directory without migrations first receives a copy of the current
// set, so the new files extend the schema instead of replacing it.
func (m *Migrator) Make(name string) (string, error) {
	if m.dir == "" {
		return "", errors.New("no migrations directory configured (set databaseMigrationsPath)")
	}
	name = sanitizeName(name)
	if name == "" {
		return "", fmt.Errorf("%w: migration name is empty", domain.ErrInvalidInput)
	}

	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return "", fmt.Errorf("creating migrations directory: %w", err)
	}

	next, err := m.nextVersion()
	if err != nil {
		return "", err
	}
	if next == 1 {
		if next, err = m.export(); err != nil {
			return "", err
		}
	}
	mig := domain.Migration{Version: next, Name: name}

	up := filepath.Join(m.dir, mig.String()+".up.sql")
	down := filepath.Join(m.dir, mig.String()+".down.sql")
	if err := writeNew(up, fmt.Sprintf("-- %s: forward\n", mig)); err != nil {
		return "", err
	}
	if err := writeNew(down, fmt.Sprintf("-- %s: backward\n", mig)); err != nil {
		return "", err
	}
	return up, nil
}

// nextVersion returns one past the highest version in the directory.
func (m *Migrator) nextVersion() (int64, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, fmt.Errorf("reading migrations directory: %w", err)
	}
	next := int64(1)
	for _, e := range entries {
		if existing, _, ok := domain.ParseMigrationFile(e.Name()); ok {
			next = max(next, existing.Version+1)
		}
	}
	return next, nil
}

// export copies the known migrations into the directory and returns the
// version after the last one.
func (m *Migrator) export() (int64, error) {
	files, err := m.known()
	if err != nil {
		return 0, err
	}
	next := int64(1)
	for _, f := range files {
		if err := writeNew(filepath.Join(m.dir, f.String()+".up.sql"), f.up); err != nil {
			return 0, err
		}
		if f.down != "" {
			if err := writeNew(filepath.Join(m.dir, f.String()+".down.sql"), f.down); err != nil {
				return 0, err
			}
		}
		next = f.Version + 1
	}
	return next, nil
}

// writeNew creates path with content, failing if it already exists.
func writeNew(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// sanitizeName lowercases name and replaces anything other than letters,
// digits and underscores with underscores.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
