package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/outbox/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/outbox/internal/config"
	"github.com/custodia-labs/outbox/internal/core/domain"
	"github.com/custodia-labs/outbox/internal/core/ports/driven"
	"github.com/custodia-labs/outbox/internal/logger"
)

// DefaultPath is used when Options.Path is empty.
const DefaultPath = "data.sqlite3"

// busyTimeout is the PRAGMA busy_timeout value in milliseconds.
const busyTimeout = 5000

// Options configures Open.
type Options struct {
	// Path is the database file. Parent directories are created.
	Path string

	// MigrationsFS holds the migration files. Nil uses the embedded set.
	MigrationsFS fs.FS

	// MigrationsDir is where "db migrate make" writes new files.
	// It is usually the directory MigrationsFS was built from.
	MigrationsDir string

	// AutoMigrate applies pending migrations before returning.
	AutoMigrate bool
}

// Store is a SQLite-backed activity archive. It provides the activity store,
// migrator and seeder over a single database handle.
type Store struct {
	db   *sql.DB
	path string
	log  *slog.Logger

	// writeMu serialises writers; SQLite allows one at a time.
	writeMu sync.Mutex

	migrator *Migrator
}

// Open opens the database at opts.Path, applies pragmas and checks the
// schema version against the known migrations. The handle is closed on
// every failing path.
func Open(ctx context.Context, opts Options) (*Store, error) {
	path := opts.Path
	if path == "" {
		path = DefaultPath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)",
		path, busyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	fsys := opts.MigrationsFS
	if fsys == nil {
		fsys = migrations.FS
	}

	s := &Store{
		db:   db,
		path: path,
		log:  logger.For("store"),
	}
	s.migrator = &Migrator{store: s, fsys: fsys, dir: opts.MigrationsDir}

	if opts.AutoMigrate {
		applied, err := s.migrator.ApplyForward(ctx, 0)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		for _, m := range applied {
			s.log.Info("migration applied", "migration", m.String())
		}
	}

	if err := s.migrator.verify(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// OpenFromDir is Open with migrations read from dir, or the embedded set
// when dir is empty or does not exist.
func OpenFromDir(ctx context.Context, path, dir string, autoMigrate bool) (*Store, error) {
	return Open(ctx, Options{
		Path:          path,
		MigrationsFS:  MigrationsFS(dir),
		MigrationsDir: dir,
		AutoMigrate:   autoMigrate,
	})
}

// MigrationsFS returns os.DirFS(dir) if dir is an existing directory and
// the embedded migrations otherwise.
func MigrationsFS(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return migrations.FS
	}
	return os.DirFS(dir)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ActivityStore returns an ActivityStore backed by this store.
func (s *Store) ActivityStore() driven.ActivityStore {
	return &activityStore{store: s}
}

// Migrator returns the schema migrator for this store.
func (s *Store) Migrator() *Migrator {
	return s.migrator
}

// ExecScript runs a raw SQL script, such as a seed file, in one
// transaction. Triggers keep the search index consistent with any
// activities it writes.
func (s *Store) ExecScript(ctx context.Context, script string) error {
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, script)
		return err
	})
	return wrapStorage("executing script", err)
}

// withWriteTx runs fn in a transaction while holding the write lock.
// The transaction is rolled back if fn or the commit fails.
func (s *Store) withWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Verify interface compliance.
var _ driven.Migrator = (*Migrator)(nil)
var _ driven.MigrationWriter = (*Migrator)(nil)
var _ driven.ScriptRunner = (*Store)(nil)
var _ driven.ActivityStore = (*activityStore)(nil)

// wrapStorage marks err as a storage failure.
func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

// ConfigOptions are the configuration values the store reads.
func ConfigOptions() []config.Option {
	return []config.Option{
		{
			Name:    config.DatabasePath,
			Env:     "DATABASE_PATH",
			Doc:     "Path to the SQLite database file",
			Default: DefaultPath,
		},
		{
			Name: config.DatabaseMigrationsPath,
			Env:  "DATABASE_MIGRATIONS_PATH",
			Doc:  "Directory of migration files (empty uses the built-in set)",
		},
		{
			Name:    config.DatabaseSeedsPath,
			Env:     "DATABASE_SEEDS_PATH",
			Doc:     "Directory of seed files",
			Default: "seeds",
		},
	}
}
