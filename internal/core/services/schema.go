package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/outbox/internal/core/domain"
	"github.com/custodia-labs/outbox/internal/core/ports/driven"
	"github.com/custodia-labs/outbox/internal/core/ports/driving"
	"github.com/custodia-labs/outbox/internal/logger"
)

// Ensure SchemaService implements the interface.
var _ driving.SchemaService = (*SchemaService)(nil)

// Seed file templates by extension.
var seedTemplates = map[string]string{
	".json": "{\n  \"orderedItems\": []\n}\n",
	".yaml": "orderedItems: []\n",
	".yml":  "orderedItems: []\n",
	".sql":  "-- Statements run in one transaction. Triggers keep the search index in sync.\n",
}

// SchemaService runs migrations and seeds.
//
// Seeds are files in the seeds directory, run in name order. SQL seeds are
// executed as scripts; JSON and YAML seeds hold an orderedItems list and
// go through the importer like any other source.
type SchemaService struct {
	migrator driven.Migrator
	writer   driven.MigrationWriter
	scripts  driven.ScriptRunner
	importer driving.ImportService
	seedsDir string
	log      *slog.Logger
}

// NewSchemaService creates a new schema service.
func NewSchemaService(
	migrator driven.Migrator,
	writer driven.MigrationWriter,
	scripts driven.ScriptRunner,
	importer driving.ImportService,
	seedsDir string,
) *SchemaService {
	return &SchemaService{
		migrator: migrator,
		writer:   writer,
		scripts:  scripts,
		importer: importer,
		seedsDir: seedsDir,
		log:      logger.For("schema"),
	}
}

// Init migrates to the latest version and runs every seed.
func (s *SchemaService) Init(ctx context.Context) ([]domain.Migration, []domain.SeedResult, error) {
	applied, err := s.Latest(ctx)
	if err != nil {
		return nil, nil, err
	}
	seeds, err := s.RunSeeds(ctx)
	if err != nil {
		return applied, seeds, err
	}
	return applied, seeds, nil
}

// Latest applies every pending migration.
func (s *SchemaService) Latest(ctx context.Context) ([]domain.Migration, error) {
	applied, err := s.migrator.ApplyForward(ctx, 0)
	s.logMigrations("migration applied", applied, err)
	return applied, err
}

// Up applies the next pending migration only.
func (s *SchemaService) Up(ctx context.Context) ([]domain.Migration, error) {
	pending, err := s.migrator.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		s.log.Info("already up to date")
		return nil, nil
	}

	applied, err := s.migrator.ApplyForward(ctx, pending[0].Version)
	s.logMigrations("migration applied", applied, err)
	return applied, err
}

// Down reverts the most recently applied migration.
func (s *SchemaService) Down(ctx context.Context) ([]domain.Migration, error) {
	reverted, err := s.migrator.ApplyBackward(ctx, 1)
	s.logMigrations("migration reverted", reverted, err)
	return reverted, err
}

// CurrentVersion returns the highest applied version.
func (s *SchemaService) CurrentVersion(ctx context.Context) (int64, error) {
	return s.migrator.CurrentVersion(ctx)
}

// Status returns applied and pending migrations.
func (s *SchemaService) Status(ctx context.Context) (applied, pending []domain.Migration, err error) {
	applied, err = s.migrator.ListApplied(ctx)
	if err != nil {
		return nil, nil, err
	}
	pending, err = s.migrator.ListPending(ctx)
	if err != nil {
		return nil, nil, err
	}
	return applied, pending, nil
}

// MakeMigration scaffolds a new migration pair.
func (s *SchemaService) MakeMigration(name string) (string, error) {
	if s.writer == nil {
		return "", errors.New("migration writer not configured")
	}
	path, err := s.writer.Make(name)
	if err != nil {
		return "", err
	}
	s.log.Info("migration created", "path", path)
	return path, nil
}

// RunSeeds runs every seed file in name order. A missing seeds directory
// is not an error. The first failing seed stops the run.
func (s *SchemaService) RunSeeds(ctx context.Context) ([]domain.SeedResult, error) {
	entries, err := os.ReadDir(s.seedsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Info("no seeds directory", "path", s.seedsDir)
			return nil, nil
		}
		return nil, fmt.Errorf("reading seeds directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := seedTemplates[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	results := make([]domain.SeedResult, 0, len(names))
	for _, name := range names {
		res, err := s.runSeed(ctx, name)
		if err != nil {
			s.log.Error("seed failed", "seed", name, "error", err)
			return results, fmt.Errorf("seed %s: %w", name, err)
		}
		s.log.Info("seed run", "seed", name, "records", res.Records)
		results = append(results, res)
	}
	return results, nil
}

func (s *SchemaService) runSeed(ctx context.Context, name string) (domain.SeedResult, error) {
	path := filepath.Join(s.seedsDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.SeedResult{}, err
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".sql":
		if err := s.scripts.ExecScript(ctx, string(data)); err != nil {
			return domain.SeedResult{}, err
		}
		return domain.SeedResult{Name: name, Records: -1}, nil

	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return domain.SeedResult{}, fmt.Errorf("parsing yaml: %w", err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return domain.SeedResult{}, fmt.Errorf("converting yaml: %w", err)
		}
	}

	res, err := s.importer.ImportReader(ctx, path, bytes.NewReader(data))
	if err != nil {
		return domain.SeedResult{}, err
	}
	return domain.SeedResult{Name: name, Records: res.Upserted}, nil
}

// MakeSeed scaffolds a new seed file. The extension selects the format
// and defaults to .json.
func (s *SchemaService) MakeSeed(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("%w: invalid seed name %q", domain.ErrInvalidInput, name)
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".json"
		name += ext
	}
	template, ok := seedTemplates[ext]
	if !ok {
		return "", fmt.Errorf("%w: unsupported seed format %q", domain.ErrInvalidInput, ext)
	}

	if err := os.MkdirAll(s.seedsDir, 0755); err != nil {
		return "", fmt.Errorf("creating seeds directory: %w", err)
	}
	path := filepath.Join(s.seedsDir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("creating seed: %w", err)
	}
	if _, err := f.WriteString(template); err != nil {
		f.Close()
		return "", fmt.Errorf("writing seed: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	s.log.Info("seed created", "path", path)
	return path, nil
}

func (s *SchemaService) logMigrations(msg string, migrations []domain.Migration, err error) {
	for _, m := range migrations {
		s.log.Info(msg, "migration", m.String())
	}
	if err != nil {
		s.log.Error("migration batch failed", "error", err)
	}
}
