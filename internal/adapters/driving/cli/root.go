// Package cli implements the outbox command line.
//
// Every command shares one configuration assembled before it runs, from
// option defaults, the TOML config file, a .env file, the environment and
// -F name=value flags. Commands that touch the archive get services backed
// by a SQLite store opened for the duration of the command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/outbox/internal/adapters/driven/config/file"
	"github.com/custodia-labs/outbox/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/outbox/internal/config"
	"github.com/custodia-labs/outbox/internal/core/ports/driven"
	"github.com/custodia-labs/outbox/internal/core/ports/driving"
	"github.com/custodia-labs/outbox/internal/core/services"
	"github.com/custodia-labs/outbox/internal/logger"
	"github.com/custodia-labs/outbox/internal/metrics"
)

// version is set at build time.
var version = "dev"

// Persistent flags.
var (
	configOverrides []string
	configFilePath  string
	noPrettyLogs    bool
)

// Environment sources, replaced in tests.
var (
	lookupEnv  = os.LookupEnv
	dotEnvPath = ".env"
)

// State assembled by setup before a command runs.
var (
	cfg             *config.Config
	configStore     driven.ConfigStore
	store           *sqlite.Store
	appMetrics      *metrics.Metrics
	importer        *services.Importer
	importService   driving.ImportService
	searchService   driving.SearchService
	activityService driving.ActivityService
	schemaService   driving.SchemaService
)

// storeAnnotation declares how a command needs the database.
const (
	storeAnnotation = "outbox.store"
	storeNone       = "none"   // no database
	storeManual     = "manual" // open without applying migrations
)

var logOptions = []config.Option{
	{
		Name:    config.LogLevel,
		Env:     "LOG_LEVEL",
		Doc:     "Logging level",
		Default: "info",
		Choices: logger.Levels,
	},
}

var rootCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Archive and search an ActivityStreams outbox",
	Long: `outbox keeps an ActivityStreams outbox export in a local SQLite archive
with a full-text index that stays in step with every insert, update and delete.

Import an export with "outbox import outbox.json", then query it with
"outbox search". Configuration comes from defaults, the config file, a .env
file, environment variables and -F name=value flags, in that order.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringArrayVarP(&configOverrides, "config", "F", nil, "set a config option (name=value), repeatable")
	flags.StringVar(&configFilePath, "config-file", "", "config file path (default ~/.outbox/config.toml)")
	flags.BoolVar(&noPrettyLogs, "no-pretty-logs", false, "log JSON lines even on a terminal")
}

// SetVersion sets the version reported by "outbox version".
func SetVersion(v string) {
	version = v
}

// Execute runs the command line and releases the store afterwards.
func Execute(ctx context.Context) error {
	defer closeStore()
	return rootCmd.ExecuteContext(ctx)
}

// configOptions gathers the option contributions of every component.
func configOptions() [][]config.Option {
	return [][]config.Option{
		sqlite.ConfigOptions(),
		logOptions,
		importOptions,
		serveOptions,
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	if err := logger.Setup(logger.Options{
		Level:  cfg.Get(config.LogLevel),
		Pretty: !noPrettyLogs && logger.IsTerminal(errOut),
		Output: errOut,
	}); err != nil {
		return err
	}

	switch storeMode(cmd) {
	case storeNone:
		return nil
	case storeManual:
		return openServices(cmd.Context(), false)
	default:
		return openServices(cmd.Context(), true)
	}
}

func loadConfig() error {
	fileStore, err := file.NewConfigStore(configFilePath)
	if err != nil {
		return fmt.Errorf("loading config file: %w", err)
	}
	configStore = fileStore

	cfg, err = config.Assemble(config.Sources{
		File:      configStore,
		DotEnv:    dotEnvPath,
		LookupEnv: lookupEnv,
		Overrides: configOverrides,
	}, configOptions()...)
	return err
}

// storeMode returns the nearest store annotation on cmd or its parents.
func storeMode(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "help" || c.Name() == cobra.ShellCompRequestCmd {
			return storeNone
		}
		if mode, ok := c.Annotations[storeAnnotation]; ok {
			return mode
		}
	}
	return ""
}

// openServices opens the store and builds the services over it.
func openServices(ctx context.Context, autoMigrate bool) error {
	interval, err := cfg.GetDuration(config.ImportProgressInterval)
	if err != nil {
		return err
	}

	store, err = sqlite.OpenFromDir(ctx,
		cfg.Get(config.DatabasePath),
		cfg.Get(config.DatabaseMigrationsPath),
		autoMigrate,
	)
	if err != nil {
		return err
	}

	activities := store.ActivityStore()
	appMetrics = metrics.New()

	importer = services.NewImporter(activities, appMetrics)
	importer.SetProgressInterval(interval)

	importService = importer
	searchService = services.NewSearchService(activities)
	activityService = services.NewActivityService(activities)
	schemaService = services.NewSchemaService(
		store.Migrator(),
		store.Migrator(),
		store,
		importer,
		cfg.Get(config.DatabaseSeedsPath),
	)
	return nil
}

// closeStore closes the store, if open, and clears the services.
func closeStore() {
	if store != nil {
		if err := store.Close(); err != nil {
			logger.For("cli").Warn("closing store", "error", err)
		}
	}
	store = nil
	appMetrics = nil
	importer = nil
	importService = nil
	searchService = nil
	activityService = nil
	schemaService = nil
}

// errNotConfigured is returned when a command runs without its service.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}
