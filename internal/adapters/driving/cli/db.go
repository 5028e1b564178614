package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

var dbCmd = &cobra.Command{
	Use:         "db",
	Short:       "Database migration and seed commands",
	Annotations: map[string]string{storeAnnotation: storeManual},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply, revert and inspect schema migrations",
}

var migrateLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateLatest,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply the next pending migration",
	Args:  cobra.NoArgs,
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert the most recent migration",
	Args:  cobra.NoArgs,
	RunE:  runMigrateDown,
}

var migrateCurrentVersionCmd = &cobra.Command{
	Use:   "currentVersion",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE:  runMigrateCurrentVersion,
}

var migrateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateList,
}

var migrateMakeCmd = &cobra.Command{
	Use:   "make <name>",
	Short: "Create a new migration in the migrations directory",
	Long: `Creates an empty up/down migration pair in databaseMigrationsPath,
numbered after the newest migration there. An empty directory first gets a
copy of the built-in migrations.`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrateMake,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run and create seed files",
}

var seedRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every seed file",
	Args:  cobra.NoArgs,
	RunE:  runSeedRun,
}

var seedMakeCmd = &cobra.Command{
	Use:   "make <name>",
	Short: "Create a new seed file",
	Long: `Creates a seed file in databaseSeedsPath. The extension picks the format:
.json (default) or .yaml hold an orderedItems list imported like an outbox
export; .sql is executed as a script.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeedMake,
}

func init() {
	migrateCmd.AddCommand(migrateLatestCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateCurrentVersionCmd)
	migrateCmd.AddCommand(migrateListCmd)
	migrateCmd.AddCommand(migrateMakeCmd)
	seedCmd.AddCommand(seedRunCmd)
	seedCmd.AddCommand(seedMakeCmd)
	dbCmd.AddCommand(migrateCmd)
	dbCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(dbCmd)
}

func runMigrateLatest(cmd *cobra.Command, _ []string) error {
	if schemaService == nil {
		return errNotConfigured("schema")
	}
	applied, err := schemaService.Latest(cmd.Context())
	if err != nil {
		return fmt.Errorf("migrate latest failed: %w", err)
	}
	if len(applied) == 0 {
		cmd.Println("Already up to date.")
		return nil
	}
	printMigrations(cmd, "Applied", applied)
	return nil
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	if schemaService == nil {
		return errNotConfigured("schema")
	}
	applied, err := schemaService.Up(cmd.Context())
	if err != nil {
		return fmt.Errorf("migrate up failed: %w", err)
	}
	if len(applied) == 0 {
		cmd.Println("Already up to date.")
		return nil
	}
	printMigrations(cmd, "Applied", applied)
	return nil
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	if schemaService == nil {
		return errNotConfigured("schema")
	}
	reverted, err := schemaService.Down(cmd.Context())
	if err != nil {
		return fmt.Errorf("migrate down failed: %w", err)
	}
	if len(reverted) == 0 {
		cmd.Println("Nothing to revert.")
		return nil
	}
	printMigrations(cmd, "Reverted", reverted)
	return nil
}

func runMigrateCurrentVersion(cmd *cobra.Command, _ []string) error {
	if schemaService == nil {
		return errNotConfigured("schema")
	}
	version, err := schemaService.CurrentVersion(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("Current version: %d\n", version)
	return nil
}

func runMigrateList(cmd *cobra.Command, _ []string) error {
	if schemaService == nil {
		return errNotConfigured("schema")
	}
	applied, pending, err := schemaService.Status(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("Applied (%d):\n", len(applied))
	for _, m := range applied {
		line := "  " + m.String()
		if !m.AppliedAt.IsZero() {
			line += "  " + m.AppliedAt.Local().Format("2006-01-02 15:04:05")
		}
		cmd.Println(line)
	}
	cmd.Printf("Pending (%d):\n", len(pending))
	for _, m := range pending {
		cmd.Println("  " + m.String())
	}
	return nil
}

func runMigrateMake(cmd *cobra.Command, args []string) error {
	if schemaService == nil {
		return errNotConfigured("schema")
	}
	path, err := schemaService.MakeMigration(args[0])
	if err != nil {
		return err
	}
	cmd.Printf("Created %s\n", path)
	return nil
}

func runSeedRun(cmd *cobra.Command, _ []string) error {
	if schemaService == nil {
		return errNotConfigured("schema")
	}
	seeds, err := schemaService.RunSeeds(cmd.Context())
	printSeeds(cmd, seeds)
	if err != nil {
		return fmt.Errorf("seed run failed: %w", err)
	}
	if len(seeds) == 0 {
		cmd.Println("No seeds to run.")
	}
	return nil
}

func runSeedMake(cmd *cobra.Command, args []string) error {
	if schemaService == nil {
		return errNotConfigured("schema")
	}
	path, err := schemaService.MakeSeed(args[0])
	if err != nil {
		return err
	}
	cmd.Printf("Created %s\n", path)
	return nil
}

func printMigrations(cmd *cobra.Command, verb string, migrations []domain.Migration) {
	if len(migrations) == 0 {
		return
	}
	names := make([]string, len(migrations))
	for i, m := range migrations {
		names[i] = m.String()
	}
	cmd.Printf("%s %s: %s\n", verb, english.Plural(len(migrations), "migration", ""), strings.Join(names, ", "))
}

func printSeeds(cmd *cobra.Command, seeds []domain.SeedResult) {
	for _, s := range seeds {
		if s.Records < 0 {
			cmd.Printf("  ✓ seed %s\n", s.Name)
			continue
		}
		cmd.Printf("  ✓ seed %s: %s\n", s.Name, english.Plural(s.Records, "activity", "activities"))
	}
}
