package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/outbox/internal/config"
	"github.com/custodia-labs/outbox/internal/core/domain"
)

// errImportFailed is returned when any source failed, so the process
// exits non-zero.
var errImportFailed = errors.New("import finished with failures")

var importOptions = []config.Option{
	{
		Name:    config.ImportProgressInterval,
		Env:     "IMPORT_PROGRESS_INTERVAL",
		Doc:     "How often import progress is logged (0 disables)",
		Default: "1s",
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import activities from outbox exports",
	Long: `Imports the orderedItems of one or more ActivityStreams outbox exports.

Sources are processed in order. Each activity is stored by its id, so
importing the same export twice leaves one copy of every activity and a
later record with the same id replaces an earlier one. Records without an
id are skipped with a warning. A source that is not an outbox export is
reported and the next source is tried. The command exits non-zero if any
source failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if importService == nil {
		return errNotConfigured("import")
	}

	result, err := importService.Import(cmd.Context(), args...)
	if result != nil {
		printImportResult(cmd, result)
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	if result.Failed() {
		return errImportFailed
	}
	return nil
}

func printImportResult(cmd *cobra.Command, result *domain.ImportResult) {
	for i := range result.Sources {
		src := &result.Sources[i]
		if src.Err != nil {
			cmd.Printf("  ✗ %s: %v\n", src.Source, src.Err)
			continue
		}
		cmd.Printf("  ✓ %s: %s of %s activities imported",
			src.Source, humanize.Comma(int64(src.Upserted)), humanize.Comma(int64(src.Total)))
		if src.Skipped > 0 {
			cmd.Printf(", %s skipped", humanize.Comma(int64(src.Skipped)))
		}
		cmd.Printf(" in %s\n", src.Duration.Round(time.Millisecond))
	}
	cmd.Printf("Imported %s from %s.\n",
		english.Plural(result.Upserted(), "activity", "activities"),
		english.Plural(len(result.Sources), "source", ""))
}
