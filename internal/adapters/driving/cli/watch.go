package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/outbox/internal/adapters/driven/watch"
	"github.com/custodia-labs/outbox/internal/logger"
)

var watchSkipExisting bool

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Import outbox exports as they appear in a directory",
	Long: `Watches a directory and imports every .json file written to it once the
writes have settled. Files already in the directory are imported first
unless --skip-existing is given. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchSkipExisting, "skip-existing", false, "do not import files already in the directory")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if importService == nil {
		return errNotConfigured("import")
	}

	w := watch.New(args[0])
	log := logger.For("watch")

	if !watchSkipExisting {
		existing, err := w.Existing()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			result, err := importService.Import(cmd.Context(), existing...)
			if result != nil {
				printImportResult(cmd, result)
			}
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
		}
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	paths, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Watching %s for outbox exports...\n", args[0])

	g.Go(func() error {
		for path := range paths {
			result, err := importService.Import(ctx, path)
			if result != nil {
				printImportResult(cmd, result)
			}
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return fmt.Errorf("import failed: %w", err)
			}
			if result.Failed() {
				log.Warn("import source failed", "source", path)
			}
		}
		return nil
	})

	return g.Wait()
}
