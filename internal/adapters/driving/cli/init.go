package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or upgrade the database and run seeds",
	Long: `Applies every pending migration, then runs the seed files in the
seeds directory in name order.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{storeAnnotation: storeManual},
	RunE:        runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	if schemaService == nil {
		return errNotConfigured("schema")
	}

	applied, seeds, err := schemaService.Init(cmd.Context())
	printMigrations(cmd, "Applied", applied)
	printSeeds(cmd, seeds)
	if err != nil {
		return fmt.Errorf("init failed: %w", err)
	}

	cmd.Printf("Database ready at %s.\n", store.Path())
	return nil
}
