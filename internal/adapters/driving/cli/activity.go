package cli

import (
	"bytes"
	"errors"
	"fmt"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

var activityMarkdown bool

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Inspect and manage archived activities",
}

var activityGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print an archived activity",
	Long: `Prints the stored JSON of an activity. With --markdown, prints the
derived fields followed by the object content converted from HTML.`,
	Args: cobra.ExactArgs(1),
	RunE: runActivityGet,
}

var activityDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived activity and its index entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runActivityDelete,
}

var activityCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count archived activities and index entries",
	Args:  cobra.NoArgs,
	RunE:  runActivityCount,
}

func init() {
	activityGetCmd.Flags().BoolVar(&activityMarkdown, "markdown", false, "render as Markdown")
	activityCmd.AddCommand(activityGetCmd)
	activityCmd.AddCommand(activityDeleteCmd)
	activityCmd.AddCommand(activityCountCmd)
	rootCmd.AddCommand(activityCmd)
}

func runActivityGet(cmd *cobra.Command, args []string) error {
	if activityService == nil {
		return errNotConfigured("activity")
	}

	act, err := activityService.Get(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("activity %s not found", args[0])
		}
		return err
	}

	if activityMarkdown {
		return printActivityMarkdown(cmd, act)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, act.Payload, "", "  "); err != nil {
		return fmt.Errorf("formatting activity: %w", err)
	}
	cmd.Println(buf.String())
	return nil
}

func printActivityMarkdown(cmd *cobra.Command, act *domain.Activity) error {
	d := act.Derived
	cmd.Printf("# %s\n\n", act.ID)
	for _, field := range []struct{ label, value string }{
		{"Type", d.Type},
		{"Actor", d.Actor},
		{"Published", d.Published},
		{"Object type", d.ObjectType},
		{"URL", d.ObjectURL},
		{"Attributed to", d.ObjectAttributedTo},
		{"In reply to", d.ObjectInReplyTo},
	} {
		if field.value != "" {
			cmd.Printf("- **%s:** %s\n", field.label, field.value)
		}
	}

	if d.ObjectContent == "" {
		return nil
	}
	content, err := htmltomarkdown.ConvertString(d.ObjectContent)
	if err != nil {
		return fmt.Errorf("converting content: %w", err)
	}
	cmd.Printf("\n%s\n", content)
	return nil
}

func runActivityDelete(cmd *cobra.Command, args []string) error {
	if activityService == nil {
		return errNotConfigured("activity")
	}

	if err := activityService.Delete(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("activity %s not found", args[0])
		}
		return fmt.Errorf("delete failed: %w", err)
	}

	cmd.Printf("Deleted %s.\n", args[0])
	return nil
}

func runActivityCount(cmd *cobra.Command, _ []string) error {
	if activityService == nil {
		return errNotConfigured("activity")
	}

	stats, err := activityService.Stats(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("Activities:    %s\n", humanize.Comma(int64(stats.Activities)))
	cmd.Printf("Index entries: %s\n", humanize.Comma(int64(stats.IndexEntries)))
	if !stats.Consistent() {
		return errors.New("search index is out of step with the archive")
	}
	return nil
}
