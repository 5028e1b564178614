package cli

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/outbox/internal/config"
)

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Show and change configuration",
	Annotations: map[string]string{storeAnnotation: storeNone},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show every option with its current value and source",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print the current value of an option",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <name=value>...",
	Short: "Save options to the config file",
	Long: `Saves one or more name=value pairs to the config file. Environment
variables and -F flags still take precedence over saved values.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if cfg == nil {
		return errNotConfigured("config")
	}
	cmd.Printf("# config file: %s\n\n", configStore.Path())
	renderConfig(cmd.OutOrStdout(), cfg)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if cfg == nil {
		return errNotConfigured("config")
	}
	if !cfg.Has(args[0]) {
		return fmt.Errorf("%w: %q", config.ErrUnknownOption, args[0])
	}
	cmd.Println(cfg.Get(args[0]))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if cfg == nil || configStore == nil {
		return errNotConfigured("config")
	}

	// Validate every pair before writing any.
	pairs := make([][2]string, 0, len(args))
	for _, arg := range args {
		name, value, err := config.ParseOverride(arg)
		if err != nil {
			return err
		}
		opt, ok := findOption(cfg, name)
		if !ok {
			return fmt.Errorf("%w: %q", config.ErrUnknownOption, name)
		}
		if len(opt.Choices) > 0 && !slices.Contains(opt.Choices, value) {
			return fmt.Errorf("invalid value %q for %s (want one of %s)", value, name, strings.Join(opt.Choices, ", "))
		}
		pairs = append(pairs, [2]string{name, value})
	}

	for _, p := range pairs {
		if err := configStore.Set(p[0], p[1]); err != nil {
			return fmt.Errorf("saving %s: %w", p[0], err)
		}
		cmd.Printf("Set %s = %s\n", p[0], strconv.Quote(p[1]))
	}
	return nil
}

func findOption(c *config.Config, name string) (config.Option, bool) {
	for _, opt := range c.Options() {
		if opt.Name == name {
			return opt, true
		}
	}
	return config.Option{}, false
}

// renderConfig writes every option as a commented TOML assignment.
func renderConfig(w io.Writer, c *config.Config) {
	for _, opt := range c.Options() {
		fmt.Fprintf(w, "# %s\n", opt.Doc)

		var details []string
		if opt.Env != "" {
			details = append(details, "env "+opt.Env)
		}
		if opt.Default != "" {
			details = append(details, "default "+strconv.Quote(opt.Default))
		}
		if len(opt.Choices) > 0 {
			details = append(details, "one of "+strings.Join(opt.Choices, "|"))
		}
		if len(details) > 0 {
			fmt.Fprintf(w, "# %s\n", strings.Join(details, ", "))
		}

		fmt.Fprintf(w, "%s = %s # from %s\n\n", opt.Name, strconv.Quote(c.Get(opt.Name)), c.Source(opt.Name))
	}
}
