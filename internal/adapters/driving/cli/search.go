package cli

import (
	"fmt"
	"html"
	"strings"

	"github.com/goccy/go-json"
	"github.com/microcosm-cc/bluemonday"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

var (
	searchLimit  int
	searchOffset int
	searchRaw    bool
	searchJSON   bool
)

// plainText strips markup from indexed HTML content.
var plainText = bluemonday.StrictPolicy()

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search archived activities",
	Long: `Performs a full-text keyword search over archived activities.
Every keyword must match. Results are ranked by BM25 relevance, best first.
Use --raw to pass the query to the SQLite FTS5 engine unmodified, which
allows OR, NOT, NEAR and "quoted phrases".`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "number of results to skip")
	searchCmd.Flags().BoolVar(&searchRaw, "raw", false, "use FTS5 query syntax")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errNotConfigured("search")
	}

	opts := domain.SearchOptions{
		Limit:  searchLimit,
		Offset: searchOffset,
		Raw:    searchRaw,
	}

	results, err := searchService.Search(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

type searchResultJSON struct {
	ID       string          `json:"id"`
	Score    float64         `json:"score"`
	Snippet  string          `json:"snippet,omitempty"`
	Activity json.RawMessage `json:"activity"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	out := make([]searchResultJSON, len(results))
	for i := range results {
		out[i] = searchResultJSON{
			ID:       results[i].Activity.ID,
			Score:    results[i].Score,
			Snippet:  results[i].Snippet,
			Activity: json.RawMessage(results[i].Activity.Payload),
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		// Format: [N] id (score)
		act := &results[i].Activity
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, act.ID, results[i].Score)

		var meta []string
		if act.Derived.Type != "" {
			meta = append(meta, act.Derived.Type)
		}
		if act.Derived.Published != "" {
			meta = append(meta, act.Derived.Published)
		}
		if len(meta) > 0 {
			cmd.Printf("      %s\n", strings.Join(meta, " · "))
		}
		if snippet := stripHTML(results[i].Snippet); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}

	return nil
}

// stripHTML removes tags from s and collapses whitespace.
func stripHTML(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(plainText.Sanitize(s))), " ")
}
