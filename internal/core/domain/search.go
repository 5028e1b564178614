package domain

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of results. Zero means no limit.
	Limit int

	// Offset is the number of results to skip.
	Offset int

	// Raw passes the query to the index unmodified, allowing the
	// engine's own query syntax (phrases, NEAR, column filters).
	Raw bool
}

// SearchResult represents a single search hit.
type SearchResult struct {
	// Activity is the matched record.
	Activity Activity

	// Score is the relevance score. Higher is better.
	Score float64

	// Snippet is an excerpt of the matched content with terms marked.
	Snippet string
}
