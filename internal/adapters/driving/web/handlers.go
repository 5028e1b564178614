package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

// maxSearchLimit caps the limit query parameter.
const maxSearchLimit = 100

type healthResponse struct {
	Status       string `json:"status"`
	SiteURL      string `json:"siteUrl,omitempty"`
	Activities   int    `json:"activities"`
	IndexEntries int    `json:"indexEntries"`
	Consistent   bool   `json:"consistent"`
}

type searchHit struct {
	ID        string  `json:"id"`
	Type      string  `json:"type,omitempty"`
	Actor     string  `json:"actor,omitempty"`
	Published string  `json:"published,omitempty"`
	URL       string  `json:"url,omitempty"`
	Score     float64 `json:"score"`
	Snippet   string  `json:"snippet,omitempty"`
}

type searchResponse struct {
	Query   string      `json:"query"`
	Results []searchHit `json:"results"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ports.Activity.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		SiteURL:      s.opts.SiteURL,
		Activities:   stats.Activities,
		IndexEntries: stats.IndexEntries,
		Consistent:   stats.Consistent(),
	})
}

// handleGetActivity serves GET /api/activities?id=... . Ids are URLs, so
// they travel as a query parameter rather than a path segment.
func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing id parameter"))
		return
	}

	act, err := s.ports.Activity.Get(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/activity+json")
	w.WriteHeader(http.StatusOK)
	w.Write(act.Payload) //nolint:errcheck
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing q parameter"))
		return
	}

	opts := domain.SearchOptions{
		Limit:  min(queryInt(r, "limit", 20), maxSearchLimit),
		Offset: queryInt(r, "offset", 0),
		Raw:    q.Get("raw") == "1" || q.Get("raw") == "true",
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	results, err := s.ports.Search.Search(r.Context(), query, opts)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	resp := searchResponse{Query: query, Results: make([]searchHit, len(results))}
	for i := range results {
		act := &results[i].Activity
		resp.Results[i] = searchHit{
			ID:        act.ID,
			Type:      act.Derived.Type,
			Actor:     act.Derived.Actor,
			Published: act.Derived.Published,
			URL:       act.Derived.ObjectURL,
			Score:     results[i].Score,
			Snippet:   results[i].Snippet,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
