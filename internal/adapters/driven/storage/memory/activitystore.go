package memory

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/outbox/internal/core/domain"
	"github.com/custodia-labs/outbox/internal/core/ports/driven"
)

// Ensure ActivityStore implements the interface.
var _ driven.ActivityStore = (*ActivityStore)(nil)

// ActivityStore is an in-memory implementation of driven.ActivityStore.
// The primary map and the search index are updated under one lock, so no
// reader sees an activity without its index entry.
type ActivityStore struct {
	mu         sync.RWMutex
	activities map[string]storedActivity
	index      map[string]domain.SearchEntry
	seq        int64
}

type storedActivity struct {
	activity domain.Activity
	rowid    int64
}

// NewActivityStore creates a new in-memory activity store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{
		activities: make(map[string]storedActivity),
		index:      make(map[string]domain.SearchEntry),
	}
}

// Upsert inserts or fully replaces the activity with the given id.
// A replaced activity keeps its original insertion position.
func (s *ActivityStore) Upsert(_ context.Context, id string, payload []byte) error {
	act, err := domain.ParseActivity(payload)
	if err != nil {
		return err
	}
	if act.ID != id {
		return fmt.Errorf("%w: payload id %q does not match %q", domain.ErrInvalidInput, act.ID, id)
	}
	act.Payload = append([]byte(nil), act.Payload...)

	s.mu.Lock()
	defer s.mu.Unlock()

	rowid := s.activities[id].rowid
	if rowid == 0 {
		s.seq++
		rowid = s.seq
	}
	s.activities[id] = storedActivity{activity: *act, rowid: rowid}
	s.index[id] = act.SearchEntry()
	return nil
}

// Get retrieves an activity by id.
func (s *ActivityStore) Get(_ context.Context, id string) (*domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.activities[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	act := stored.activity
	return &act, nil
}

// Delete removes an activity and its index entry.
func (s *ActivityStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activities, id)
	delete(s.index, id)
	return nil
}

// Search matches activities containing every query term in any indexed
// field. Results are ordered by the number of term occurrences, then by
// insertion order. Raw queries are matched the same way.
func (s *ActivityStore) Search(_ context.Context, query string, opts domain.SearchOptions) iter.Seq2[domain.SearchResult, error] {
	return func(yield func(domain.SearchResult, error) bool) {
		terms := tokenize(query)
		if len(terms) == 0 {
			yield(domain.SearchResult{}, fmt.Errorf("%w: empty search query", domain.ErrInvalidInput))
			return
		}

		type hit struct {
			result domain.SearchResult
			rowid  int64
		}

		s.mu.RLock()
		var hits []hit
		for id, entry := range s.index {
			score := matchScore(entry, terms)
			if score == 0 {
				continue
			}
			stored := s.activities[id]
			hits = append(hits, hit{
				result: domain.SearchResult{
					Activity: stored.activity,
					Score:    float64(score),
					Snippet:  highlight(entry.ObjectContent, terms),
				},
				rowid: stored.rowid,
			})
		}
		s.mu.RUnlock()

		sort.Slice(hits, func(i, j int) bool {
			if hits[i].result.Score != hits[j].result.Score {
				return hits[i].result.Score > hits[j].result.Score
			}
			return hits[i].rowid < hits[j].rowid
		})

		if opts.Offset > 0 {
			if opts.Offset >= len(hits) {
				return
			}
			hits = hits[opts.Offset:]
		}
		if opts.Limit > 0 && len(hits) > opts.Limit {
			hits = hits[:opts.Limit]
		}

		for _, h := range hits {
			if !yield(h.result, nil) {
				return
			}
		}
	}
}

// Count returns the number of stored activities.
func (s *ActivityStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.activities), nil
}

// IndexCount returns the number of index entries.
func (s *ActivityStore) IndexCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index), nil
}

// IndexEntry returns the index entry for id.
func (s *ActivityStore) IndexEntry(id string) (domain.SearchEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.index[id]
	return entry, ok
}

// tokenize lowercases NFC-normalised text and splits it on anything that
// is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(norm.NFC.String(text)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matchScore counts occurrences of terms in the entry, or returns 0 if any
// term is absent.
func matchScore(entry domain.SearchEntry, terms []string) int {
	counts := make(map[string]int)
	for _, field := range []string{entry.Actor, entry.Type, entry.Published, entry.ObjectContent} {
		for _, tok := range tokenize(field) {
			counts[tok]++
		}
	}

	score := 0
	for _, term := range terms {
		n := counts[term]
		if n == 0 {
			return 0
		}
		score += n
	}
	return score
}

// highlight wraps words of content that match a term in brackets.
func highlight(content string, terms []string) string {
	want := make(map[string]bool, len(terms))
	for _, t := range terms {
		want[t] = true
	}

	words := strings.Fields(content)
	for i, w := range words {
		for _, tok := range tokenize(w) {
			if want[tok] {
				words[i] = "[" + w + "]"
				break
			}
		}
	}
	return strings.Join(words, " ")
}
