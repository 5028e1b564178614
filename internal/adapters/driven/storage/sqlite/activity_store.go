package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

// activityColumns selects the payload and every derived column.
// NULL derived values scan as empty strings.
const activityColumns = `
	a.json,
	COALESCE(a.id, ''),
	COALESCE(a.published, ''),
	COALESCE(a.type, ''),
	COALESCE(a.actor, ''),
	COALESCE(a.object_published, ''),
	COALESCE(a.object_type, ''),
	COALESCE(a.object_url, ''),
	COALESCE(a.object_content, ''),
	COALESCE(a.object_attributed_to, ''),
	COALESCE(a.object_in_reply_to, '')`

// activityStore implements driven.ActivityStore.
type activityStore struct {
	store *Store
}

// Upsert inserts the payload or replaces the activity with the same id.
// The derived columns and the search entry are maintained by SQLite.
func (s *activityStore) Upsert(ctx context.Context, id string, payload []byte) error {
	act, err := domain.ParseActivity(payload)
	if err != nil {
		return err
	}
	if act.ID != id {
		return fmt.Errorf("%w: payload id %q does not match %q", domain.ErrInvalidInput, act.ID, id)
	}

	// The generated id column is authoritative; a payload it reads
	// differently is rolled back.
	err = s.store.withWriteTx(ctx, func(tx *sql.Tx) error {
		var stored string
		err := tx.QueryRowContext(ctx, `
			INSERT INTO activities (json) VALUES (?)
			ON CONFLICT(id) DO UPDATE SET json = excluded.json
			RETURNING id
		`, string(act.Payload)).Scan(&stored)
		if err != nil {
			return err
		}
		if stored != id {
			return fmt.Errorf("%w: stored id %q does not match %q", domain.ErrInvalidInput, stored, id)
		}
		return nil
	})
	if errors.Is(err, domain.ErrInvalidInput) {
		return err
	}
	return wrapStorage("upserting "+id, err)
}

// Get retrieves an activity by id.
func (s *activityStore) Get(ctx context.Context, id string) (*domain.Activity, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM activities a WHERE a.id = ?", id)

	act, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, wrapStorage("getting "+id, err)
	}
	return act, nil
}

// Delete removes an activity; the delete trigger removes its search entry.
func (s *activityStore) Delete(ctx context.Context, id string) error {
	err := s.store.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM activities WHERE id = ?", id)
		return err
	})
	return wrapStorage("deleting "+id, err)
}

// Search streams activities matching query ordered by bm25 relevance.
// Rows are read lazily; the cursor is closed when iteration stops.
func (s *activityStore) Search(ctx context.Context, query string, opts domain.SearchOptions) iter.Seq2[domain.SearchResult, error] {
	return func(yield func(domain.SearchResult, error) bool) {
		match := query
		if !opts.Raw {
			match = MatchExpression(query)
		}
		if strings.TrimSpace(match) == "" {
			yield(domain.SearchResult{}, fmt.Errorf("%w: empty search query", domain.ErrInvalidInput))
			return
		}

		limit := opts.Limit
		if limit <= 0 {
			limit = -1
		}

		// Column 4 of activities_search is object_content.
		rows, err := s.store.db.QueryContext(ctx, `
			SELECT `+activityColumns+`,
				bm25(activities_search),
				snippet(activities_search, 4, '[', ']', '…', 16)
			FROM activities_search
			JOIN activities a ON a.rowid = activities_search.rowid
			WHERE activities_search MATCH ?
			ORDER BY rank
			LIMIT ? OFFSET ?
		`, match, limit, max(opts.Offset, 0))
		if err != nil {
			yield(domain.SearchResult{}, wrapStorage("searching", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var result domain.SearchResult
			var rank float64
			act, err := scanActivity(rows, &rank, &result.Snippet)
			if err != nil {
				yield(domain.SearchResult{}, wrapStorage("scanning search result", err))
				return
			}
			result.Activity = *act
			// bm25 is lower for better matches.
			result.Score = -rank
			if !yield(result, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.SearchResult{}, wrapStorage("searching", err))
		}
	}
}

// Count returns the number of stored activities.
func (s *activityStore) Count(ctx context.Context) (int, error) {
	return s.count(ctx, "activities")
}

// IndexCount returns the number of search index entries.
func (s *activityStore) IndexCount(ctx context.Context) (int, error) {
	return s.count(ctx, "activities_search")
}

func (s *activityStore) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, wrapStorage("counting "+table, err)
	}
	return n, nil
}

// MatchExpression turns free text into an FTS5 query. The text is NFC
// normalised and every whitespace-separated term is quoted, so the terms
// are matched literally and combined with AND.
func MatchExpression(query string) string {
	terms := strings.Fields(norm.NFC.String(query))
	for i, term := range terms {
		terms[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

type scanner interface {
	Scan(dest ...any) error
}

// scanActivity scans activityColumns followed by any extra destinations.
func scanActivity(row scanner, extra ...any) (*domain.Activity, error) {
	var payload string
	var act domain.Activity
	d := &act.Derived
	dest := append([]any{
		&payload, &act.ID,
		&d.Published, &d.Type, &d.Actor,
		&d.ObjectPublished, &d.ObjectType, &d.ObjectURL, &d.ObjectContent,
		&d.ObjectAttributedTo, &d.ObjectInReplyTo,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	act.Payload = []byte(payload)
	return &act, nil
}
