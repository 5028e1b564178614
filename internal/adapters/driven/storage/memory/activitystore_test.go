package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/outbox/internal/core/domain"
)

func note(id, typ, content string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"type":%q,"object":{"content":%q}}`, id, typ, content))
}

func searchIDs(t *testing.T, store *ActivityStore, query string, opts domain.SearchOptions) []string {
	t.Helper()
	var ids []string
	for r, err := range store.Search(context.Background(), query, opts) {
		require.NoError(t, err)
		ids = append(ids, r.Activity.ID)
	}
	return ids
}

func TestNewActivityStore(t *testing.T) {
	store := NewActivityStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.activities)
	assert.NotNil(t, store.index)
}

func TestActivityStore_UpsertAndGet(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "a", note("a", "X", "hello world")))

	act, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", act.ID)
	assert.Equal(t, "X", act.Derived.Type)
	assert.Equal(t, "hello world", act.Derived.ObjectContent)
}

func TestActivityStore_Get_NotFound(t *testing.T) {
	store := NewActivityStore()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestActivityStore_Upsert_Rejects(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.Upsert(ctx, "a", []byte(`{"id":"b"}`)), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.Upsert(ctx, "a", []byte(`"a"`)), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.Upsert(ctx, "a", []byte(`{}`)), domain.ErrMissingID)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestActivityStore_IndexFollowsMutations(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "a", note("a", "X", "first")))
	entry, ok := store.IndexEntry("a")
	require.True(t, ok)
	assert.Equal(t, "first", entry.ObjectContent)

	require.NoError(t, store.Upsert(ctx, "a", note("a", "Y", "second")))
	entry, ok = store.IndexEntry("a")
	require.True(t, ok)
	assert.Equal(t, "second", entry.ObjectContent)
	assert.Equal(t, "Y", entry.Type)

	n, err := store.IndexCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, store.Delete(ctx, "a"))
	_, ok = store.IndexEntry("a")
	assert.False(t, ok)

	n, err = store.IndexCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestActivityStore_Upsert_CopiesPayload(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	payload := note("a", "X", "hello")
	require.NoError(t, store.Upsert(ctx, "a", payload))
	payload[2] = 'X'

	act, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.JSONEq(t, string(note("a", "X", "hello")), string(act.Payload))
}

func TestActivityStore_Search(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "a", note("a", "X", "hello world")))
	require.NoError(t, store.Upsert(ctx, "b", note("b", "Y", "goodbye")))

	assert.Equal(t, []string{"a"}, searchIDs(t, store, "hello", domain.SearchOptions{}))
	assert.Equal(t, []string{"a"}, searchIDs(t, store, "HELLO world", domain.SearchOptions{}))
	assert.Empty(t, searchIDs(t, store, "hello goodbye", domain.SearchOptions{}))
	assert.Equal(t, []string{"b"}, searchIDs(t, store, "y", domain.SearchOptions{}))
}

func TestActivityStore_Search_Ordering(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "once", note("once", "Note", "echo")))
	require.NoError(t, store.Upsert(ctx, "thrice", note("thrice", "Note", "echo echo echo")))
	require.NoError(t, store.Upsert(ctx, "once-later", note("once-later", "Note", "echo")))

	assert.Equal(t, []string{"thrice", "once", "once-later"}, searchIDs(t, store, "echo", domain.SearchOptions{}))
	assert.Equal(t, []string{"once"}, searchIDs(t, store, "echo", domain.SearchOptions{Offset: 1, Limit: 1}))
	assert.Empty(t, searchIDs(t, store, "echo", domain.SearchOptions{Offset: 5}))
}

func TestActivityStore_Search_Snippet(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "a", note("a", "X", "hello, world")))

	for r, err := range store.Search(ctx, "world", domain.SearchOptions{}) {
		require.NoError(t, err)
		assert.Equal(t, "hello, [world]", r.Snippet)
	}
}

func TestActivityStore_Search_EmptyQuery(t *testing.T) {
	store := NewActivityStore()

	for _, err := range store.Search(context.Background(), " ... ", domain.SearchOptions{}) {
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestActivityStore_Concurrency(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("n%d", i)
			_ = store.Upsert(ctx, id, note(id, "Note", "concurrent"))
			_, _ = store.Get(ctx, id)
			for range store.Search(ctx, "concurrent", domain.SearchOptions{}) {
			}
		}(i)
	}
	wg.Wait()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
	n, err := store.IndexCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}
