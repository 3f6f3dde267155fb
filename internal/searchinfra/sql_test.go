package searchinfra

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/search"
)

func newSQLBackend(t *testing.T) *SQLBackend {
	t.Helper()

	db, err := OpenSQL(DriverSQLite, ":memory:")
	require.NoError(t, err)

	backend := NewSQLBackend(db, nil)
	t.Cleanup(func() { _ = backend.Close() })

	require.NoError(t, backend.Migrate(context.Background()))
	require.NoError(t, backend.Migrate(context.Background()), "migrate must be idempotent")
	return backend
}

func seedFilms(t *testing.T, b *SQLBackend) {
	t.Helper()

	docs := []json.RawMessage{
		json.RawMessage(`{"id":"a","title":"Star Wars","imdb_rating":8.6}`),
		json.RawMessage(`{"id":"b","title":"Star Trek","imdb_rating":7.9}`),
		json.RawMessage(`{"id":"c","title":"Alien","imdb_rating":8.4}`),
		json.RawMessage(`{"id":"d","title":"Dune","imdb_rating":8.0}`),
		json.RawMessage(`{"id":"e","title":"Solaris","imdb_rating":7.5}`),
	}
	require.NoError(t, b.Index(context.Background(), "movies", docs...))
}

func ids(resp search.Response) []string {
	out := make([]string, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		out = append(out, h.ID)
	}
	return out
}

func TestSQLBackend_Get(t *testing.T) {
	b := newSQLBackend(t)
	seedFilms(t, b)
	ctx := context.Background()

	doc, err := b.Get(ctx, "movies", "c")
	require.NoError(t, err)
	assert.Equal(t, "c", doc.ID)
	assert.JSONEq(t, `{"id":"c","title":"Alien","imdb_rating":8.4}`, string(doc.Source))

	_, err = b.Get(ctx, "movies", "zzz")
	assert.True(t, catalog.IsNotFound(err))

	_, err = b.Get(ctx, "genre", "c")
	assert.True(t, catalog.IsNotFound(err), "collections are isolated")
}

func TestSQLBackend_IndexUpserts(t *testing.T) {
	b := newSQLBackend(t)
	seedFilms(t, b)
	ctx := context.Background()

	require.NoError(t, b.Index(ctx, "movies", json.RawMessage(`{"id":"a","title":"A New Hope","imdb_rating":8.7}`)))

	doc, err := b.Get(ctx, "movies", "a")
	require.NoError(t, err)
	assert.Contains(t, string(doc.Source), "A New Hope")

	resp, err := b.Search(ctx, "movies", search.ListQuery(10, 0, search.ParseSort("imdb_rating")))
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Total)
}

func TestSQLBackend_IndexRejectsDocumentsWithoutID(t *testing.T) {
	b := newSQLBackend(t)

	err := b.Index(context.Background(), "movies", json.RawMessage(`{"title":"no id"}`))
	assert.ErrorIs(t, err, catalog.ErrInvalidDocument)
}

func TestSQLBackend_SearchSorted(t *testing.T) {
	b := newSQLBackend(t)
	seedFilms(t, b)
	ctx := context.Background()

	desc, err := b.Search(ctx, "movies", search.ListQuery(2, 0, search.ParseSort("imdb_rating")))
	require.NoError(t, err)
	assert.Equal(t, 5, desc.Total)
	assert.Equal(t, []string{"a", "c"}, ids(desc))

	asc, err := b.Search(ctx, "movies", search.ListQuery(2, 0, search.ParseSort("-imdb_rating")))
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "b"}, ids(asc))

	last, err := b.Search(ctx, "movies", search.ListQuery(2, 2, search.ParseSort("imdb_rating")))
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, ids(last))

	beyond, err := b.Search(ctx, "movies", search.ListQuery(2, 9, search.ParseSort("imdb_rating")))
	require.NoError(t, err)
	assert.Equal(t, 5, beyond.Total)
	assert.Empty(t, beyond.Hits)
}

func TestSQLBackend_SearchUnsortableField(t *testing.T) {
	b := newSQLBackend(t)

	_, err := b.Search(context.Background(), "movies", search.ListQuery(2, 0, search.ParseSort("description")))
	assert.True(t, catalog.IsInvalidQuery(err))
}

func TestSQLBackend_SearchMatch(t *testing.T) {
	b := newSQLBackend(t)
	seedFilms(t, b)
	ctx := context.Background()

	resp, err := b.Search(ctx, "movies", search.MatchQuery(10, 0, "STAR", "title"))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, []string{"a", "b"}, ids(resp))

	none, err := b.Search(ctx, "movies", search.MatchQuery(10, 0, "matrix", "title"))
	require.NoError(t, err)
	assert.Equal(t, 0, none.Total)
	assert.NotNil(t, none.Hits)
}

func TestSQLBackend_SearchMultiMatch(t *testing.T) {
	b := newSQLBackend(t)
	ctx := context.Background()

	var docs []json.RawMessage
	for i, p := range []struct{ name, role string }{
		{"Jim Carrey", "actor"},
		{"Jane Doe", "director"},
		{"Bob Jim", "writer"},
		{"Ann Lee", "actor"},
	} {
		docs = append(docs, json.RawMessage(fmt.Sprintf(`{"id":"p%d","name":%q,"role":%q}`, i, p.name, p.role)))
	}
	require.NoError(t, b.Index(ctx, "person", docs...))

	byName, err := b.Search(ctx, "person", search.MatchQuery(10, 0, "jim", "role", "name"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p0", "p2"}, ids(byName))

	byRole, err := b.Search(ctx, "person", search.MatchQuery(10, 0, "actor", "role", "name"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p0", "p3"}, ids(byRole))
}

func TestOpenSQL_UnsupportedDriver(t *testing.T) {
	_, err := OpenSQL("oracle", "dsn")
	assert.Error(t, err)
}

func TestSQLBackend_SortNumericIDs(t *testing.T) {
	b := newSQLBackend(t)
	ctx := context.Background()

	docs := make([]json.RawMessage, 0, 20)
	for i := 0; i < 20; i++ {
		docs = append(docs, json.RawMessage(fmt.Sprintf(`{"id":%d,"name":"Person %d","role":"actor"}`, i, i)))
	}
	require.NoError(t, b.Index(ctx, "person", docs...))

	desc, err := b.Search(ctx, "person", search.ListQuery(10, 0, search.ParseSort("id")))
	require.NoError(t, err)
	assert.Equal(t, 20, desc.Total)
	assert.Equal(t, []string{"19", "18", "17", "16", "15", "14", "13", "12", "11", "10"}, ids(desc))

	asc, err := b.Search(ctx, "person", search.ListQuery(10, 0, search.ParseSort("-id")))
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}, ids(asc))

	second, err := b.Search(ctx, "person", search.ListQuery(10, 1, search.ParseSort("-id")))
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "11", "12", "13", "14", "15", "16", "17", "18", "19"}, ids(second))
}

func TestSQLBackend_SortTextIDs(t *testing.T) {
	b := newSQLBackend(t)
	seedFilms(t, b)

	resp, err := b.Search(context.Background(), "movies", search.ListQuery(3, 0, search.ParseSort("-id")))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(resp))
}

func TestNumericID(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"0", ptr(0)},
		{"19", ptr(19)},
		{"-3", ptr(-3)},
		{"f1", nil},
		{"NaN", nil},
		{"Inf", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := numericID(tt.in)
		if tt.want == nil {
			assert.Nil(t, got, tt.in)
			continue
		}
		require.NotNil(t, got, tt.in)
		assert.Equal(t, *tt.want, *got, tt.in)
	}
}

func ptr(f float64) *float64 { return &f }
