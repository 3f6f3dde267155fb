package repositorycache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/pkg/testsupport"
	"github.com/goliatone/go-catalog-cache/search"
)

type fixture struct {
	store   *testsupport.MemoryStore
	backend *testsupport.FakeBackend
	films   *Repository[catalog.Film]
	genres  *Repository[catalog.Genre]
	persons *Repository[catalog.Person]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:   testsupport.NewMemoryStore(),
		backend: testsupport.NewFakeBackend(),
	}
	require.NoError(t, f.backend.Load("movies", testsupport.CatalogDocuments(t, testsupport.FilmsFixture)...))
	require.NoError(t, f.backend.Load("genre", testsupport.CatalogDocuments(t, testsupport.GenresFixture)...))
	require.NoError(t, f.backend.Load("person", testsupport.CatalogDocuments(t, testsupport.PersonsFixture)...))

	f.films = New[catalog.Film](catalog.Films(), f.store, f.backend)
	f.genres = New[catalog.Genre](catalog.Genres(), f.store, f.backend)
	f.persons = New[catalog.Person](catalog.Persons(), f.store, f.backend)
	return f
}

func personIDs(page Page[catalog.Person]) []string {
	ids := make([]string, 0, len(page.Result))
	for _, p := range page.Result {
		ids = append(ids, string(p.ID))
	}
	return ids
}

func TestRepository_GetByID_PopulatesCache(t *testing.T) {
	store := testsupport.NewMemoryStore()
	backend := testsupport.NewFakeBackend()
	require.NoError(t, backend.Load("movies", json.RawMessage(`{"id":"1","title":"Some film","imdb_rating":8.5}`)))
	films := New[catalog.Film](catalog.Films(), store, backend)

	film, err := films.GetByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, catalog.ID("1"), film.ID)
	assert.Equal(t, 8.5, film.IMDbRating)

	require.True(t, store.Has("film_id_1"))
	ttl, _ := store.TTL("film_id_1")
	assert.Equal(t, 300*time.Second, ttl)
}

func TestRepository_GetByID_SecondCallIsServedFromCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.films.GetByID(ctx, "f3")
	require.NoError(t, err)
	second, err := f.films.GetByID(ctx, "f3")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	gets, _ := f.backend.Calls()
	assert.Equal(t, 1, gets, "second read must not reach the backend")
	assert.Equal(t, catalog.StringList{"Horror", "Sci-Fi"}, first.Genre)
}

func TestRepository_GetByID_NotFoundIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.films.GetByID(ctx, "missing")
	require.Error(t, err)
	assert.True(t, catalog.IsNotFound(err))
	assert.Contains(t, err.Error(), "film")
	assert.False(t, f.store.Has("film_id_missing"))

	_, err = f.films.GetByID(ctx, "missing")
	assert.True(t, catalog.IsNotFound(err))
	gets, _ := f.backend.Calls()
	assert.Equal(t, 2, gets)
}

func TestRepository_GetByID_BackendFailure(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail(errors.New("connection reset"))

	_, err := f.persons.GetByID(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, catalog.IsBackendUnavailable(err))
	assert.False(t, catalog.IsNotFound(err))
	assert.Zero(t, f.store.Len())
}

func TestRepository_CacheFailuresAreSwallowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	down := catalog.CacheUnavailable("redis get", errors.New("dial tcp: refused"))
	f.store.FailGets(down)
	f.store.FailSets(down)

	genre, err := f.genres.GetByID(ctx, "g2")
	require.NoError(t, err)
	assert.Equal(t, "Drama", genre.Title)

	page, err := f.genres.List(ctx, ListParams{PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, page.Result, 3)

	_, err = f.genres.GetByID(ctx, "g2")
	require.NoError(t, err)
	gets, searches := f.backend.Calls()
	assert.Equal(t, 2, gets, "an unavailable cache degrades to always-miss")
	assert.Equal(t, 1, searches)
}

func TestRepository_CorruptCacheEntryIsReplaced(t *testing.T) {
	f := newFixture(t)
	f.store.Put("genre_id_g1", []byte{0xc1})

	genre, err := f.genres.GetByID(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "Action", genre.Title)

	raw, _ := f.store.Value("genre_id_g1")
	assert.NotEqual(t, []byte{0xc1}, raw)
}

func TestRepository_List_SortDescendingByDefaultField(t *testing.T) {
	f := newFixture(t)

	page, err := f.persons.List(context.Background(), ListParams{PageSize: 10, PageNumber: 0, Sort: "id"})
	require.NoError(t, err)

	assert.Equal(t, []string{"19", "18", "17", "16", "15", "14", "13", "12", "11", "10"}, personIDs(page))
	assert.Equal(t, 0, page.Pagination.First)
	assert.Equal(t, 1, page.Pagination.Last)
	require.NotNil(t, page.Pagination.Next)
	assert.Equal(t, 1, *page.Pagination.Next)
	assert.Nil(t, page.Pagination.Prev)
}

func TestRepository_List_LeadingDashSortsAscending(t *testing.T) {
	f := newFixture(t)

	page, err := f.persons.List(context.Background(), ListParams{PageSize: 10, PageNumber: 0, Sort: "-id"})
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}, personIDs(page))

	queries := f.backend.Queries()
	require.Len(t, queries, 1)
	assert.Equal(t, []search.SortClause{{Field: "id", Order: search.OrderAsc}}, queries[0].Sort)
}

func TestRepository_List_SecondPage(t *testing.T) {
	f := newFixture(t)

	page, err := f.persons.List(context.Background(), ListParams{PageSize: 10, PageNumber: 1, Sort: "id"})
	require.NoError(t, err)

	assert.Equal(t, "9", personIDs(page)[0])
	require.NotNil(t, page.Pagination.Prev)
	assert.Equal(t, 0, *page.Pagination.Prev)
	assert.Nil(t, page.Pagination.Next)
}

func TestRepository_List_DefaultSort(t *testing.T) {
	f := newFixture(t)

	page, err := f.films.List(context.Background(), ListParams{PageSize: 2})
	require.NoError(t, err)

	require.Len(t, page.Result, 2)
	assert.Equal(t, catalog.ID("f1"), page.Result[0].ID, "highest rating first")
	assert.Equal(t, catalog.ID("f3"), page.Result[1].ID)
}

func TestRepository_List_CachesRawResponse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	params := ListParams{PageSize: 10, PageNumber: 0, Sort: "imdb_rating"}

	first, err := f.films.List(ctx, params)
	require.NoError(t, err)
	second, err := f.films.List(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, searches := f.backend.Calls()
	assert.Equal(t, 1, searches)

	key := cache.NewKeyBuilder().QueryKey("film", search.ListQuery(10, 0, search.ParseSort("imdb_rating")))
	raw, ok := f.store.Value(key)
	require.True(t, ok)

	var resp search.Response
	require.NoError(t, cache.NewMsgpackCodec().Unmarshal(raw, &resp))
	assert.Equal(t, 5, resp.Total)
	assert.Len(t, resp.Hits, 5)
}

func TestRepository_List_KeysFollowTheQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.films.List(ctx, ListParams{PageSize: 10, Sort: "imdb_rating"})
	require.NoError(t, err)
	_, err = f.films.List(ctx, ListParams{PageSize: 10, Sort: "imdb_rating"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Len(), "same parameters share one key")

	_, err = f.films.List(ctx, ListParams{PageSize: 10, Sort: "-imdb_rating"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.Len(), "inverted sort uses another key")

	queries := f.backend.Queries()
	require.Len(t, queries, 2)
	assert.Equal(t, search.OrderDesc, queries[0].Sort[0].Order)
	assert.Equal(t, search.OrderAsc, queries[1].Sort[0].Order)

	for _, k := range f.store.Keys() {
		assert.True(t, strings.HasPrefix(k, "search_film_query_params_"), k)
	}
}

func TestRepository_List_InvalidParams(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.films.List(ctx, ListParams{PageSize: 0})
	assert.True(t, catalog.IsInvalidQuery(err))

	_, err = f.films.List(ctx, ListParams{PageSize: 10, PageNumber: -1})
	assert.True(t, catalog.IsInvalidQuery(err))

	_, err = f.films.List(ctx, ListParams{PageSize: 10, Sort: "-description"})
	assert.True(t, catalog.IsInvalidQuery(err))

	_, searches := f.backend.Calls()
	assert.Zero(t, searches)
}

func TestRepository_List_BackendFailure(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail(errors.New("timeout"))

	_, err := f.genres.List(context.Background(), ListParams{PageSize: 10})
	assert.True(t, catalog.IsBackendUnavailable(err))
	assert.Zero(t, f.store.Len())
}

func TestRepository_Search_NoMatches(t *testing.T) {
	f := newFixture(t)

	page, err := f.films.Search(context.Background(), SearchParams{Query: "Mashed potato", PageSize: 10})
	require.NoError(t, err)

	assert.NotNil(t, page.Result)
	assert.Empty(t, page.Result)
	assert.Equal(t, -1, page.Pagination.Last)
	assert.Nil(t, page.Pagination.Next)
	assert.Nil(t, page.Pagination.Prev)
}

func TestRepository_Search_Films(t *testing.T) {
	f := newFixture(t)

	page, err := f.films.Search(context.Background(), SearchParams{Query: "star", PageSize: 10})
	require.NoError(t, err)

	assert.Len(t, page.Result, 2)
	queries := f.backend.Queries()
	require.Len(t, queries, 1)
	assert.Equal(t, []string{"title"}, queries[0].Match.Fields)
}

func TestRepository_Search_PersonsUseRoleAndName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page, err := f.persons.Search(ctx, SearchParams{Query: "jim", PageSize: 10})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"0", "2"}, personIDs(page))

	page, err = f.persons.Search(ctx, SearchParams{Query: "director", PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, page.Result, 3)
	assert.Equal(t, 2, page.Pagination.Last)

	queries := f.backend.Queries()
	assert.Equal(t, []string{"role", "name"}, queries[0].Match.Fields)
}

func TestRepository_Search_EmptyQuery(t *testing.T) {
	f := newFixture(t)

	_, err := f.films.Search(context.Background(), SearchParams{Query: "  ", PageSize: 10})
	assert.True(t, catalog.IsInvalidQuery(err))
}

func TestRepository_Options(t *testing.T) {
	store := testsupport.NewMemoryStore()
	backend := testsupport.NewFakeBackend()
	require.NoError(t, backend.Load("genres_v2", testsupport.CatalogDocuments(t, testsupport.GenresFixture)...))

	genres := New[catalog.Genre](
		catalog.Genres().WithCollection("genres_v2"),
		store,
		backend,
		WithCodec(cache.NewJSONCodec()),
		WithTTL(time.Minute),
		WithKeyBuilder(cache.NewKeyBuilder(cache.WithMaxCanonicalLength(16))),
		WithLogger(nil),
	)

	_, err := genres.GetByID(context.Background(), "g3")
	require.NoError(t, err)

	raw, ok := store.Value("genre_id_g3")
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"g3","title":"Sci-Fi","imdb_rating":7.4,"description":"Speculative science and technology."}`, string(raw))
	ttl, _ := store.TTL("genre_id_g3")
	assert.Equal(t, time.Minute, ttl)

	_, err = genres.List(context.Background(), ListParams{PageSize: 5})
	require.NoError(t, err)
	for _, k := range store.Keys() {
		if strings.HasPrefix(k, "search_") {
			assert.Contains(t, k, "xxh64:")
		}
	}
	assert.Equal(t, "genres_v2", genres.Kind().Collection)
}

func TestRepository_ConcurrentReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			film, err := f.films.GetByID(ctx, "f1")
			if err == nil && film.ID != "f1" {
				err = errors.New("wrong film")
			}
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.persons.List(ctx, ListParams{PageSize: 5, Sort: "name"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	gets, searches := f.backend.Calls()
	assert.GreaterOrEqual(t, gets, 1)
	assert.GreaterOrEqual(t, searches, 1)
	assert.Equal(t, 2, f.store.Len())
}

func TestRepository_DeadlineAbandonsRead(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.films.GetByID(ctx, "f1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, f.store.Has("film_id_f1"))
}
