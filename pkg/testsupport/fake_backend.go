package testsupport

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/search"
)

// FakeBackend is an in-memory search backend that counts its calls.
//
// Search sorts on top-level document fields (numbers numerically, everything
// else as text) and matches when any query token is a case insensitive
// substring of any of the match fields.
type FakeBackend struct {
	mu          sync.Mutex
	collections map[string][]fakeDoc
	err         error
	gets        int
	searches    int
	queries     []search.Query
}

type fakeDoc struct {
	id     string
	source json.RawMessage
	fields map[string]any
}

// NewFakeBackend creates an empty backend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{collections: map[string][]fakeDoc{}}
}

// Load adds documents to collection. Each must carry an "id" field.
func (b *FakeBackend) Load(collection string, docs ...json.RawMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, raw := range docs {
		fields := map[string]any{}
		dec := json.NewDecoder(strings.NewReader(string(raw)))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil {
			return fmt.Errorf("decode document: %w", err)
		}
		id, ok := fields["id"]
		if !ok {
			return fmt.Errorf("document without id in %s", collection)
		}
		b.collections[collection] = append(b.collections[collection], fakeDoc{
			id:     fmt.Sprint(id),
			source: raw,
			fields: fields,
		})
	}
	return nil
}

// Fail makes every call return err. A nil err restores normal behavior.
func (b *FakeBackend) Fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

// Calls returns the number of Get and Search calls so far.
func (b *FakeBackend) Calls() (gets, searches int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets, b.searches
}

// Queries returns every query received by Search.
func (b *FakeBackend) Queries() []search.Query {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.queries)
}

func (b *FakeBackend) Get(ctx context.Context, collection, id string) (search.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.gets++
	if b.err != nil {
		return search.Document{}, b.err
	}
	if err := ctx.Err(); err != nil {
		return search.Document{}, err
	}

	for _, d := range b.collections[collection] {
		if d.id == id {
			return search.Document{ID: d.id, Source: d.source}, nil
		}
	}
	return search.Document{}, catalog.NotFound(collection, id)
}

func (b *FakeBackend) Search(ctx context.Context, collection string, q search.Query) (search.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.searches++
	b.queries = append(b.queries, q)
	if b.err != nil {
		return search.Response{}, b.err
	}
	if err := ctx.Err(); err != nil {
		return search.Response{}, err
	}

	docs := slices.Clone(b.collections[collection])
	if q.Match != nil {
		docs = slices.DeleteFunc(docs, func(d fakeDoc) bool { return !matches(d, q.Match) })
	}
	for i := len(q.Sort) - 1; i >= 0; i-- {
		s := q.Sort[i]
		slices.SortStableFunc(docs, func(a, c fakeDoc) int {
			r := compareFields(a.fields[s.Field], c.fields[s.Field])
			if s.Order == search.OrderDesc {
				return -r
			}
			return r
		})
	}

	resp := search.Response{Total: len(docs), Hits: []search.Document{}}
	from := min(max(q.From, 0), len(docs))
	to := len(docs)
	if q.Size > 0 {
		to = min(from+q.Size, len(docs))
	}
	for _, d := range docs[from:to] {
		resp.Hits = append(resp.Hits, search.Document{ID: d.id, Source: d.source})
	}
	return resp, nil
}

func matches(d fakeDoc, m *search.Match) bool {
	tokens := strings.Fields(strings.ToLower(m.Query))
	for _, f := range m.Fields {
		text := strings.ToLower(fmt.Sprint(d.fields[f]))
		for _, tok := range tokens {
			if strings.Contains(text, tok) {
				return true
			}
		}
	}
	return false
}

func compareFields(a, b any) int {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return cmp.Compare(fa, fb)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
