package repositorycache

import (
	"encoding/json"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/search"
)

// Page is the uniform envelope returned by listings and searches.
type Page[T any] struct {
	Pagination Pagination `json:"pagination"`
	Result     []T        `json:"result"`
}

// DecodeFn turns a raw document source into T.
type DecodeFn[T any] func(source json.RawMessage) (T, error)

// DecodeJSON is the DecodeFn used by the catalog repositories.
func DecodeJSON[T any](source json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(source, &v)
	return v, err
}

// Assemble builds the page for resp. Hits keep their backend order.
func Assemble[T any](kind string, resp search.Response, size, number int, decode DecodeFn[T]) (Page[T], error) {
	page := Page[T]{
		Pagination: Paginate(resp.Total, size, number),
		Result:     make([]T, 0, len(resp.Hits)),
	}

	for _, hit := range resp.Hits {
		v, err := decode(hit.Source)
		if err != nil {
			return Page[T]{}, catalog.InvalidDocument(kind, err)
		}
		page.Result = append(page.Result, v)
	}

	return page, nil
}
