// Package search defines the contract with the authoritative search backend
// and the structural query descriptor sent to it.
package search

import (
	"context"
	"encoding/json"
)

// Document is a single stored document: its identifier and raw source fields.
type Document struct {
	ID     string          `json:"id" msgpack:"id"`
	Source json.RawMessage `json:"source" msgpack:"source"`
}

// Response is the backend-shaped result of a search: the total number of
// matching documents and the hits of the requested page, in rank or sort order.
type Response struct {
	Total int        `json:"total" msgpack:"total"`
	Hits  []Document `json:"hits" msgpack:"hits"`
}

// Backend is the authoritative store queried on cache misses.
//
// Get returns an error satisfying catalog.IsNotFound when the document does
// not exist; every other failure satisfies catalog.IsBackendUnavailable.
type Backend interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Search(ctx context.Context, collection string, q Query) (Response, error)
}

// Pinger is implemented by backends that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}
