package catalog

import "slices"

// Kind describes how one entity type is stored and queried.
type Kind struct {
	Name         string
	Collection   string
	SearchFields []string
	SortFields   []string
	DefaultSort  string
}

// Films returns the film kind, stored in the "movies" index.
func Films() Kind {
	return Kind{
		Name:         "film",
		Collection:   "movies",
		SearchFields: []string{"title"},
		SortFields:   []string{"imdb_rating", "title"},
		DefaultSort:  "imdb_rating",
	}
}

// Genres returns the genre kind, stored in the "genre" index.
func Genres() Kind {
	return Kind{
		Name:         "genre",
		Collection:   "genre",
		SearchFields: []string{"title"},
		SortFields:   []string{"imdb_rating", "title"},
		DefaultSort:  "imdb_rating",
	}
}

// Persons returns the person kind, stored in the "person" index.
// Free-text search runs over both role and name.
func Persons() Kind {
	return Kind{
		Name:         "person",
		Collection:   "person",
		SearchFields: []string{"role", "name"},
		SortFields:   []string{"id", "name"},
		DefaultSort:  "id",
	}
}

// WithCollection returns a copy of k reading from collection.
// An empty collection keeps the current one.
func (k Kind) WithCollection(collection string) Kind {
	if collection != "" {
		k.Collection = collection
	}
	return k
}

// Sortable reports whether field may be used to order listings.
func (k Kind) Sortable(field string) bool {
	return slices.Contains(k.SortFields, field)
}
