package search

import (
	"slices"
	"strings"
)

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// SortClause orders results by one field.
type SortClause struct {
	Field string
	Order string
}

// Match is a free-text predicate over one or more fields.
type Match struct {
	Query  string
	Fields []string
}

// Query is the normalized structural query sent to the backend.
type Query struct {
	Size  int
	From  int
	Sort  []SortClause
	Match *Match
}

// ParseSort turns a client sort expression into a clause. Orders are
// inverted on purpose: a bare field sorts descending ("best first") and a
// leading "-" sorts ascending.
func ParseSort(expr string) SortClause {
	if field, ok := strings.CutPrefix(expr, "-"); ok {
		return SortClause{Field: field, Order: OrderAsc}
	}
	return SortClause{Field: expr, Order: OrderDesc}
}

// ListQuery builds the descriptor for one page of a sorted listing.
func ListQuery(pageSize, pageNumber int, sort SortClause) Query {
	return Query{
		Size: pageSize,
		From: pageNumber * pageSize,
		Sort: []SortClause{sort},
	}
}

// MatchQuery builds the descriptor for one page of a free-text search.
func MatchQuery(pageSize, pageNumber int, text string, fields ...string) Query {
	return Query{
		Size:  pageSize,
		From:  pageNumber * pageSize,
		Match: &Match{Query: text, Fields: slices.Clone(fields)},
	}
}

// Body renders q in the backend's request shape:
//
//	{"size": 10, "from": 0, "sort": [{"imdb_rating": {"order": "desc"}}]}
//	{"size": 10, "from": 0, "query": {"match": {"title": {"query": "star"}}}}
//	{"size": 10, "from": 0, "query": {"multi_match": {"query": "jim", "fields": ["role", "name"]}}}
func (q Query) Body() map[string]any {
	body := map[string]any{
		"size": q.Size,
		"from": q.From,
	}

	if len(q.Sort) > 0 {
		sort := make([]any, 0, len(q.Sort))
		for _, s := range q.Sort {
			sort = append(sort, map[string]any{
				s.Field: map[string]any{"order": s.Order},
			})
		}
		body["sort"] = sort
	}

	if q.Match != nil {
		switch len(q.Match.Fields) {
		case 0:
			body["query"] = map[string]any{"match_all": map[string]any{}}
		case 1:
			body["query"] = map[string]any{
				"match": map[string]any{
					q.Match.Fields[0]: map[string]any{"query": q.Match.Query},
				},
			}
		default:
			fields := make([]any, 0, len(q.Match.Fields))
			for _, f := range q.Match.Fields {
				fields = append(fields, f)
			}
			body["query"] = map[string]any{
				"multi_match": map[string]any{
					"query":  q.Match.Query,
					"fields": fields,
				},
			}
		}
	}

	return body
}
