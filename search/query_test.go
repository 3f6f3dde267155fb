package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSort(t *testing.T) {
	assert.Equal(t, SortClause{Field: "imdb_rating", Order: OrderDesc}, ParseSort("imdb_rating"))
	assert.Equal(t, SortClause{Field: "imdb_rating", Order: OrderAsc}, ParseSort("-imdb_rating"))
	assert.Equal(t, SortClause{Field: "id", Order: OrderAsc}, ParseSort("-id"))
}

func TestListQuery_Body(t *testing.T) {
	q := ListQuery(10, 3, ParseSort("-title"))
	assert.Equal(t, 30, q.From)

	raw, err := json.Marshal(q.Body())
	require.NoError(t, err)
	assert.JSONEq(t, `{"size":10,"from":30,"sort":[{"title":{"order":"asc"}}]}`, string(raw))
}

func TestMatchQuery_Body(t *testing.T) {
	single, err := json.Marshal(MatchQuery(5, 0, "The Star", "title").Body())
	require.NoError(t, err)
	assert.JSONEq(t, `{"size":5,"from":0,"query":{"match":{"title":{"query":"The Star"}}}}`, string(single))

	multi, err := json.Marshal(MatchQuery(5, 1, "jim", "role", "name").Body())
	require.NoError(t, err)
	assert.JSONEq(t, `{"size":5,"from":5,"query":{"multi_match":{"query":"jim","fields":["role","name"]}}}`, string(multi))
}

func TestMatchQuery_ClonesFields(t *testing.T) {
	fields := []string{"role", "name"}
	q := MatchQuery(5, 0, "jim", fields...)
	fields[0] = "changed"
	assert.Equal(t, []string{"role", "name"}, q.Match.Fields)
}
