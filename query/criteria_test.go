package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriteria_Source(t *testing.T) {
	tests := []struct {
		name      string
		criterion Criterion
		want      string
	}{
		{"term", NewFilter("status", "active"), `{"term":{"status":"active"}}`},
		{"terms", NewFilter("id", []string{"a", "b"}).WithOperator(OpTerms), `{"terms":{"id":["a","b"]}}`},
		{"range", NewFilter("age", 18).WithOperator(OpGTE), `{"range":{"age":{"gte":18}}}`},
		{"exists", NewFilter("email", nil).WithOperator(OpExists), `{"exists":{"field":"email"}}`},
		{"prefix", NewFilter("name", "jo").WithOperator(OpPrefix), `{"prefix":{"name":"jo"}}`},
		{"wildcard", NewFilter("name", "j*n").WithOperator(OpWildcard), `{"wildcard":{"name":"j*n"}}`},
		{"query string", NewSearch([]string{"a", "b"}, "x AND y", QueryString), `{"query_string":{"fields":["a","b"],"query":"x AND y"}}`},
		{"query string without fields", NewSearch(nil, "x", QueryString), `{"query_string":{"query":"x"}}`},
		{"match", NewSearch([]string{"title"}, "hello", Match), `{"match":{"title":{"query":"hello"}}}`},
		{"match uses first field only", NewSearch([]string{"title", "body"}, "hello", Match), `{"match":{"title":{"query":"hello"}}}`},
		{"must", Must(NewFilter("a", 1), NewFilter("b", 2)), `{"bool":{"must":[{"term":{"a":1}},{"term":{"b":2}}]}}`},
		{"should", Should(NewFilter("a", 1)), `{"bool":{"should":[{"term":{"a":1}}]}}`},
		{"must not", MustNot(NewFilter("a", 1)), `{"bool":{"must_not":[{"term":{"a":1}}]}}`},
		{
			"nested combinators",
			Must(Should(NewFilter("a", 1)), MustNot(NewSearch([]string{"t"}, "x", Match))),
			`{"bool":{"must":[{"bool":{"should":[{"term":{"a":1}}]}},{"bool":{"must_not":[{"match":{"t":{"query":"x"}}}]}}]}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := tt.criterion.Source()
			require.NoError(t, err)
			data, err := json.Marshal(src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestCriteria_Errors(t *testing.T) {
	var nilFilter *Filter

	tests := []struct {
		name      string
		criterion Criterion
	}{
		{"empty filter field", NewFilter("", 1)},
		{"unknown operator", NewFilter("a", 1).WithOperator(FilterOperator("near"))},
		{"match without field", NewSearch(nil, "x", Match)},
		{"unknown mode", NewSearch([]string{"a"}, "x", SearchMode(9))},
		{"nil child", Must(NewFilter("a", 1), nilFilter)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.criterion.Source()
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestBoolQuery_UnknownChildPosition(t *testing.T) {
	_, err := Should(NewFilter("a", 1), nil).Source()
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "Argument #2")
}

func TestFilters(t *testing.T) {
	var empty *Filters
	assert.Equal(t, 0, empty.Len())

	f := NewFilters(NewFilter("a", 1)).Add(NewFilter("b", 2))
	assert.Equal(t, 2, f.Len())

	src, err := f.Source()
	require.NoError(t, err)
	data, err := json.Marshal(src)
	require.NoError(t, err)
	assert.Equal(t, `{"bool":{"must":[{"term":{"a":1}},{"term":{"b":2}}]}}`, string(data))
}
