package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, b Builder) string {
	t.Helper()

	data, err := Encode(b)
	require.NoError(t, err)
	return string(data)
}

func TestQuery_EndToEnd(t *testing.T) {
	q := MustNew(NewFilter("status", "active")).
		Select("name").
		Sort("name", Asc).
		Limit(10)

	assert.Equal(t,
		`{"query":{"bool":{"filter":{"bool":{"must":[{"term":{"status":"active"}}]}}}},"_source":["name"],"sort":{"name":{"order":"asc"}},"size":10}`,
		encode(t, q))
}

func TestQuery_Empty(t *testing.T) {
	q, err := New()
	require.NoError(t, err)

	assert.Equal(t, `{}`, encode(t, q))
}

func TestQuery_FiltersAlwaysNestedInMust(t *testing.T) {
	tests := []struct {
		name    string
		filters []*Filter
		want    string
	}{
		{
			"one filter",
			[]*Filter{NewFilter("a", 1)},
			`{"query":{"bool":{"filter":{"bool":{"must":[{"term":{"a":1}}]}}}}}`,
		},
		{
			"five filters",
			[]*Filter{NewFilter("a", 1), NewFilter("b", 2), NewFilter("c", 3), NewFilter("d", 4), NewFilter("e", 5)},
			`{"query":{"bool":{"filter":{"bool":{"must":[{"term":{"a":1}},{"term":{"b":2}},{"term":{"c":3}},{"term":{"d":4}},{"term":{"e":5}}]}}}}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := MustNew().Filter(tt.filters...)
			assert.Equal(t, tt.want, encode(t, q))
		})
	}
}

func TestQuery_SearchOperator(t *testing.T) {
	search := NewSearch([]string{"title", "body"}, "golang", QueryString)

	q := MustNew(search)
	assert.Equal(t,
		`{"query":{"bool":{"should":[{"query_string":{"fields":["title","body"],"query":"golang"}}],"minimum_should_match":1}}}`,
		encode(t, q))

	q.SearchOperator(OperatorMust)
	assert.Equal(t,
		`{"query":{"bool":{"must":[{"query_string":{"fields":["title","body"],"query":"golang"}}]}}}`,
		encode(t, q))
}

func TestQuery_SearchOperatorInvalid(t *testing.T) {
	q := MustNew().SearchOperator(OperatorMustNot)

	_, err := q.Build()
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "must_not")
}

func TestQuery_FiltersAndSearches(t *testing.T) {
	q := MustNew(
		NewFilter("lang", "en"),
		NewSearch([]string{"title"}, "release", Match),
	).MinScore(0.5)

	assert.Equal(t,
		`{"query":{"bool":{"filter":{"bool":{"must":[{"term":{"lang":"en"}}]}},"should":[{"match":{"title":{"query":"release"}}}],"minimum_should_match":1}},"min_score":0.5}`,
		encode(t, q))
}

func TestQuery_UnknownCriterion(t *testing.T) {
	var nilFilter *Filter

	_, err := New(NewFilter("a", 1), NewSearch(nil, "x", QueryString), nilFilter)
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "Argument #3 is of unknown type")

	_, err = New(nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "Argument #1 is of unknown type")
}

func TestQuery_SearchRejectsNil(t *testing.T) {
	var nilSearch *Search

	_, err := MustNew().Search(nilSearch).Build()
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "Search, BoolQuery or a nested Query")
}

func TestQuery_Nested(t *testing.T) {
	nested := MustNew(NewSearch([]string{"comments.text"}, "great", Match)).
		Option(OptionPath, "comments").
		Option(OptionScoreMode, "avg").
		Option(OptionIgnoreUnmapped, true)

	q := MustNew().Search(nested).SearchOperator(OperatorMust)

	assert.Equal(t,
		`{"query":{"bool":{"must":[{"nested":{"path":"comments","score_mode":"avg","ignore_unmapped":true,"query":{"bool":{"should":[{"match":{"comments.text":{"query":"great"}}}],"minimum_should_match":1}}}}]}}}`,
		encode(t, q))
}

func TestQuery_NestedEmptyUsesMatchAll(t *testing.T) {
	nested := MustNew().Option(OptionPath, "tags")

	src, err := nested.Source()
	require.NoError(t, err)

	q := MustNew().Search(nested)
	assert.Equal(t,
		`{"query":{"bool":{"should":[{"nested":{"path":"tags","query":{"match_all":{}}}}],"minimum_should_match":1}}}`,
		encode(t, q))
	assert.Contains(t, src, "nested")
}

func TestQuery_NestedRequiresPath(t *testing.T) {
	q := MustNew().Search(MustNew(NewFilter("a", 1)))

	_, err := q.Build()
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), OptionPath)
}

func TestQuery_Select(t *testing.T) {
	tests := []struct {
		name  string
		apply func(q *Query)
		want  string
	}{
		{"never selected", func(*Query) {}, `{}`},
		{"empty select", func(q *Query) { q.Select() }, `{"_source":false}`},
		{"deduplicated", func(q *Query) { q.Select("foo", "foo", "bar") }, `{"_source":["foo","bar"]}`},
		{"last call wins", func(q *Query) { q.Select("a").Select("b") }, `{"_source":["b"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := MustNew()
			tt.apply(q)
			assert.Equal(t, tt.want, encode(t, q))
		})
	}
}

func TestQuery_Sort(t *testing.T) {
	q := MustNew().
		Sort("created", Desc).
		Sort("name", "").
		SortWithOptions("created", Asc, map[string]any{"missing": "_last", "order": "ignored"})

	assert.Equal(t,
		`{"sort":{"created":{"order":"asc","missing":"_last"},"name":{"order":"asc"}}}`,
		encode(t, q))
}

func TestQuery_SortInvalidOrder(t *testing.T) {
	_, err := MustNew().Sort("name", SortOrder("sideways")).Build()
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "sideways")
}

func TestQuery_LimitAndSkipOverride(t *testing.T) {
	q := MustNew().Limit(10).Skip(5).Limit(20).Skip(40)

	assert.Equal(t, `{"size":20,"from":40}`, encode(t, q))
}

func TestQuery_NegativeLimit(t *testing.T) {
	q := MustNew().Limit(-1)

	require.ErrorIs(t, q.Err(), ErrInvalidArgument)
	_, err := q.Build()
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestQuery_AggregationsMergedByName(t *testing.T) {
	first, err := NewAggregation("price", Avg, "price", nil)
	require.NoError(t, err)
	second, err := NewAggregation("price", Max, "price", nil)
	require.NoError(t, err)
	other, err := NewAggregation("user", Cardinality, "users", nil)
	require.NoError(t, err)

	q := MustNew().Aggregate(first, other).Aggregate(second)

	assert.Equal(t,
		`{"aggs":{"price":{"max":{"field":"price"}},"users":{"cardinality":{"field":"user"}}}}`,
		encode(t, q))
}

func TestParseSortOrder(t *testing.T) {
	o, err := ParseSortOrder(" DESC ")
	require.NoError(t, err)
	assert.Equal(t, Desc, o)

	_, err = ParseSortOrder("up")
	require.ErrorIs(t, err, ErrInvalidArgument)
}
