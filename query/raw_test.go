package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawQuery_BaseFieldsWin(t *testing.T) {
	q := NewRawQuery(
		map[string]any{
			"query": map[string]any{"match_all": map[string]any{}},
			"size":  5,
		},
		map[string]any{"max_x": map[string]any{"max": map[string]any{"field": "x"}}},
	).Limit(20).Sort("x", Desc)

	assert.Equal(t,
		`{"query":{"match_all":{}},"size":20,"aggs":{"max_x":{"max":{"field":"x"}}},"sort":{"x":{"order":"desc"}}}`,
		encode(t, q))
}

func TestRawQuery_WithAggregations(t *testing.T) {
	sum, err := NewAggregation("amount", Sum, "total", nil)
	require.NoError(t, err)

	q := NewRawQuery(
		map[string]any{"aggs": map[string]any{"raw": map[string]any{"min": map[string]any{"field": "y"}}}},
		nil,
	).WithAggregations(sum)

	assert.Equal(t,
		`{"aggs":{"raw":{"min":{"field":"y"}},"total":{"sum":{"field":"amount"}}}}`,
		encode(t, q))
}

func TestRawQuery_Empty(t *testing.T) {
	assert.Equal(t, `{}`, encode(t, NewRawQuery(nil, nil)))
}

func TestClauseQuery(t *testing.T) {
	assert.Equal(t, `{"query":{"match_all":{}}}`, encode(t, NewClauseQuery(nil)))

	q := NewClauseQuery(map[string]any{"term": map[string]any{"a": 1}}).Select()
	assert.Equal(t, `{"query":{"term":{"a":1}},"_source":false}`, encode(t, q))
}

func TestObject_KeepsInsertionOrder(t *testing.T) {
	o := NewObject().Set("z", 1).Set("a", 2).Set("z", 3)
	o.Delete("missing")

	data, err := o.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":3,"a":2}`, string(data))
	assert.Equal(t, []string{"z", "a"}, o.Keys())

	o.Delete("z")
	assert.Equal(t, map[string]any{"a": 2}, o.Map())
}
