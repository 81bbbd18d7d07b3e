package query

// RawQuery sends a literal body. Aggregations are merged under "aggs" and the
// shared select, sort, limit and offset fields are applied last, so they win
// over keys of the same name in the body.
type RawQuery struct {
	base[*RawQuery]

	body         map[string]any
	aggregations map[string]any
}

func NewRawQuery(body, aggregations map[string]any) *RawQuery {
	q := &RawQuery{body: body, aggregations: make(map[string]any, len(aggregations))}
	for k, v := range aggregations {
		q.aggregations[k] = v
	}
	q.base = newBase(q)
	return q
}

// WithAggregations merges typed aggregations into the raw ones by name.
func (q *RawQuery) WithAggregations(aggs ...*Aggregation) *RawQuery {
	for _, agg := range aggs {
		if agg == nil {
			continue
		}
		q.aggregations[agg.Name()] = agg.Body()
	}
	return q
}

func (q *RawQuery) Build() (*Object, error) {
	if q.err != nil {
		return nil, q.err
	}
	body := ObjectFromMap(q.body)
	if len(q.aggregations) > 0 {
		aggs := NewObject()
		if existing, ok := q.body["aggs"].(map[string]any); ok {
			for _, k := range ObjectFromMap(existing).Keys() {
				aggs.Set(k, existing[k])
			}
		}
		for _, k := range ObjectFromMap(q.aggregations).Keys() {
			aggs.Set(k, q.aggregations[k])
		}
		body.Set("aggs", aggs)
	}
	q.apply(body)
	return body, nil
}

// ClauseQuery wraps a single query clause. Unlike Query, an empty clause is
// sent as match_all rather than omitted.
type ClauseQuery struct {
	base[*ClauseQuery]

	clause map[string]any
}

func NewClauseQuery(clause map[string]any) *ClauseQuery {
	q := &ClauseQuery{clause: clause}
	q.base = newBase(q)
	return q
}

func (q *ClauseQuery) Build() (*Object, error) {
	if q.err != nil {
		return nil, q.err
	}
	body := NewObject()
	if len(q.clause) == 0 {
		body.Set("query", map[string]any{"match_all": map[string]any{}})
	} else {
		body.Set("query", q.clause)
	}
	q.apply(body)
	return body, nil
}
