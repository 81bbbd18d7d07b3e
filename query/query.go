package query

import (
	"fmt"
)

// Options understood by a Query used as a nested criterion.
const (
	OptionPath           = "path"
	OptionScoreMode      = "score_mode"
	OptionIgnoreUnmapped = "ignore_unmapped"
)

// Query is the full query builder. Filters are always AND-combined, searches are
// combined with the search operator (should by default).
//
// A Query is itself a SearchCriterion: passed to another Query's Search it
// serializes as a nested query over the path set with OptionPath.
type Query struct {
	base[*Query]

	filters      []*Filter
	searches     []SearchCriterion
	aggregations []*Aggregation
	minScore     *float64
	operator     BoolOperator
	options      map[string]any
}

// New creates a Query from filters and search criteria. A criterion that is
// neither a *Filter nor a SearchCriterion, such as nil, is rejected with its
// 1-based position in criteria.
func New(criteria ...Criterion) (*Query, error) {
	q := newQuery()
	for i, c := range criteria {
		switch t := c.(type) {
		case *Filter:
			if t != nil {
				q.filters = append(q.filters, t)
				continue
			}
		case SearchCriterion:
			if !isNil(t) {
				q.searches = append(q.searches, t)
				continue
			}
		}
		return nil, fmt.Errorf("%w: Argument #%d is of unknown type", ErrInvalidArgument, i+1)
	}
	return q, nil
}

// MustNew is New for statically known criteria. It panics on error.
func MustNew(criteria ...Criterion) *Query {
	q, err := New(criteria...)
	if err != nil {
		panic(err)
	}
	return q
}

func newQuery() *Query {
	q := &Query{operator: OperatorShould, options: make(map[string]any)}
	q.base = newBase(q)
	return q
}

func (q *Query) Filter(filters ...*Filter) *Query {
	for _, f := range filters {
		if f == nil {
			q.fail(fmt.Errorf("%w: filter is nil", ErrInvalidArgument))
			continue
		}
		q.filters = append(q.filters, f)
	}
	return q
}

// Search adds full-text, boolean or nested criteria to the search part.
func (q *Query) Search(criteria ...SearchCriterion) *Query {
	for _, c := range criteria {
		if isNil(c) {
			q.fail(fmt.Errorf("%w: search criterion must be one of Search, BoolQuery or a nested Query", ErrInvalidArgument))
			continue
		}
		q.searches = append(q.searches, c)
	}
	return q
}

// Aggregate adds aggregations. An aggregation with the name of an existing one
// replaces it.
func (q *Query) Aggregate(aggs ...*Aggregation) *Query {
	for _, agg := range aggs {
		if agg == nil {
			q.fail(fmt.Errorf("%w: aggregation is nil", ErrInvalidArgument))
			continue
		}
		q.aggregations = mergeAggregation(q.aggregations, agg)
	}
	return q
}

func mergeAggregation(aggs []*Aggregation, agg *Aggregation) []*Aggregation {
	for i, existing := range aggs {
		if existing.name == agg.name {
			aggs[i] = agg
			return aggs
		}
	}
	return append(aggs, agg)
}

func (q *Query) MinScore(score float64) *Query {
	q.minScore = &score
	return q
}

// SearchOperator sets how searches are combined. Only must and should are
// accepted.
func (q *Query) SearchOperator(op BoolOperator) *Query {
	if op != OperatorMust && op != OperatorShould {
		q.fail(fmt.Errorf("%w: invalid search operator %q, expected %q or %q", ErrInvalidArgument, op, OperatorMust, OperatorShould))
		return q
	}
	q.operator = op
	return q
}

// Option sets a nested-query option, see OptionPath.
func (q *Query) Option(key string, value any) *Query {
	q.options[key] = value
	return q
}

func (q *Query) Filters() []*Filter { return append([]*Filter(nil), q.filters...) }
func (q *Query) Searches() []SearchCriterion { return append([]SearchCriterion(nil), q.searches...) }
func (q *Query) Aggregations() []*Aggregation { return append([]*Aggregation(nil), q.aggregations...) }
func (q *Query) Operator() BoolOperator { return q.operator }

// Build assembles the search body.
func (q *Query) Build() (*Object, error) {
	if q.err != nil {
		return nil, q.err
	}
	body := NewObject()

	clause, err := q.boolClause()
	if err != nil {
		return nil, err
	}
	if clause != nil {
		body.Set("query", NewObject().Set("bool", clause))
	}
	if len(q.aggregations) > 0 {
		body.Set("aggs", aggregationsObject(q.aggregations))
	}
	if q.minScore != nil {
		body.Set("min_score", *q.minScore)
	}

	q.apply(body)
	return body, nil
}

// boolClause returns nil when the query has neither filters nor searches.
func (q *Query) boolClause() (*Object, error) {
	if len(q.filters) == 0 && len(q.searches) == 0 {
		return nil, nil
	}
	clause := NewObject()
	if len(q.filters) > 0 {
		must, err := sources(q.filters)
		if err != nil {
			return nil, err
		}
		clause.Set("filter", map[string]any{"bool": map[string]any{"must": must}})
	}
	if len(q.searches) > 0 {
		searches, err := sources(q.searches)
		if err != nil {
			return nil, err
		}
		clause.Set(string(q.operator), searches)
		if q.operator == OperatorShould {
			clause.Set("minimum_should_match", 1)
		}
	}
	return clause, nil
}

// Source serializes the query as a nested clause. OptionPath is required.
func (q *Query) Source() (map[string]any, error) {
	if q.err != nil {
		return nil, q.err
	}
	path, _ := q.options[OptionPath].(string)
	if path == "" {
		return nil, fmt.Errorf("%w: nested query requires option %q", ErrInvalidArgument, OptionPath)
	}

	nested := NewObject().Set("path", path)
	if mode, ok := q.options[OptionScoreMode]; ok {
		nested.Set(OptionScoreMode, mode)
	}
	if ignore, ok := q.options[OptionIgnoreUnmapped]; ok {
		nested.Set(OptionIgnoreUnmapped, ignore)
	}

	clause, err := q.boolClause()
	if err != nil {
		return nil, err
	}
	if clause == nil {
		nested.Set("query", map[string]any{"match_all": map[string]any{}})
	} else {
		nested.Set("query", NewObject().Set("bool", clause))
	}
	return map[string]any{"nested": nested}, nil
}

func (*Query) criterion()       {}
func (*Query) searchCriterion() {}
