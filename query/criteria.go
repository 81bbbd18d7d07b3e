package query

import (
	"fmt"
)

// Criterion is a predicate that serializes to exactly one query clause. The
// set of implementations is closed: Filter, Search, BoolQuery and Query.
type Criterion interface {
	Source() (map[string]any, error)
	criterion()
}

// SearchCriterion is a criterion allowed in the search part of a Query:
// full-text searches, boolean combinators and nested queries.
type SearchCriterion interface {
	Criterion
	searchCriterion()
}

// FilterOperator selects the clause a Filter serializes to.
type FilterOperator string

const (
	OpTerm     FilterOperator = "term"
	OpTerms    FilterOperator = "terms"
	OpGT       FilterOperator = "gt"
	OpGTE      FilterOperator = "gte"
	OpLT       FilterOperator = "lt"
	OpLTE      FilterOperator = "lte"
	OpExists   FilterOperator = "exists"
	OpPrefix   FilterOperator = "prefix"
	OpWildcard FilterOperator = "wildcard"
)

// Filter is an exact-match predicate on a single field.
type Filter struct {
	field    string
	value    any
	operator FilterOperator
}

// NewFilter creates a term filter: {"term": {field: value}}.
func NewFilter(field string, value any) *Filter {
	return &Filter{field: field, value: value, operator: OpTerm}
}

// WithOperator switches the clause the filter serializes to.
func (f *Filter) WithOperator(op FilterOperator) *Filter {
	f.operator = op
	return f
}

func (f *Filter) Field() string { return f.field }
func (f *Filter) Value() any { return f.value }
func (f *Filter) Operator() FilterOperator { return f.operator }

func (f *Filter) Source() (map[string]any, error) {
	if f.field == "" {
		return nil, fmt.Errorf("%w: filter field is empty", ErrInvalidArgument)
	}
	switch f.operator {
	case OpTerm, "":
		return map[string]any{"term": map[string]any{f.field: f.value}}, nil
	case OpTerms:
		return map[string]any{"terms": map[string]any{f.field: f.value}}, nil
	case OpGT, OpGTE, OpLT, OpLTE:
		return map[string]any{"range": map[string]any{f.field: map[string]any{string(f.operator): f.value}}}, nil
	case OpExists:
		return map[string]any{"exists": map[string]any{"field": f.field}}, nil
	case OpPrefix, OpWildcard:
		return map[string]any{string(f.operator): map[string]any{f.field: f.value}}, nil
	default:
		return nil, fmt.Errorf("%w: unknown filter operator %q", ErrInvalidArgument, f.operator)
	}
}

func (*Filter) criterion() {}

// SearchMode selects the full-text clause a Search serializes to.
type SearchMode int

const (
	QueryString SearchMode = iota
	Match
)

// Search is a full-text predicate over one or more fields.
type Search struct {
	fields []string
	value  string
	mode   SearchMode
}

// NewSearch creates a full-text search. In Match mode only the first field is
// used; the engine's match clause targets a single field.
func NewSearch(fields []string, value string, mode SearchMode) *Search {
	return &Search{fields: append([]string(nil), fields...), value: value, mode: mode}
}

func (s *Search) Fields() []string { return append([]string(nil), s.fields...) }
func (s *Search) Value() string { return s.value }
func (s *Search) Mode() SearchMode { return s.mode }

func (s *Search) Source() (map[string]any, error) {
	switch s.mode {
	case QueryString:
		clause := map[string]any{"query": s.value}
		if len(s.fields) > 0 {
			clause["fields"] = s.Fields()
		}
		return map[string]any{"query_string": clause}, nil
	case Match:
		if len(s.fields) == 0 || s.fields[0] == "" {
			return nil, fmt.Errorf("%w: match search requires a field", ErrInvalidArgument)
		}
		return map[string]any{"match": map[string]any{s.fields[0]: map[string]any{"query": s.value}}}, nil
	default:
		return nil, fmt.Errorf("%w: unknown search mode %d", ErrInvalidArgument, s.mode)
	}
}

func (*Search) criterion()       {}
func (*Search) searchCriterion() {}

// BoolOperator is the key a boolean combinator wraps its children in.
type BoolOperator string

const (
	OperatorMust    BoolOperator = "must"
	OperatorShould  BoolOperator = "should"
	OperatorMustNot BoolOperator = "must_not"
)

// BoolQuery combines child criteria under one boolean operator.
type BoolQuery struct {
	operator BoolOperator
	children []Criterion
}

func Must(children ...Criterion) *BoolQuery {
	return &BoolQuery{operator: OperatorMust, children: children}
}

func Should(children ...Criterion) *BoolQuery {
	return &BoolQuery{operator: OperatorShould, children: children}
}

func MustNot(children ...Criterion) *BoolQuery {
	return &BoolQuery{operator: OperatorMustNot, children: children}
}

func (b *BoolQuery) Operator() BoolOperator { return b.operator }

// Add appends children to the combinator.
func (b *BoolQuery) Add(children ...Criterion) *BoolQuery {
	b.children = append(b.children, children...)
	return b
}

func (b *BoolQuery) Source() (map[string]any, error) {
	clauses, err := sources(b.children)
	if err != nil {
		return nil, err
	}
	return map[string]any{"bool": map[string]any{string(b.operator): clauses}}, nil
}

func (*BoolQuery) criterion()       {}
func (*BoolQuery) searchCriterion() {}

// Filters is a collection of filters scoping a composite aggregation query.
// The filters are AND-combined.
type Filters struct {
	filters []*Filter
}

func NewFilters(filters ...*Filter) *Filters {
	return &Filters{filters: filters}
}

func (f *Filters) Add(filters ...*Filter) *Filters {
	f.filters = append(f.filters, filters...)
	return f
}

func (f *Filters) Len() int {
	if f == nil {
		return 0
	}
	return len(f.filters)
}

// Source returns {"bool": {"must": [...]}}.
func (f *Filters) Source() (map[string]any, error) {
	clauses := make([]any, 0, len(f.filters))
	for _, filter := range f.filters {
		src, err := filter.Source()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, src)
	}
	return map[string]any{"bool": map[string]any{"must": clauses}}, nil
}

func sources[T Criterion](criteria []T) ([]any, error) {
	out := make([]any, 0, len(criteria))
	for i, c := range criteria {
		if isNil(Criterion(c)) {
			return nil, fmt.Errorf("%w: Argument #%d is of unknown type", ErrInvalidArgument, i+1)
		}
		src, err := c.Source()
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

func isNil(c Criterion) bool {
	switch t := c.(type) {
	case nil:
		return true
	case *Filter:
		return t == nil
	case *Search:
		return t == nil
	case *BoolQuery:
		return t == nil
	case *Query:
		return t == nil
	default:
		return false
	}
}
