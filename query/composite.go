package query

import (
	"fmt"
)

// DefaultCompositeSize is the page size of a composite aggregation when none is set.
const DefaultCompositeSize = 100

// SourceProperty is one grouping key of a composite aggregation.
type SourceProperty struct {
	Name  string
	Field string
}

// Sources is the ordered list of grouping keys. Order determines the shape of
// bucket keys and of the after key.
type Sources struct {
	properties []SourceProperty
}

func NewSources(properties ...SourceProperty) *Sources {
	return &Sources{properties: properties}
}

// Add appends a source named name over field.
func (s *Sources) Add(name, field string) *Sources {
	s.properties = append(s.properties, SourceProperty{Name: name, Field: field})
	return s
}

func (s *Sources) Properties() []SourceProperty {
	if s == nil {
		return nil
	}
	return append([]SourceProperty(nil), s.properties...)
}

func (s *Sources) Len() int {
	if s == nil {
		return 0
	}
	return len(s.properties)
}

func (s *Sources) build() ([]any, error) {
	out := make([]any, 0, len(s.properties))
	for i, p := range s.properties {
		if p.Name == "" || p.Field == "" {
			return nil, fmt.Errorf("%w: composite source #%d needs a name and a field", ErrInvalidArgument, i+1)
		}
		out = append(out, map[string]any{
			p.Name: map[string]any{
				"terms": map[string]any{"field": p.Field, "missing_bucket": false},
			},
		})
	}
	return out, nil
}

// CompositeAggregationBuilder assembles a CompositeQuery.
type CompositeAggregationBuilder struct {
	name    string
	filters *Filters
	sources *Sources
	size    int
}

func NewCompositeAggregationBuilder(name string) *CompositeAggregationBuilder {
	return &CompositeAggregationBuilder{name: name, size: DefaultCompositeSize}
}

func (b *CompositeAggregationBuilder) Name(name string) *CompositeAggregationBuilder {
	b.name = name
	return b
}

// Filters scopes the aggregation to documents matching all filters.
func (b *CompositeAggregationBuilder) Filters(filters *Filters) *CompositeAggregationBuilder {
	b.filters = filters
	return b
}

func (b *CompositeAggregationBuilder) Sources(sources *Sources) *CompositeAggregationBuilder {
	b.sources = sources
	return b
}

// Size sets the number of buckets per page.
func (b *CompositeAggregationBuilder) Size(size int) *CompositeAggregationBuilder {
	b.size = size
	return b
}

func (b *CompositeAggregationBuilder) Build() (*CompositeQuery, error) {
	if b.name == "" {
		return nil, fmt.Errorf("%w: composite aggregation requires a name", ErrInvalidArgument)
	}
	if b.sources.Len() == 0 {
		return nil, fmt.Errorf("%w: composite aggregation %q requires at least one source", ErrInvalidArgument, b.name)
	}
	if b.size <= 0 {
		return nil, fmt.Errorf("%w: composite page size must be positive, got %d", ErrInvalidArgument, b.size)
	}
	q := &CompositeQuery{
		name:    b.name,
		filters: b.filters,
		sources: NewSources(b.sources.Properties()...),
		size:    b.size,
	}
	q.base = newBase(q)
	return q, nil
}

// CompositeQuery is a search body carrying a single composite aggregation. It
// is the unit of after-key pagination.
type CompositeQuery struct {
	base[*CompositeQuery]

	name     string
	filters  *Filters
	sources  *Sources
	size     int
	afterKey map[string]any
}

// WithAfterKey sets the key of the last bucket seen. nil starts from the
// first page.
func (q *CompositeQuery) WithAfterKey(key map[string]any) *CompositeQuery {
	q.afterKey = key
	return q
}

func (q *CompositeQuery) AfterKey() map[string]any { return q.afterKey }

func (q *CompositeQuery) AggregationName() string { return q.name }

func (q *CompositeQuery) PageSize() int { return q.size }

func (q *CompositeQuery) Build() (*Object, error) {
	if q.err != nil {
		return nil, q.err
	}
	body := NewObject()
	if q.filters.Len() > 0 {
		scope, err := q.filters.Source()
		if err != nil {
			return nil, err
		}
		body.Set("query", scope)
	}

	sources, err := q.sources.build()
	if err != nil {
		return nil, err
	}
	composite := NewObject().
		Set("size", q.size).
		Set("sources", sources)
	if q.afterKey != nil {
		composite.Set("after", q.afterKey)
	}
	body.Set("aggs", NewObject().Set(q.name, NewObject().Set("composite", composite)))

	q.apply(body)
	return body, nil
}
