package query

import (
	"fmt"

	"github.com/google/uuid"
)

// AggregationType identifies a metric or bucket aggregation. The set of
// accepted values is closed; see Valid.
type AggregationType string

// Metric aggregations.
const (
	Avg                     AggregationType = "avg"
	Sum                     AggregationType = "sum"
	Min                     AggregationType = "min"
	Max                     AggregationType = "max"
	Stats                   AggregationType = "stats"
	ExtendedStats           AggregationType = "extended_stats"
	Cardinality             AggregationType = "cardinality"
	ValueCount              AggregationType = "value_count"
	Percentiles             AggregationType = "percentiles"
	PercentileRanks         AggregationType = "percentile_ranks"
	MedianAbsoluteDeviation AggregationType = "median_absolute_deviation"
	WeightedAvg             AggregationType = "weighted_avg"
	TopHits                 AggregationType = "top_hits"
	GeoBounds               AggregationType = "geo_bounds"
	GeoCentroid             AggregationType = "geo_centroid"
	ScriptedMetric          AggregationType = "scripted_metric"
)

// Bucket aggregations.
const (
	Terms             AggregationType = "terms"
	MultiTerms        AggregationType = "multi_terms"
	RareTerms         AggregationType = "rare_terms"
	SignificantTerms  AggregationType = "significant_terms"
	Histogram         AggregationType = "histogram"
	DateHistogram     AggregationType = "date_histogram"
	AutoDateHistogram AggregationType = "auto_date_histogram"
	Range             AggregationType = "range"
	DateRange         AggregationType = "date_range"
	IPRange           AggregationType = "ip_range"
	FilterBucket      AggregationType = "filter"
	FiltersBucket     AggregationType = "filters"
	Missing           AggregationType = "missing"
	Nested            AggregationType = "nested"
	ReverseNested     AggregationType = "reverse_nested"
	Global            AggregationType = "global"
	Composite         AggregationType = "composite"
	GeoHashGrid       AggregationType = "geohash_grid"
	Sampler           AggregationType = "sampler"
)

func (t AggregationType) IsMetric() bool {
	switch t {
	case Avg, Sum, Min, Max, Stats, ExtendedStats, Cardinality, ValueCount, Percentiles,
		PercentileRanks, MedianAbsoluteDeviation, WeightedAvg, TopHits, GeoBounds, GeoCentroid,
		ScriptedMetric:
		return true
	}
	return false
}

func (t AggregationType) IsBucket() bool {
	switch t {
	case Terms, MultiTerms, RareTerms, SignificantTerms, Histogram, DateHistogram,
		AutoDateHistogram, Range, DateRange, IPRange, FilterBucket, FiltersBucket, Missing,
		Nested, ReverseNested, Global, Composite, GeoHashGrid, Sampler:
		return true
	}
	return false
}

func (t AggregationType) Valid() bool {
	return t.IsMetric() || t.IsBucket()
}

type aggregationKind int

const (
	fieldAggregation aggregationKind = iota
	globalAggregation
	fieldlessAggregation
)

// Aggregation is a named metric or bucket aggregation, optionally carrying
// nested sub-aggregations.
type Aggregation struct {
	name    string
	typ     AggregationType
	field   string
	options map[string]any
	nested  []*Aggregation
	kind    aggregationKind
}

// NewAggregation creates {name: {typ: {"field": field, ...options}}}. An empty
// name is replaced by a generated one.
func NewAggregation(field string, typ AggregationType, name string, options map[string]any) (*Aggregation, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: invalid aggregation type %q", ErrInvalidArgument, typ)
	}
	if field == "" {
		return nil, fmt.Errorf("%w: aggregation %q requires a field", ErrInvalidArgument, typ)
	}
	return &Aggregation{
		name:    nameOrGenerated(name),
		typ:     typ,
		field:   field,
		options: options,
		kind:    fieldAggregation,
	}, nil
}

// NewGlobalAggregation creates {name: {"global": {}, ...options}}.
func NewGlobalAggregation(name string, options map[string]any) *Aggregation {
	return &Aggregation{
		name:    nameOrGenerated(name),
		typ:     Global,
		options: options,
		kind:    globalAggregation,
	}
}

// NewFieldlessAggregation creates {name: {typ: options}} for bucket types that
// take structured input instead of a single field, such as filters.
func NewFieldlessAggregation(typ AggregationType, name string, options map[string]any) (*Aggregation, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: invalid aggregation type %q", ErrInvalidArgument, typ)
	}
	return &Aggregation{
		name:    nameOrGenerated(name),
		typ:     typ,
		options: options,
		kind:    fieldlessAggregation,
	}, nil
}

func nameOrGenerated(name string) string {
	if name != "" {
		return name
	}
	return "agg_" + uuid.NewString()
}

func (a *Aggregation) Name() string { return a.name }
func (a *Aggregation) Type() AggregationType { return a.typ }
func (a *Aggregation) Field() string { return a.field }

// Nest appends child as a sub-aggregation. Children serialize in insertion order.
func (a *Aggregation) Nest(children ...*Aggregation) *Aggregation {
	a.nested = append(a.nested, children...)
	return a
}

// SetOption sets a single option on the aggregation body. A field
// aggregation keeps its own field over a "field" option.
func (a *Aggregation) SetOption(key string, value any) *Aggregation {
	if a.options == nil {
		a.options = make(map[string]any)
	}
	a.options[key] = value
	return a
}

// Body returns the aggregation's body, without its name.
func (a *Aggregation) Body() *Object {
	body := NewObject()
	switch a.kind {
	case globalAggregation:
		body.Set(string(Global), map[string]any{})
		for _, k := range ObjectFromMap(a.options).Keys() {
			body.Set(k, a.options[k])
		}
	case fieldlessAggregation:
		inner := make(map[string]any, len(a.options))
		for k, v := range a.options {
			inner[k] = v
		}
		body.Set(string(a.typ), inner)
	default:
		inner := make(map[string]any, len(a.options)+1)
		for k, v := range a.options {
			inner[k] = v
		}
		inner["field"] = a.field
		body.Set(string(a.typ), inner)
	}
	if len(a.nested) > 0 {
		body.Set("aggs", aggregationsObject(a.nested))
	}
	return body
}

// Source returns {name: body}.
func (a *Aggregation) Source() *Object {
	return NewObject().Set(a.name, a.Body())
}

func aggregationsObject(aggs []*Aggregation) *Object {
	o := NewObject()
	for _, agg := range aggs {
		o.Set(agg.name, agg.Body())
	}
	return o
}
