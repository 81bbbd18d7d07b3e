package result

import (
	"fmt"
	"strconv"
)

// Aggregations maps top-level aggregation names to their results.
type Aggregations map[string]*AggregationResult

// AggregationResult wraps the raw body of one aggregation in a response.
type AggregationResult struct {
	Name string
	Raw  map[string]any
}

// Value returns the "value" of a single-value metric aggregation.
func (a *AggregationResult) Value() (any, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a.Raw["value"]
	return v, ok
}

func (a *AggregationResult) DocCount() int64 {
	if a == nil {
		return 0
	}
	return toInt64(a.Raw["doc_count"])
}

// Buckets decodes the buckets of a bucket aggregation. Keyed buckets, as
// produced by a filters aggregation, come back in key order with Key set to
// the bucket name.
func (a *AggregationResult) Buckets() []Bucket {
	if a == nil {
		return nil
	}
	switch raw := a.Raw["buckets"].(type) {
	case []any:
		out := make([]Bucket, 0, len(raw))
		for _, b := range raw {
			if m, ok := b.(map[string]any); ok {
				out = append(out, newBucket(m["key"], m))
			}
		}
		return out
	case map[string]any:
		out := make([]Bucket, 0, len(raw))
		for _, k := range sortedKeys(raw) {
			if m, ok := raw[k].(map[string]any); ok {
				out = append(out, newBucket(k, m))
			}
		}
		return out
	}
	return nil
}

// Sub returns a sub-aggregation by name, or nil.
func (a *AggregationResult) Sub(name string) *AggregationResult {
	if a == nil {
		return nil
	}
	return sub(a.Raw, name)
}

// Bucket is one group of a bucket aggregation.
type Bucket struct {
	Key         any
	KeyAsString string
	DocCount    int64
	Raw         map[string]any
}

func newBucket(key any, raw map[string]any) Bucket {
	b := Bucket{Key: key, DocCount: toInt64(raw["doc_count"]), Raw: raw}
	if s, ok := raw["key_as_string"].(string); ok {
		b.KeyAsString = s
	} else {
		b.KeyAsString = KeyString(key)
	}
	return b
}

func (b Bucket) Sub(name string) *AggregationResult {
	return sub(b.Raw, name)
}

func sub(raw map[string]any, name string) *AggregationResult {
	m, ok := raw[name].(map[string]any)
	if !ok {
		return nil
	}
	return &AggregationResult{Name: name, Raw: m}
}

// CompositeResult is one bucket of a composite aggregation.
type CompositeResult struct {
	Key             map[string]any
	DocCount        int64
	AggregationName string
}

// KeyString renders a bucket key, which the engine sends as a string, number
// or boolean.
func KeyString(key any) string {
	switch v := key.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}
