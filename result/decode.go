package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrUnexpectedResponse is returned when a response lacks a part the decoder needs.
var ErrUnexpectedResponse = errors.New("unexpected response")

// Hit is a single search hit.
type Hit struct {
	ID     string
	Index  string
	Score  float64
	Source map[string]any
}

// Hits is the decoded "hits" part of a search or scroll response.
type Hits struct {
	Total    int64
	ScrollID string
	Hits     []Hit
}

// DecodeHits reads hits, the total and the scroll id from a search response.
// The total may be a plain number or an object with a "value".
func DecodeHits(resp map[string]any) (*Hits, error) {
	hits, ok := resp["hits"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing hits", ErrUnexpectedResponse)
	}

	out := &Hits{}
	out.ScrollID, _ = resp["_scroll_id"].(string)

	switch total := hits["total"].(type) {
	case map[string]any:
		out.Total = toInt64(total["value"])
	default:
		out.Total = toInt64(total)
	}

	list, _ := hits["hits"].([]any)
	out.Hits = make([]Hit, 0, len(list))
	for _, h := range list {
		m, ok := h.(map[string]any)
		if !ok {
			continue
		}
		out.Hits = append(out.Hits, decodeHit(m))
	}
	return out, nil
}

func decodeHit(m map[string]any) Hit {
	hit := Hit{}
	hit.ID, _ = m["_id"].(string)
	hit.Index, _ = m["_index"].(string)
	hit.Score = toFloat64(m["_score"])
	hit.Source, _ = m["_source"].(map[string]any)
	if hit.Source == nil {
		hit.Source = map[string]any{}
	}
	return hit
}

// DecodeDocument reads a get response. found reports whether the document exists.
func DecodeDocument(resp map[string]any) (hit Hit, found bool) {
	found, _ = resp["found"].(bool)
	return decodeHit(resp), found
}

// DecodeDocuments reads the docs of an mget response, skipping missing ones.
func DecodeDocuments(resp map[string]any) ([]Hit, error) {
	docs, ok := resp["docs"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing docs", ErrUnexpectedResponse)
	}
	out := make([]Hit, 0, len(docs))
	for _, d := range docs {
		m, ok := d.(map[string]any)
		if !ok {
			continue
		}
		if found, _ := m["found"].(bool); !found {
			continue
		}
		out = append(out, decodeHit(m))
	}
	return out, nil
}

// DecodeAggregations returns every top-level aggregation of a search response.
func DecodeAggregations(resp map[string]any) Aggregations {
	raw, _ := resp["aggregations"].(map[string]any)
	out := make(Aggregations, len(raw))
	for name, body := range raw {
		if m, ok := body.(map[string]any); ok {
			out[name] = &AggregationResult{Name: name, Raw: m}
		}
	}
	return out
}

// DecodeCompositeBuckets returns the buckets of the composite aggregation name.
func DecodeCompositeBuckets(resp map[string]any, name string) ([]CompositeResult, error) {
	agg, ok := DecodeAggregations(resp)[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing aggregation %q", ErrUnexpectedResponse, name)
	}
	raw, _ := agg.Raw["buckets"].([]any)
	out := make([]CompositeResult, 0, len(raw))
	for _, b := range raw {
		m, ok := b.(map[string]any)
		if !ok {
			continue
		}
		key, _ := m["key"].(map[string]any)
		out = append(out, CompositeResult{
			Key:             key,
			DocCount:        toInt64(m["doc_count"]),
			AggregationName: name,
		})
	}
	return out, nil
}

// Count reads the "count" of a count response.
func Count(resp map[string]any) (int64, error) {
	v, ok := resp["count"]
	if !ok {
		return 0, fmt.Errorf("%w: missing count", ErrUnexpectedResponse)
	}
	return toInt64(v), nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, _ := n.Float64()
			return int64(f)
		}
		return i
	}
	return 0
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
