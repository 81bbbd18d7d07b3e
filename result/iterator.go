// Package result holds typed views over decoded search responses.
package result

import (
	"iter"
)

// Iterator is a materialized page of documents. It is immutable and can be
// ranged over any number of times; the scroll id it carries is plain data.
type Iterator struct {
	ids      []string
	docs     []any
	total    int64
	scrollID string
}

// NewIterator pairs ids with docs by position. Both slices must have the same
// length.
func NewIterator(ids []string, docs []any, total int64, scrollID string) *Iterator {
	return &Iterator{
		ids:      append([]string(nil), ids...),
		docs:     append([]any(nil), docs...),
		total:    total,
		scrollID: scrollID,
	}
}

// All yields document id and document, in response order.
func (it *Iterator) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if it == nil {
			return
		}
		for i, doc := range it.docs {
			if !yield(it.ids[i], doc) {
				return
			}
		}
	}
}

func (it *Iterator) Documents() []any {
	if it == nil {
		return nil
	}
	return append([]any(nil), it.docs...)
}

func (it *Iterator) IDs() []string {
	if it == nil {
		return nil
	}
	return append([]string(nil), it.ids...)
}

// Len is the number of documents in this page.
func (it *Iterator) Len() int {
	if it == nil {
		return 0
	}
	return len(it.docs)
}

// Total is the number of matching documents reported by the engine, which may
// exceed Len.
func (it *Iterator) Total() int64 {
	if it == nil {
		return 0
	}
	return it.total
}

// ScrollID is empty unless the search opened a scroll context.
func (it *Iterator) ScrollID() string {
	if it == nil {
		return ""
	}
	return it.scrollID
}
