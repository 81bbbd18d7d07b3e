package query

import (
	"fmt"
)

// base holds the body fields shared by every query builder: source filtering,
// sort, size and from. T is the embedding builder so that chained calls keep
// their concrete type.
type base[T any] struct {
	self T

	selectFields []string
	selectSet    bool
	sort         *Object
	limit        *int
	offset       *int

	err error
}

func newBase[T any](self T) base[T] {
	return base[T]{self: self, sort: NewObject()}
}

// Select restricts the returned _source to fields. Duplicates are dropped,
// first occurrence wins. Select with no fields disables _source entirely.
func (b *base[T]) Select(fields ...string) T {
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	b.selectFields = out
	b.selectSet = true
	return b.self
}

// Sort adds a sort clause for field. An empty order means ascending. Sorting
// the same field again replaces the earlier entry in place.
func (b *base[T]) Sort(field string, order SortOrder) T {
	return b.SortWithOptions(field, order, nil)
}

// SortWithOptions is Sort with extra clause options such as "missing" or "mode".
func (b *base[T]) SortWithOptions(field string, order SortOrder, options map[string]any) T {
	if order == "" {
		order = Asc
	}
	if !order.Valid() {
		b.fail(fmt.Errorf("%w: invalid sort order %q for field %q", ErrInvalidArgument, order, field))
		return b.self
	}
	if field == "" {
		b.fail(fmt.Errorf("%w: sort field is empty", ErrInvalidArgument))
		return b.self
	}

	clause := NewObject().Set("order", string(order))
	for _, k := range ObjectFromMap(options).Keys() {
		if k == "order" {
			continue
		}
		clause.Set(k, options[k])
	}
	b.sort.Set(field, clause)
	return b.self
}

// Limit sets size. A second call overrides the first.
func (b *base[T]) Limit(n int) T {
	if n < 0 {
		b.fail(fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidArgument, n))
		return b.self
	}
	b.limit = &n
	return b.self
}

// Skip sets from. A second call overrides the first.
func (b *base[T]) Skip(n int) T {
	if n < 0 {
		b.fail(fmt.Errorf("%w: offset must not be negative, got %d", ErrInvalidArgument, n))
		return b.self
	}
	b.offset = &n
	return b.self
}

// Err returns the first error recorded by a chained call, if any.
func (b *base[T]) Err() error {
	return b.err
}

func (b *base[T]) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// apply writes the base fields into body, replacing any key already present.
func (b *base[T]) apply(body *Object) {
	if b.selectSet {
		if len(b.selectFields) == 0 {
			body.Set("_source", false)
		} else {
			body.Set("_source", append([]string(nil), b.selectFields...))
		}
	}
	if b.sort.Len() > 0 {
		body.Set("sort", b.sort)
	}
	if b.limit != nil {
		body.Set("size", *b.limit)
	}
	if b.offset != nil {
		body.Set("from", *b.offset)
	}
}
