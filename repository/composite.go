package repository

import (
	"context"
	"iter"
	"sync/atomic"

	"github.com/pteich/elastic-repository/elastic"
	"github.com/pteich/elastic-repository/query"
	"github.com/pteich/elastic-repository/result"
)

// AggregateCompositeByQuery pages through all buckets of a composite
// aggregation. A page with fewer buckets than the page size is the last one;
// otherwise the next request starts after the last bucket's key.
//
// The sequence can be ranged over once. Errors, including cancellation of ctx
// between pages, are yielded and end the sequence. q's after key is restored
// when the sequence ends.
func (r *Repository) AggregateCompositeByQuery(ctx context.Context, q *query.CompositeQuery) iter.Seq2[result.CompositeResult, error] {
	var used atomic.Bool

	return func(yield func(result.CompositeResult, error) bool) {
		if used.Swap(true) {
			yield(result.CompositeResult{}, ErrConsumed)
			return
		}

		index, err := r.index(OperationRead)
		if err != nil {
			yield(result.CompositeResult{}, err)
			return
		}

		initial := q.AfterKey()
		defer q.WithAfterKey(initial)

		after := initial
		for {
			if err := ctx.Err(); err != nil {
				yield(result.CompositeResult{}, err)
				return
			}

			rows, err := r.compositePage(ctx, index, q.WithAfterKey(after))
			if err != nil {
				yield(result.CompositeResult{}, err)
				return
			}
			for _, row := range rows {
				if !yield(row, nil) {
					return
				}
			}

			if len(rows) == 0 || len(rows) < q.PageSize() {
				return
			}
			after = rows[len(rows)-1].Key
		}
	}
}

// Lookup is AggregateCompositeByQuery.
func (r *Repository) Lookup(ctx context.Context, q *query.CompositeQuery) iter.Seq2[result.CompositeResult, error] {
	return r.AggregateCompositeByQuery(ctx, q)
}

func (r *Repository) compositePage(ctx context.Context, index string, q *query.CompositeQuery) ([]result.CompositeResult, error) {
	body, err := q.Build()
	if err != nil {
		return nil, err
	}

	req := &elastic.Request{
		Index:          index,
		Type:           r.cfg.docType,
		Body:           body,
		TrackTotalHits: r.cfg.trackTotalHits,
	}
	op := &operation{name: OpAggregateCompositeByQuery, kind: ErrReadOperation, index: index, query: body}
	resp, err := r.exec(ctx, op, r.client.Search, req)
	if err != nil {
		return nil, err
	}

	rows, err := result.DecodeCompositeBuckets(resp, q.AggregationName())
	if err != nil {
		return nil, op.wrap(ErrReadOperation, err)
	}
	return rows, nil
}
