package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/pteich/elastic-repository/elastic"
)

// SaveBulk indexes all documents in one bulk request, in id order. Empty input
// sends nothing.
func (r *Repository) SaveBulk(ctx context.Context, documents map[string]any) error {
	if len(documents) == 0 {
		return nil
	}
	index, err := r.index(OperationWrite)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(documents))
	for id := range documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	normalized := make(map[string]map[string]any, len(documents))
	ops := make([]any, 0, 2*len(ids))
	for _, id := range ids {
		doc, err := r.cfg.normalize(documents[id])
		if err != nil {
			return fmt.Errorf("document %s: %w", id, err)
		}
		normalized[id] = doc
		ops = append(ops, action("index", index, id), doc)
	}

	if err := r.bulk(ctx, OpSaveBulk, index, ops, len(ids)); err != nil {
		return err
	}
	r.hooks.PostSaveBulk(ctx, normalized)
	return nil
}

// DeleteBulk deletes all ids in one bulk request. Empty input sends nothing.
func (r *Repository) DeleteBulk(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	index, err := r.index(OperationWrite)
	if err != nil {
		return err
	}

	ops := make([]any, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, action("delete", index, id))
	}

	if err := r.bulk(ctx, OpDeleteBulk, index, ops, len(ids)); err != nil {
		return err
	}
	r.hooks.PostDeleteBulk(ctx, append([]string(nil), ids...))
	return nil
}

func action(name, index, id string) map[string]any {
	return map[string]any{name: map[string]any{"_index": index, "_id": id}}
}

func (r *Repository) bulk(ctx context.Context, name, index string, ops []any, count int) error {
	req := &elastic.Request{
		Index:      index,
		Type:       r.cfg.docType,
		Operations: ops,
		Refresh:    r.cfg.forceRefreshOnWrite,
	}
	op := &operation{name: name, kind: ErrBulk, index: index, operations: ops, count: count}
	_, err := r.exec(ctx, op, bulkCall(r.client.Bulk), req)
	return err
}

// bulkCall turns a bulk response with failed items into an error.
func bulkCall(call func(context.Context, *elastic.Request) (elastic.Response, error)) func(context.Context, *elastic.Request) (elastic.Response, error) {
	return func(ctx context.Context, req *elastic.Request) (elastic.Response, error) {
		resp, err := call(ctx, req)
		if err != nil {
			return nil, err
		}
		if failed, _ := resp["errors"].(bool); failed {
			return nil, bulkItemsError(resp)
		}
		return resp, nil
	}
}

// BulkItemError reports the items of a bulk response that failed.
type BulkItemError struct {
	Failed int
	Total  int
	// First is the error of the first failed item.
	First *elastic.Error
}

func (e *BulkItemError) Error() string {
	if e.First == nil {
		return fmt.Sprintf("%d of %d bulk items failed", e.Failed, e.Total)
	}
	return fmt.Sprintf("%d of %d bulk items failed, first: %s", e.Failed, e.Total, e.First)
}

func bulkItemsError(resp elastic.Response) *BulkItemError {
	items, _ := resp["items"].([]any)
	out := &BulkItemError{Total: len(items)}
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, v := range m {
			result, ok := v.(map[string]any)
			if !ok {
				continue
			}
			detail, ok := result["error"].(map[string]any)
			if !ok {
				continue
			}
			out.Failed++
			if out.First == nil {
				status, _ := result["status"].(float64)
				out.First = &elastic.Error{Status: int(status)}
				out.First.Type, _ = detail["type"].(string)
				out.First.Reason, _ = detail["reason"].(string)
			}
		}
	}
	return out
}
