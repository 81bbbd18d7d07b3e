// Package repository runs queries and document operations against one
// configured index pair. Transport failures are logged once and returned as
// *OperationError.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pteich/elastic-repository/elastic"
	"github.com/pteich/elastic-repository/query"
	"github.com/pteich/elastic-repository/result"
)

const logPrefix = "elastic repository: "

// Operation names, used in logs, metrics and OperationError.
const (
	OpSave                      = "save"
	OpUpdate                    = "update"
	OpUpsert                    = "upsert"
	OpDelete                    = "delete"
	OpSaveBulk                  = "save_bulk"
	OpDeleteBulk                = "delete_bulk"
	OpFindByID                  = "find_by_id"
	OpFindByIDs                 = "find_by_ids"
	OpFindByQuery               = "find_by_query"
	OpFindScrollableByQuery     = "find_scrollable_by_query"
	OpFindByScrollID            = "find_by_scroll_id"
	OpCount                     = "count"
	OpCountByQuery              = "count_by_query"
	OpAggregateByQuery          = "aggregate_by_query"
	OpAggregateCompositeByQuery = "aggregate_composite_by_query"
	OpDeleteByQuery             = "delete_by_query"
	OpUpdateByQuery             = "update_by_query"
	OpClearScrollID             = "clear_scroll_id"
)

// Repository is safe for concurrent use; it holds no state beyond its
// configuration.
type Repository struct {
	client  elastic.Client
	cfg     *Configuration
	logger  *zap.Logger
	hooks   Hooks
	metrics *Metrics
}

type Option func(*Repository)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithHooks(hooks Hooks) Option {
	return func(r *Repository) {
		if hooks != nil {
			r.hooks = hooks
		}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(r *Repository) {
		r.metrics = metrics
	}
}

func New(client elastic.Client, cfg *Configuration, opts ...Option) (*Repository, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: client is nil", ErrConfiguration)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration is nil", ErrConfiguration)
	}
	r := &Repository{
		client: client,
		cfg:    cfg,
		logger: zap.NewNop(),
		hooks:  NopHooks{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Repository) Configuration() *Configuration {
	return r.cfg
}

// operation describes one transport call for logging, metrics and errors.
type operation struct {
	name          string
	kind          error
	index         string
	id            string
	document      map[string]any
	operations    []any
	query         any
	count         int
	allowNotFound bool
}

func (op *operation) fields() []zap.Field {
	fields := []zap.Field{
		zap.String("operation", op.name),
		zap.String("index", op.index),
	}
	if op.id != "" {
		fields = append(fields, zap.String("id", op.id))
	}
	if op.count > 0 {
		fields = append(fields, zap.Int("count", op.count))
	}
	if op.query != nil {
		fields = append(fields, zap.Any("query", op.query))
	}
	return fields
}

func (op *operation) wrap(kind, err error) *OperationError {
	return &OperationError{
		Kind:       kind,
		Operation:  op.name,
		Index:      op.index,
		ID:         op.id,
		Document:   op.document,
		Operations: op.operations,
		Query:      op.query,
		Err:        err,
	}
}

// exec runs call. A 404 on an operation that allows it is returned as
// ErrDocumentNotFound and logged at debug level; any other failure is logged
// once at error level and wrapped in op.kind.
func (r *Repository) exec(
	ctx context.Context, op *operation,
	call func(context.Context, *elastic.Request) (elastic.Response, error), req *elastic.Request,
) (elastic.Response, error) {
	start := time.Now()
	resp, err := call(ctx, req)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		r.metrics.observe(op.name, statusOK, elapsed)
		return resp, nil
	case op.allowNotFound && elastic.IsNotFound(err):
		r.metrics.observe(op.name, statusNotFound, elapsed)
		r.logger.Debug(logPrefix+"document not found", op.fields()...)
		return nil, op.wrap(ErrDocumentNotFound, err)
	default:
		r.metrics.observe(op.name, statusError, elapsed)
		r.logger.Error(logPrefix+op.name+" failed", append(op.fields(), zap.Error(err))...)
		return nil, op.wrap(op.kind, err)
	}
}

func (r *Repository) index(op OperationType) (string, error) {
	return r.cfg.Index(op)
}

func (r *Repository) writeRequest(index, id string, body any) *elastic.Request {
	return &elastic.Request{
		Index:   index,
		Type:    r.cfg.docType,
		ID:      id,
		Body:    body,
		Refresh: r.cfg.forceRefreshOnWrite,
	}
}

// Save indexes document under id, replacing any existing document. An empty
// id lets the engine assign one.
func (r *Repository) Save(ctx context.Context, id string, document any) error {
	doc, err := r.cfg.normalize(document)
	if err != nil {
		return err
	}
	index, err := r.index(OperationWrite)
	if err != nil {
		return err
	}

	op := &operation{name: OpSave, kind: ErrWriteOperation, index: index, id: id, document: doc}
	if _, err := r.exec(ctx, op, r.client.Index, r.writeRequest(index, id, doc)); err != nil {
		return err
	}
	r.hooks.PostSave(ctx, id, doc)
	return nil
}

// Update merges document into the stored document with id.
func (r *Repository) Update(ctx context.Context, id string, document any) error {
	return r.update(ctx, OpUpdate, ErrUpdate, id, document, false)
}

// Upsert is Update that creates the document when it does not exist.
func (r *Repository) Upsert(ctx context.Context, id string, document any) error {
	return r.update(ctx, OpUpsert, ErrUpsert, id, document, true)
}

func (r *Repository) update(ctx context.Context, name string, kind error, id string, document any, upsert bool) error {
	doc, err := r.cfg.normalize(document)
	if err != nil {
		return err
	}
	index, err := r.index(OperationWrite)
	if err != nil {
		return err
	}

	body := query.NewObject().Set("doc", doc)
	if upsert {
		body.Set("doc_as_upsert", true)
	}

	op := &operation{name: name, kind: kind, index: index, id: id, document: doc}
	if _, err := r.exec(ctx, op, r.client.Update, r.writeRequest(index, id, body)); err != nil {
		return err
	}
	r.hooks.PostSave(ctx, id, doc)
	return nil
}

// Delete removes the document with id. A missing document is reported as
// ErrDocumentNotFound and is not logged as an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	index, err := r.index(OperationWrite)
	if err != nil {
		return err
	}

	op := &operation{name: OpDelete, kind: ErrDelete, index: index, id: id, allowNotFound: true}
	if _, err := r.exec(ctx, op, r.client.Delete, r.writeRequest(index, id, nil)); err != nil {
		return err
	}
	r.hooks.PostDelete(ctx, id)
	return nil
}

// FindByID returns the document with id, or nil when it does not exist.
// sourceFields restricts the returned fields.
func (r *Repository) FindByID(ctx context.Context, id string, sourceFields ...string) (any, error) {
	index, err := r.index(OperationRead)
	if err != nil {
		return nil, err
	}

	req := &elastic.Request{Index: index, Type: r.cfg.docType, ID: id, Source: sourceFields}
	op := &operation{name: OpFindByID, kind: ErrReadOperation, index: index, id: id, allowNotFound: true}
	resp, err := r.exec(ctx, op, r.client.Get, req)
	if errors.Is(err, ErrDocumentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	hit, found := result.DecodeDocument(resp)
	if !found {
		return nil, nil
	}
	return r.cfg.entity(hit.ID, hit.Source)
}

// FindByIDs returns the documents that exist among ids, in response order.
func (r *Repository) FindByIDs(ctx context.Context, ids []string, sourceFields ...string) (*result.Iterator, error) {
	if len(ids) == 0 {
		return result.NewIterator(nil, nil, 0, ""), nil
	}
	index, err := r.index(OperationRead)
	if err != nil {
		return nil, err
	}

	body := map[string]any{"ids": ids}
	req := &elastic.Request{Index: index, Type: r.cfg.docType, Body: body, Source: sourceFields}
	op := &operation{name: OpFindByIDs, kind: ErrReadOperation, index: index, count: len(ids)}
	resp, err := r.exec(ctx, op, r.client.Mget, req)
	if err != nil {
		r.logger.Error(logPrefix+"mget request",
			zap.String("severity", "critical"),
			zap.String("index", index),
			zap.Any("body", body),
		)
		return nil, err
	}

	hits, err := result.DecodeDocuments(resp)
	if err != nil {
		return nil, op.wrap(ErrReadOperation, err)
	}
	return r.iterator(hits, int64(len(hits)), "")
}

func (r *Repository) iterator(hits []result.Hit, total int64, scrollID string) (*result.Iterator, error) {
	ids := make([]string, 0, len(hits))
	docs := make([]any, 0, len(hits))
	for _, hit := range hits {
		doc, err := r.cfg.entity(hit.ID, hit.Source)
		if err != nil {
			return nil, fmt.Errorf("repository: decode document %s: %w", hit.ID, err)
		}
		ids = append(ids, hit.ID)
		docs = append(docs, doc)
	}
	return result.NewIterator(ids, docs, total, scrollID), nil
}

func (r *Repository) search(ctx context.Context, name string, q query.Builder, scroll string) (elastic.Response, *operation, error) {
	index, err := r.index(OperationRead)
	if err != nil {
		return nil, nil, err
	}
	body, err := q.Build()
	if err != nil {
		return nil, nil, err
	}

	req := &elastic.Request{
		Index:          index,
		Type:           r.cfg.docType,
		Body:           body,
		Scroll:         scroll,
		TrackTotalHits: r.cfg.trackTotalHits,
	}
	op := &operation{name: name, kind: ErrReadOperation, index: index, query: body}
	resp, err := r.exec(ctx, op, r.client.Search, req)
	return resp, op, err
}

func (r *Repository) hits(op *operation, resp elastic.Response) (*result.Iterator, error) {
	hits, err := result.DecodeHits(resp)
	if err != nil {
		return nil, op.wrap(ErrReadOperation, err)
	}
	return r.iterator(hits.Hits, hits.Total, hits.ScrollID)
}

func (r *Repository) FindByQuery(ctx context.Context, q query.Builder) (*result.Iterator, error) {
	resp, op, err := r.search(ctx, OpFindByQuery, q, "")
	if err != nil {
		return nil, err
	}
	return r.hits(op, resp)
}

// FindScrollableByQuery opens a scroll context. An empty keepAlive uses the
// configured scroll. The returned iterator carries the scroll id for
// FindByScrollID.
func (r *Repository) FindScrollableByQuery(ctx context.Context, q query.Builder, keepAlive string) (*result.Iterator, error) {
	if keepAlive == "" {
		keepAlive = r.cfg.scroll
	}
	resp, op, err := r.search(ctx, OpFindScrollableByQuery, q, keepAlive)
	if err != nil {
		return nil, err
	}
	return r.hits(op, resp)
}

// FindByScrollID fetches the next page of an open scroll context.
func (r *Repository) FindByScrollID(ctx context.Context, scrollID, keepAlive string) (*result.Iterator, error) {
	if keepAlive == "" {
		keepAlive = r.cfg.scroll
	}
	index, err := r.index(OperationRead)
	if err != nil {
		return nil, err
	}

	req := &elastic.Request{ScrollID: scrollID, Scroll: keepAlive}
	op := &operation{name: OpFindByScrollID, kind: ErrReadOperation, index: index}
	resp, err := r.exec(ctx, op, r.client.Scroll, req)
	if err != nil {
		return nil, err
	}
	return r.hits(op, resp)
}

// ClearScrollID releases a scroll context before its keep-alive expires.
func (r *Repository) ClearScrollID(ctx context.Context, scrollID string) error {
	index, err := r.index(OperationRead)
	if err != nil {
		return err
	}
	op := &operation{name: OpClearScrollID, kind: ErrReadOperation, index: index}
	_, err = r.exec(ctx, op, r.client.ClearScroll, &elastic.Request{ScrollID: scrollID})
	return err
}

// Count returns the number of documents in the read index.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, OpCount, nil)
}

// CountByQuery counts the documents matching q. Only the query part of q is
// sent.
func (r *Repository) CountByQuery(ctx context.Context, q query.Builder) (int64, error) {
	body, err := queryOnly(q)
	if err != nil {
		return 0, err
	}
	return r.count(ctx, OpCountByQuery, body)
}

func (r *Repository) count(ctx context.Context, name string, body *query.Object) (int64, error) {
	index, err := r.index(OperationRead)
	if err != nil {
		return 0, err
	}

	req := &elastic.Request{Index: index, Type: r.cfg.docType}
	op := &operation{name: name, kind: ErrReadOperation, index: index}
	if body != nil {
		req.Body = body
		op.query = body
	}
	resp, err := r.exec(ctx, op, r.client.Count, req)
	if err != nil {
		return 0, err
	}
	n, err := result.Count(resp)
	if err != nil {
		return 0, op.wrap(ErrReadOperation, err)
	}
	return n, nil
}

// queryOnly builds q and keeps its "query" key. It returns an empty object
// when q has no query part.
func queryOnly(q query.Builder) (*query.Object, error) {
	body, err := q.Build()
	if err != nil {
		return nil, err
	}
	out := query.NewObject()
	if part, ok := body.Get("query"); ok {
		out.Set("query", part)
	}
	return out, nil
}

// AggregateByQuery runs q and returns both its hits and its top-level
// aggregations.
func (r *Repository) AggregateByQuery(ctx context.Context, q query.Builder) (*result.Iterator, result.Aggregations, error) {
	resp, op, err := r.search(ctx, OpAggregateByQuery, q, "")
	if err != nil {
		return nil, nil, err
	}
	it, err := r.hits(op, resp)
	if err != nil {
		return nil, nil, err
	}
	return it, result.DecodeAggregations(resp), nil
}

// DeleteByQuery deletes every document matching q and returns the number
// deleted. With proceedOnConflicts version conflicts do not abort the request.
func (r *Repository) DeleteByQuery(ctx context.Context, q query.Builder, proceedOnConflicts bool) (int64, error) {
	index, err := r.index(OperationWrite)
	if err != nil {
		return 0, err
	}
	body, err := queryOnly(q)
	if err != nil {
		return 0, err
	}

	req := r.writeRequest(index, "", body)
	if proceedOnConflicts {
		req.Conflicts = "proceed"
	}
	op := &operation{name: OpDeleteByQuery, kind: ErrDelete, index: index, query: body}
	resp, err := r.exec(ctx, op, r.client.DeleteByQuery, req)
	if err != nil {
		return 0, err
	}
	return responseCount(resp, "deleted"), nil
}

// UpdateByQuery runs script on every document matching q and returns the
// number updated. script is a source string, a script object, or an object
// with the script under a "script" key. params defaults to an empty object
// and lang to painless.
func (r *Repository) UpdateByQuery(ctx context.Context, q query.Builder, script any) (int64, error) {
	normalized, err := normalizeScript(script)
	if err != nil {
		return 0, err
	}
	index, err := r.index(OperationWrite)
	if err != nil {
		return 0, err
	}
	body, err := queryOnly(q)
	if err != nil {
		return 0, err
	}
	body.Set("script", normalized)

	op := &operation{name: OpUpdateByQuery, kind: ErrUpdate, index: index, query: body}
	resp, err := r.exec(ctx, op, r.client.UpdateByQuery, r.writeRequest(index, "", body))
	if err != nil {
		return 0, err
	}
	return responseCount(resp, "updated"), nil
}

func normalizeScript(script any) (*query.Object, error) {
	var raw map[string]any
	switch s := script.(type) {
	case string:
		raw = map[string]any{"source": s}
	case map[string]any:
		raw = s
		if inner, ok := s["script"].(map[string]any); ok {
			raw = inner
		}
	default:
		return nil, fmt.Errorf("%w: script must be a string or an object, got %T", query.ErrInvalidArgument, script)
	}

	out := query.NewObject()
	if source, ok := raw["source"]; ok {
		lang, _ := raw["lang"].(string)
		if lang == "" {
			lang = "painless"
		}
		out.Set("source", source).Set("lang", lang)
	} else if id, ok := raw["id"]; ok {
		out.Set("id", id)
	} else {
		return nil, fmt.Errorf("%w: script needs a source or an id", query.ErrInvalidArgument)
	}

	params, ok := raw["params"].(map[string]any)
	if !ok || params == nil {
		params = map[string]any{}
	}
	out.Set("params", params)
	for _, k := range sortedKeys(raw) {
		switch k {
		case "source", "id", "lang", "params":
		default:
			out.Set(k, raw[k])
		}
	}
	return out, nil
}

func responseCount(resp elastic.Response, key string) int64 {
	switch n := resp[key].(type) {
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	}
	return 0
}
