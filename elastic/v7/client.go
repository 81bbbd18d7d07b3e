package v7

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/olivere/elastic/v7"
	"go.uber.org/zap"

	es "github.com/pteich/elastic-repository/elastic"
)

const defaultType = "_doc"

// Client implements elastic.Client on top of olivere/elastic. It is the only
// adapter that sends mapping types, for clusters that still use them.
type Client struct {
	client *elastic.Client
}

var _ es.Client = (*Client)(nil)

func New(client *elastic.Client) *Client {
	return &Client{client: client}
}

func NewClient(esOpts []elastic.ClientOptionFunc) (*Client, error) {
	client, err := elastic.NewClient(esOpts...)
	if err != nil {
		return nil, err
	}
	return New(client), nil
}

// Options turns connection settings into client options. Client errors, and
// traces when enabled, go to logger.
func Options(conf es.Config, httpClient *http.Client, logger *zap.Logger) []elastic.ClientOptionFunc {
	stdLog := zap.NewStdLog(logger.Named("olivere"))

	esOpts := []elastic.ClientOptionFunc{
		elastic.SetHttpClient(httpClient),
		elastic.SetURL(conf.URL),
		elastic.SetSniff(false),
		elastic.SetHealthcheckInterval(60 * time.Second),
		elastic.SetErrorLog(stdLog),
	}

	if conf.Trace {
		esOpts = append(esOpts, elastic.SetTraceLog(stdLog))
	}

	if conf.User != "" && conf.Pass != "" {
		esOpts = append(esOpts, elastic.SetBasicAuth(conf.User, conf.Pass))
	}
	return esOpts
}

func (c *Client) Stop() {
	c.client.Stop()
}

func (c *Client) perform(ctx context.Context, opts elastic.PerformRequestOptions) (es.Response, error) {
	res, err := c.client.PerformRequest(ctx, opts)
	if err != nil {
		return nil, translateError(err)
	}

	var resp es.Response
	if len(res.Body) > 0 {
		if err := json.Unmarshal(res.Body, &resp); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func translateError(err error) error {
	var e *elastic.Error
	if !errors.As(err, &e) {
		return err
	}
	out := &es.Error{Status: e.Status, Type: http.StatusText(e.Status)}
	if e.Details != nil {
		out.Type = e.Details.Type
		out.Reason = e.Details.Reason
	} else if e.Status == http.StatusNotFound {
		out.Type = "not_found"
	}
	return out
}

func path(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		if s == "" {
			continue
		}
		escaped = append(escaped, url.PathEscape(s))
	}
	return "/" + strings.Join(escaped, "/")
}

func docType(r *es.Request) string {
	if r.Type != "" {
		return r.Type
	}
	return defaultType
}

func writeParams(r *es.Request) url.Values {
	params := url.Values{}
	if r.Refresh {
		params.Set("refresh", "true")
	}
	return params
}

func (c *Client) Index(ctx context.Context, r *es.Request) (es.Response, error) {
	method := http.MethodPut
	if r.ID == "" {
		method = http.MethodPost
	}
	return c.perform(ctx, elastic.PerformRequestOptions{
		Method: method,
		Path:   path(r.Index, docType(r), r.ID),
		Params: writeParams(r),
		Body:   r.Body,
	})
}

func (c *Client) Update(ctx context.Context, r *es.Request) (es.Response, error) {
	p := path(r.Index, "_update", r.ID)
	if r.Type != "" {
		p = path(r.Index, r.Type, r.ID, "_update")
	}
	return c.perform(ctx, elastic.PerformRequestOptions{
		Method: http.MethodPost,
		Path:   p,
		Params: writeParams(r),
		Body:   r.Body,
	})
}

func (c *Client) Delete(ctx context.Context, r *es.Request) (es.Response, error) {
	return c.perform(ctx, elastic.PerformRequestOptions{
		Method: http.MethodDelete,
		Path:   path(r.Index, docType(r), r.ID),
		Params: writeParams(r),
	})
}

func (c *Client) Bulk(ctx context.Context, r *es.Request) (es.Response, error) {
	buf, err := es.EncodeNDJSON(r.Operations)
	if err != nil {
		return nil, err
	}
	return c.perform(ctx, elastic.PerformRequestOptions{
		Method:      http.MethodPost,
		Path:        path(r.Index, r.Type, "_bulk"),
		Params:      writeParams(r),
		Body:        buf.String(),
		ContentType: "application/x-ndjson",
	})
}

func (c *Client) Search(ctx context.Context, r *es.Request) (es.Response, error) {
	params := url.Values{}
	if r.Scroll != "" {
		params.Set("scroll", r.Scroll)
	}
	if r.TrackTotalHits {
		params.Set("track_total_hits", "true")
	}
	if len(r.Source) > 0 {
		params.Set("_source_includes", strings.Join(r.Source, ","))
	}
	return c.perform(ctx, elastic.PerformRequestOptions{
		Method: http.MethodPost,
		Path:   path(r.Index, r.Type, "_search"),
		Params: params,
		Body:   r.Body,
	})
}

func (c *Client) Scroll(ctx context.Context, r *es.Request) (es.Response, error) {
	body := map[string]any{"scroll_id": r.ScrollID}
	if r.Scroll != "" {
		body["scroll"] = r.Scroll
	}
	return c.perform(ctx, elastic.PerformRequestOptions{
		Method: http.MethodPost,
		Path:   "/_search/scroll",
		Body:   body,
	})
}

func (c *Client) ClearScroll(ctx context.Context, r *es.Request) (es.Response, error) {
	return c.perform(ctx, elastic.PerformRequestOptions{
		Method: http.MethodDelete,
		Path:   "/_search/scroll",
		Body:   map[string]any{"scroll_id": []string{r.ScrollID}},
	})
}

func (c *Client) Count(ctx context.Context, r *es.Request) (es.Response, error) {
	return c.perform(ctx, elastic.PerformRequestOptions{
		Method: http.MethodPost,
		Path:   path(r.Index, r.Type, "_count"),
		Body:   r.Body,
	})
}

func (c *Client) Get(ctx context.Context, r *es.Request) (es.Response, error) {
	params := url.Values{}
	if len(r.Source) > 0 {
		params.Set("_source_includes", strings.Join(r.Source, ","))
	}
	return c.perform(ctx, elastic.PerformRequestOptions{
		Method: http.MethodGet,
		Path:   path(r.Index, docType(r), r.ID),
		Params: params,
	})
}

func (c *Client) Mget(ctx context.Context, r *es.Request) (es.Response, error) {
	params := url.Values{}
	if len(r.Source) > 0 {
		params.Set("_source_includes", strings.Join(r.Source, ","))
	}
	return c.perform(ctx, elastic.PerformRequestOptions{
		Method: http.MethodPost,
		Path:   path(r.Index, r.Type, "_mget"),
		Params: params,
		Body:   r.Body,
	})
}

func byQueryParams(r *es.Request) url.Values {
	params := writeParams(r)
	if r.Conflicts != "" {
		params.Set("conflicts", r.Conflicts)
	}
	return params
}

func (c *Client) DeleteByQuery(ctx context.Context, r *es.Request) (es.Response, error) {
	return c.perform(ctx, elastic.PerformRequestOptions{
		Method: http.MethodPost,
		Path:   path(r.Index, r.Type, "_delete_by_query"),
		Params: byQueryParams(r),
		Body:   r.Body,
	})
}

func (c *Client) UpdateByQuery(ctx context.Context, r *es.Request) (es.Response, error) {
	return c.perform(ctx, elastic.PerformRequestOptions{
		Method: http.MethodPost,
		Path:   path(r.Index, r.Type, "_update_by_query"),
		Params: byQueryParams(r),
		Body:   r.Body,
	})
}
