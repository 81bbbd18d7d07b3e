package v8

import (
	"context"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/pteich/elastic-repository/elastic"
)

// Client implements elastic.Client with the esapi request types. Mapping
// types are not sent; the 8.x and later APIs do not accept them.
type Client struct {
	transport esapi.Transport
}

var _ elastic.Client = (*Client)(nil)

// New wraps any esapi transport. Both the v8 and the v9 elasticsearch clients
// qualify.
func New(transport esapi.Transport) *Client {
	return &Client{transport: transport}
}

func NewClient(cfg elasticsearch.Config) (*Client, error) {
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return New(client), nil
}

func NewConfig(conf elastic.Config, httpClient *http.Client) elasticsearch.Config {
	return elasticsearch.Config{
		Addresses: []string{conf.URL},
		Username:  conf.User,
		Password:  conf.Pass,
		Transport: httpClient.Transport,
	}
}

type doer interface {
	Do(ctx context.Context, transport esapi.Transport) (*esapi.Response, error)
}

func (c *Client) do(ctx context.Context, req doer) (elastic.Response, error) {
	res, err := req.Do(ctx, c.transport)
	if err != nil {
		return nil, err
	}
	if res.Body == nil {
		return elastic.DecodeResponse(res.StatusCode, nil)
	}
	defer res.Body.Close()

	return elastic.DecodeResponse(res.StatusCode, res.Body)
}

func refresh(r *elastic.Request) string {
	if r.Refresh {
		return "true"
	}
	return ""
}

func (c *Client) Index(ctx context.Context, r *elastic.Request) (elastic.Response, error) {
	body, err := elastic.EncodeBody(r.Body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, esapi.IndexRequest{
		Index:      r.Index,
		DocumentID: r.ID,
		Body:       body,
		Refresh:    refresh(r),
	})
}

func (c *Client) Update(ctx context.Context, r *elastic.Request) (elastic.Response, error) {
	body, err := elastic.EncodeBody(r.Body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, esapi.UpdateRequest{
		Index:      r.Index,
		DocumentID: r.ID,
		Body:       body,
		Refresh:    refresh(r),
	})
}

func (c *Client) Delete(ctx context.Context, r *elastic.Request) (elastic.Response, error) {
	return c.do(ctx, esapi.DeleteRequest{
		Index:      r.Index,
		DocumentID: r.ID,
		Refresh:    refresh(r),
	})
}

func (c *Client) Bulk(ctx context.Context, r *elastic.Request) (elastic.Response, error) {
	buf, err := elastic.EncodeNDJSON(r.Operations)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, esapi.BulkRequest{
		Index:   r.Index,
		Body:    buf,
		Refresh: refresh(r),
	})
}

func (c *Client) Search(ctx context.Context, r *elastic.Request) (elastic.Response, error) {
	body, err := elastic.EncodeBody(r.Body)
	if err != nil {
		return nil, err
	}
	keepAlive, err := elastic.ParseKeepAlive(r.Scroll)
	if err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index:          []string{r.Index},
		Body:           body,
		Scroll:         keepAlive,
		SourceIncludes: r.Source,
	}
	if r.TrackTotalHits {
		req.TrackTotalHits = true
	}
	return c.do(ctx, req)
}

func (c *Client) Scroll(ctx context.Context, r *elastic.Request) (elastic.Response, error) {
	keepAlive, err := elastic.ParseKeepAlive(r.Scroll)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, esapi.ScrollRequest{
		ScrollID: r.ScrollID,
		Scroll:   keepAlive,
	})
}

func (c *Client) ClearScroll(ctx context.Context, r *elastic.Request) (elastic.Response, error) {
	return c.do(ctx, esapi.ClearScrollRequest{
		ScrollID: []string{r.ScrollID},
	})
}

func (c *Client) Count(ctx context.Context, r *elastic.Request) (elastic.Response, error) {
	body, err := elastic.EncodeBody(r.Body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, esapi.CountRequest{
		Index: []string{r.Index},
		Body:  body,
	})
}

func (c *Client) Get(ctx context.Context, r *elastic.Request) (elastic.Response, error) {
	return c.do(ctx, esapi.GetRequest{
		Index:          r.Index,
		DocumentID:     r.ID,
		SourceIncludes: r.Source,
	})
}

func (c *Client) Mget(ctx context.Context, r *elastic.Request) (elastic.Response, error) {
	body, err := elastic.EncodeBody(r.Body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, esapi.MgetRequest{
		Index:          r.Index,
		Body:           body,
		SourceIncludes: r.Source,
	})
}

func (c *Client) DeleteByQuery(ctx context.Context, r *elastic.Request) (elastic.Response, error) {
	body, err := elastic.EncodeBody(r.Body)
	if err != nil {
		return nil, err
	}
	req := esapi.DeleteByQueryRequest{
		Index:     []string{r.Index},
		Body:      body,
		Conflicts: r.Conflicts,
	}
	if r.Refresh {
		req.Refresh = esapi.BoolPtr(true)
	}
	return c.do(ctx, req)
}

func (c *Client) UpdateByQuery(ctx context.Context, r *elastic.Request) (elastic.Response, error) {
	body, err := elastic.EncodeBody(r.Body)
	if err != nil {
		return nil, err
	}
	req := esapi.UpdateByQueryRequest{
		Index:     []string{r.Index},
		Body:      body,
		Conflicts: r.Conflicts,
	}
	if r.Refresh {
		req.Refresh = esapi.BoolPtr(true)
	}
	return c.do(ctx, req)
}
