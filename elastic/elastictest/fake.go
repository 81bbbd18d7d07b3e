// Package elastictest provides a recording elastic.Client for tests.
package elastictest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pteich/elastic-repository/elastic"
)

// Method names, as recorded in Call.Method.
const (
	MethodIndex         = "Index"
	MethodUpdate        = "Update"
	MethodDelete        = "Delete"
	MethodBulk          = "Bulk"
	MethodSearch        = "Search"
	MethodScroll        = "Scroll"
	MethodClearScroll   = "ClearScroll"
	MethodCount         = "Count"
	MethodGet           = "Get"
	MethodMget          = "Mget"
	MethodDeleteByQuery = "DeleteByQuery"
	MethodUpdateByQuery = "UpdateByQuery"
)

// HandlerFunc computes the reply to a call.
type HandlerFunc func(ctx context.Context, req *elastic.Request) (elastic.Response, error)

// Call is one recorded request.
type Call struct {
	Method  string
	Request elastic.Request
}

// BodyJSON returns the JSON encoding of the request body, or of the
// operations for a bulk call.
func (c Call) BodyJSON() string {
	var v any = c.Request.Body
	if c.Method == MethodBulk {
		v = c.Request.Operations
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "!" + err.Error()
	}
	return string(data)
}

type reply struct {
	resp elastic.Response
	err  error
}

// Client records every call. Replies are taken from the queue of the method
// first, then from its handler; without either a call returns an empty
// response.
type Client struct {
	mu       sync.Mutex
	calls    []Call
	queues   map[string][]reply
	handlers map[string]HandlerFunc
}

var _ elastic.Client = (*Client)(nil)

func New() *Client {
	return &Client{
		queues:   make(map[string][]reply),
		handlers: make(map[string]HandlerFunc),
	}
}

// Respond queues a single reply for method.
func (c *Client) Respond(method string, resp elastic.Response, err error) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queues[method] = append(c.queues[method], reply{resp: resp, err: err})
	return c
}

// On sets the handler for method, used once its queue is empty.
func (c *Client) On(method string, fn HandlerFunc) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers[method] = fn
	return c
}

// Calls returns all recorded calls in order.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Call(nil), c.calls...)
}

// CallsTo returns the recorded calls of method.
func (c *Client) CallsTo(method string) []Call {
	var out []Call
	for _, call := range c.Calls() {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

func (c *Client) call(ctx context.Context, method string, req *elastic.Request) (elastic.Response, error) {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Method: method, Request: *req})
	if q := c.queues[method]; len(q) > 0 {
		c.queues[method] = q[1:]
		c.mu.Unlock()
		return q[0].resp, q[0].err
	}
	fn := c.handlers[method]
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return elastic.Response{}, nil
}

func (c *Client) Index(ctx context.Context, req *elastic.Request) (elastic.Response, error) {
	return c.call(ctx, MethodIndex, req)
}

func (c *Client) Update(ctx context.Context, req *elastic.Request) (elastic.Response, error) {
	return c.call(ctx, MethodUpdate, req)
}

func (c *Client) Delete(ctx context.Context, req *elastic.Request) (elastic.Response, error) {
	return c.call(ctx, MethodDelete, req)
}

func (c *Client) Bulk(ctx context.Context, req *elastic.Request) (elastic.Response, error) {
	return c.call(ctx, MethodBulk, req)
}

func (c *Client) Search(ctx context.Context, req *elastic.Request) (elastic.Response, error) {
	return c.call(ctx, MethodSearch, req)
}

func (c *Client) Scroll(ctx context.Context, req *elastic.Request) (elastic.Response, error) {
	return c.call(ctx, MethodScroll, req)
}

func (c *Client) ClearScroll(ctx context.Context, req *elastic.Request) (elastic.Response, error) {
	return c.call(ctx, MethodClearScroll, req)
}

func (c *Client) Count(ctx context.Context, req *elastic.Request) (elastic.Response, error) {
	return c.call(ctx, MethodCount, req)
}

func (c *Client) Get(ctx context.Context, req *elastic.Request) (elastic.Response, error) {
	return c.call(ctx, MethodGet, req)
}

func (c *Client) Mget(ctx context.Context, req *elastic.Request) (elastic.Response, error) {
	return c.call(ctx, MethodMget, req)
}

func (c *Client) DeleteByQuery(ctx context.Context, req *elastic.Request) (elastic.Response, error) {
	return c.call(ctx, MethodDeleteByQuery, req)
}

func (c *Client) UpdateByQuery(ctx context.Context, req *elastic.Request) (elastic.Response, error) {
	return c.call(ctx, MethodUpdateByQuery, req)
}
