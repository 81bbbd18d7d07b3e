package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client is the subset of the search engine API the repository layer needs.
// Every call takes the same Request; the fields a call does not use are ignored.
type Client interface {
	Index(ctx context.Context, req *Request) (Response, error)
	Update(ctx context.Context, req *Request) (Response, error)
	Delete(ctx context.Context, req *Request) (Response, error)
	Bulk(ctx context.Context, req *Request) (Response, error)
	Search(ctx context.Context, req *Request) (Response, error)
	Scroll(ctx context.Context, req *Request) (Response, error)
	ClearScroll(ctx context.Context, req *Request) (Response, error)
	Count(ctx context.Context, req *Request) (Response, error)
	Get(ctx context.Context, req *Request) (Response, error)
	Mget(ctx context.Context, req *Request) (Response, error)
	DeleteByQuery(ctx context.Context, req *Request) (Response, error)
	UpdateByQuery(ctx context.Context, req *Request) (Response, error)
}

// Request carries the parameters of a single call.
type Request struct {
	Index string
	// Type is the mapping type. Only clusters before 8.x honour it.
	Type string
	ID   string

	// Body is JSON encoded. Operations is used instead by Bulk and sent as
	// newline delimited JSON.
	Body       any
	Operations []any

	Scroll         string
	ScrollID       string
	Refresh        bool
	Conflicts      string
	Source         []string
	TrackTotalHits bool
}

// Response is a decoded JSON response body.
type Response map[string]any

// Error is returned for every response with an error status.
type Error struct {
	Status int
	Type   string
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("elastic: status %d (%s)", e.Status, e.Type)
	}
	return fmt.Sprintf("elastic: status %d (%s): %s", e.Status, e.Type, e.Reason)
}

// IsNotFound reports whether err is a 404 from the engine.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusNotFound
}

// EncodeBody returns the JSON encoding of body, or nil for a nil body.
func EncodeBody(body any) (io.Reader, error) {
	if body == nil {
		return nil, nil
	}
	if r, ok := body.(io.Reader); ok {
		return r, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(data), nil
}

// EncodeNDJSON writes one JSON document per line, as the bulk API expects.
func EncodeNDJSON(ops []any) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, op := range ops {
		if err := enc.Encode(op); err != nil {
			return nil, fmt.Errorf("encode bulk operation %d: %w", i, err)
		}
	}
	return &buf, nil
}

// DecodeResponse decodes a response body. An error status becomes an *Error
// built from the engine's error document.
func DecodeResponse(status int, body io.Reader) (Response, error) {
	var resp Response
	if body != nil {
		if err := json.NewDecoder(body).Decode(&resp); err != nil && !errors.Is(err, io.EOF) {
			if status >= http.StatusBadRequest {
				return nil, &Error{Status: status, Type: http.StatusText(status)}
			}
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	if status >= http.StatusBadRequest {
		return resp, responseError(status, resp)
	}
	return resp, nil
}

func responseError(status int, resp Response) *Error {
	e := &Error{Status: status, Type: http.StatusText(status)}
	switch detail := resp["error"].(type) {
	case map[string]any:
		if t, ok := detail["type"].(string); ok {
			e.Type = t
		}
		e.Reason, _ = detail["reason"].(string)
	case string:
		e.Reason = detail
	default:
		if status == http.StatusNotFound {
			e.Type = "not_found"
		}
	}
	return e
}

// ParseKeepAlive parses a scroll keep-alive such as "30s", "1m" or "1d".
func ParseKeepAlive(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid keep-alive %q: %w", s, err)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid keep-alive %q: %w", s, err)
	}
	return d, nil
}
