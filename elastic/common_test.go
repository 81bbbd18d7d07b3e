package elastic

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    *Error
		wantResult Response
	}{
		{
			name:       "ok",
			status:     200,
			body:       `{"result":"created"}`,
			wantResult: Response{"result": "created"},
		},
		{
			name:    "error document",
			status:  400,
			body:    `{"error":{"type":"parsing_exception","reason":"unknown query [foo]"},"status":400}`,
			wantErr: &Error{Status: 400, Type: "parsing_exception", Reason: "unknown query [foo]"},
		},
		{
			name:    "document missing",
			status:  404,
			body:    `{"_index":"users","_id":"1","found":false}`,
			wantErr: &Error{Status: 404, Type: "not_found"},
		},
		{
			name:    "plain text error",
			status:  502,
			body:    `Bad Gateway`,
			wantErr: &Error{Status: 502, Type: "Bad Gateway"},
		},
		{
			name:       "empty body",
			status:     200,
			body:       ``,
			wantResult: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := DecodeResponse(tt.status, strings.NewReader(tt.body))
			if tt.wantErr != nil {
				var e *Error
				require.ErrorAs(t, err, &e)
				assert.Equal(t, tt.wantErr, e)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantResult, resp)
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&Error{Status: 404}))
	assert.True(t, IsNotFound(fmt.Errorf("get: %w", &Error{Status: 404})))
	assert.False(t, IsNotFound(&Error{Status: 500}))
	assert.False(t, IsNotFound(errors.New("connection refused")))
}

func TestEncodeNDJSON(t *testing.T) {
	buf, err := EncodeNDJSON([]any{
		map[string]any{"index": map[string]any{"_index": "users", "_id": "1"}},
		map[string]any{"name": "ann"},
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"index\":{\"_id\":\"1\",\"_index\":\"users\"}}\n{\"name\":\"ann\"}\n", buf.String())
}

func TestParseKeepAlive(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"1m", time.Minute, false},
		{"30s", 30 * time.Second, false},
		{"2d", 48 * time.Hour, false},
		{"soon", 0, true},
		{"xd", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKeepAlive(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "elastic: status 404 (not_found)", (&Error{Status: 404, Type: "not_found"}).Error())
	assert.Equal(t, "elastic: status 409 (version_conflict_engine_exception): conflict",
		(&Error{Status: 409, Type: "version_conflict_engine_exception", Reason: "conflict"}).Error())
}
