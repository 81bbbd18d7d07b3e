package v9

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pteich/elastic-repository/elastic"
)

func TestNewConfig(t *testing.T) {
	httpClient := &http.Client{Transport: &http.Transport{}}

	cfg := NewConfig(elastic.Config{URL: "http://es:9200", User: "u", Pass: "p"}, httpClient)

	assert.Equal(t, []string{"http://es:9200"}, cfg.Addresses)
	assert.Equal(t, "u", cfg.Username)
	assert.Equal(t, "p", cfg.Password)
	assert.Same(t, httpClient.Transport, cfg.Transport)
}

func TestNewClient_Count(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		_, _ = w.Write([]byte(`{"count":3}`))
	}))
	defer srv.Close()

	c, err := NewClient(NewConfig(elastic.Config{URL: srv.URL}, srv.Client()))
	require.NoError(t, err)

	resp, err := c.Count(context.Background(), &elastic.Request{
		Index: "logs",
		Body:  map[string]any{"query": map[string]any{"match_all": map[string]any{}}},
	})

	require.NoError(t, err)
	assert.Equal(t, float64(3), resp["count"])
	assert.Equal(t, "/logs/_count", path)
	assert.JSONEq(t, `{"query":{"match_all":{}}}`, body)
}
