// Package v9 connects to 9.x clusters. The 9.x client speaks the same REST
// API and satisfies esapi.Transport, so requests go through the v8 adapter.
package v9

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/pteich/elastic-repository/elastic"
	v8 "github.com/pteich/elastic-repository/elastic/v8"
)

func NewClient(cfg elasticsearch.Config) (*v8.Client, error) {
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return v8.New(client), nil
}

func NewConfig(conf elastic.Config, httpClient *http.Client) elasticsearch.Config {
	return elasticsearch.Config{
		Addresses: []string{conf.URL},
		Username:  conf.User,
		Password:  conf.Pass,
		Transport: httpClient.Transport,
	}
}
