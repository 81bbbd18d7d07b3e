package elastic

import (
	"crypto/tls"
	"net/http"
)

// Config holds connection settings shared by all client versions.
type Config struct {
	URL        string
	User       string
	Pass       string
	VerifySSL  bool
	ClientCert string
	ClientKey  string
	Trace      bool
}

// HTTPClient returns an http.Client honouring the TLS settings. A client
// certificate is only used when both cert and key are set.
func (c Config) HTTPClient() (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: !c.VerifySSL,
	}

	if c.ClientCert != "" && c.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
		if err != nil {
			return nil, err
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	tr := &http.Transport{
		TLSClientConfig: tlsCfg,
	}
	return &http.Client{Transport: tr}, nil
}
