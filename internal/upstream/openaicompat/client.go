package openaicompat

import (
	"bytes"
	"context"
	"net/http"
	"time"
)

var transport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 20,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
}

// NewClient returns an http.Client sharing the package transport, bounded by timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Proxy sends the request body as-is to an OpenAI-compatible completions endpoint.
// apiKey may be empty when the endpoint is itself a credential-attaching relay.
func Proxy(ctx context.Context, client *http.Client, endpoint string, apiKey string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	return client.Do(req)
}
