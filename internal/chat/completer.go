package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/magmedia/brewbuddy/internal/proxy"
	"github.com/magmedia/brewbuddy/internal/upstream/openaicompat"
)

const maxReplyBody = 10 << 20

// Completer delivers a CompletionRequest to the relay and returns the raw
// response body. A non-nil error means no usable body arrived.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) ([]byte, error)
}

// LocalCompleter calls an in-process relay.
type LocalCompleter struct {
	Relay *proxy.Relay
}

func (c LocalCompleter) Complete(ctx context.Context, req CompletionRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion request: %w", err)
	}

	res, err := c.Relay.Forward(ctx, body)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// HTTPCompleter posts to a relay endpoint such as the CGI binary. It holds no
// credential; the relay attaches it.
type HTTPCompleter struct {
	URL    string
	client *http.Client
}

func NewHTTPCompleter(url string, timeout time.Duration) *HTTPCompleter {
	return &HTTPCompleter{URL: url, client: openaicompat.NewClient(timeout)}
}

func (c *HTTPCompleter) Complete(ctx context.Context, req CompletionRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion request: %w", err)
	}

	resp, err := openaicompat.Proxy(ctx, c.client, c.URL, "", body)
	if err != nil {
		return nil, fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read relay response: %w", err)
	}
	if msg, ok := relayError(resp.StatusCode, respBody); ok {
		return nil, fmt.Errorf("relay returned status %d: %s", resp.StatusCode, msg)
	}
	return respBody, nil
}

// relayError reports a failure raised by the relay itself, which answers
// {"error": "<message>"}. Upstream errors carry an object and pass through
// as a body, the same as through LocalCompleter.
func relayError(status int, body []byte) (string, bool) {
	if status >= 200 && status < 300 {
		return "", false
	}
	var e struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return "", false
	}
	var msg string
	if json.Unmarshal(e.Error, &msg) != nil {
		return "", false
	}
	return msg, true
}
