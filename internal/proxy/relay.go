package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/magmedia/brewbuddy/internal/metrics"
	"github.com/magmedia/brewbuddy/internal/middleware"
	"github.com/magmedia/brewbuddy/internal/upstream/openaicompat"
)

const maxUpstreamBody = 10 << 20

var errUpstreamTooLarge = errors.New("upstream body exceeds 10 MiB")

// Result is the upstream answer, returned unaltered.
type Result struct {
	Status      int
	Body        []byte
	ContentType string
}

// Options configures a Relay. APIKey and Endpoint are required.
type Options struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Logger   *log.Logger
	Metrics  *metrics.Metrics
	Client   *http.Client // optional; defaults to the shared openaicompat transport
}

// Relay attaches the credential to a chat payload and forwards it upstream.
// It holds no per-request state and is safe for concurrent use.
type Relay struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	client   *http.Client
	logger   *log.Logger
	metrics  *metrics.Metrics
}

func New(opts Options) (*Relay, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("relay: API key is required")
	}
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("relay: upstream endpoint is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Client == nil {
		opts.Client = openaicompat.NewClient(opts.Timeout)
	}

	return &Relay{
		endpoint: opts.Endpoint,
		apiKey:   opts.APIKey,
		timeout:  opts.Timeout,
		client:   opts.Client,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}, nil
}

// Forward sends body upstream exactly as received. One attempt, no retry.
func (r *Relay) Forward(ctx context.Context, body []byte) (*Result, error) {
	start := time.Now()
	res, err := r.forward(ctx, body)
	r.record(ctx, start, res, err)
	return res, err
}

func (r *Relay) forward(ctx context.Context, body []byte) (*Result, error) {
	if !isJSON(body) {
		return nil, &ClientInputError{Message: "Invalid JSON"}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := openaicompat.Proxy(ctx, r.client, r.endpoint, r.apiKey, body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody+1))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("reading upstream body: %w", err)}
	}
	if len(respBody) > maxUpstreamBody {
		return nil, &TransportError{Status: http.StatusBadGateway, Err: errUpstreamTooLarge}
	}

	if !isSuccess(resp.StatusCode) && !json.Valid(respBody) {
		return nil, &TransportError{
			Status: http.StatusBadGateway,
			Err:    fmt.Errorf("upstream returned status %d with a non-JSON body", resp.StatusCode),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}

	return &Result{Status: resp.StatusCode, Body: respBody, ContentType: contentType}, nil
}

func (r *Relay) record(ctx context.Context, start time.Time, res *Result, err error) {
	elapsed := time.Since(start)
	id := middleware.RequestID(ctx)

	var inputErr *ClientInputError
	switch {
	case errors.As(err, &inputErr):
		r.metrics.Record(elapsed.Milliseconds(), metrics.OutcomeClientError)
		r.logger.Printf("WARN [relay] [%s] rejected: %s", id, inputErr.Message)
	case err != nil:
		r.metrics.Record(elapsed.Milliseconds(), metrics.OutcomeTransport)
		r.logger.Printf("ERROR [relay] [%s] %v (after %s)", id, err, elapsed)
	case isSuccess(res.Status):
		r.metrics.Record(elapsed.Milliseconds(), metrics.OutcomeSuccess)
		in, out, _ := openaicompat.ExtractTokens(res.Body)
		r.logger.Printf("[relay] [%s] upstream status=%d bytes=%d tokens_in=%d tokens_out=%d time=%s",
			id, res.Status, len(res.Body), in, out, elapsed)
	default:
		r.metrics.Record(elapsed.Milliseconds(), metrics.OutcomeUpstream)
		r.logger.Printf("WARN [relay] [%s] upstream status=%d bytes=%d time=%s", id, res.Status, len(res.Body), elapsed)
	}
}

func isJSON(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false
	}
	return json.Valid(trimmed)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
