package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonwraymond/relayops/apierr"
)

// Transport sends one normalized request and returns the peer's response.
// A non-nil Response with an error status is not a transport error; only
// failures to complete the exchange (connection reset, DNS, timeout)
// surface as errors.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: RoundTrip must honor cancellation/deadlines.
type Transport interface {
	RoundTrip(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

// RoundTrip calls the function.
func (f TransportFunc) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// HTTPTransport sends requests over net/http.
type HTTPTransport struct {
	client *http.Client

	// maxBody bounds how much of a response body is buffered.
	maxBody int64
}

// NewHTTPTransport creates an HTTP transport. A nil client gets a default
// with a 30s timeout; per-attempt deadlines come from the context.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTransport{
		client:  client,
		maxBody: 32 << 20,
	}
}

// RoundTrip performs the HTTP exchange and buffers the response body.
func (t *HTTPTransport) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindConfiguration, fmt.Errorf("build request: %w", err))
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, t.maxBody))
	if err != nil {
		return nil, classifyTransportError(ctx, fmt.Errorf("read response body: %w", err))
	}

	return &Response{
		Status:  httpResp.StatusCode,
		Headers: httpResp.Header,
		Body:    data,
	}, nil
}

// classifyTransportError distinguishes a cancelled or timed-out attempt
// from an ordinary network failure.
func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) {
		return apierr.Wrap(apierr.KindCancelled, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return apierr.Wrap(apierr.KindTimeout, err)
	}
	return apierr.Wrap(apierr.KindNetwork, err)
}

var _ Transport = (*HTTPTransport)(nil)
