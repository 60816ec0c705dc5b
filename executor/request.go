package executor

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jonwraymond/relayops/apierr"
	"github.com/jonwraymond/relayops/ratelimit"
	"github.com/jonwraymond/relayops/session"
)

// Request is a normalized outbound request. Adapters build one per
// attempt; the executor attaches the credential before sending.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Header returns the request headers, allocating them on first use.
func (r *Request) Header() http.Header {
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}
	return r.Headers
}

// Response is a normalized response from the peer.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Header returns the first value of a response header.
func (r *Response) Header(key string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// RetryAfter parses a Retry-After header as a delay, 0 if absent or
// unparseable. Both delta-seconds and HTTP-date forms are accepted.
func (r *Response) RetryAfter() time.Duration {
	v := r.Header("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// Operation describes one logical request in adapter-neutral terms.
type Operation struct {
	// Name is the logical operation name, used for telemetry.
	Name string

	// Adapter names the vendor adapter that built this operation.
	Adapter string

	// Target is the circuit-breaker target (an API host or operation
	// class). Defaults to Adapter when empty.
	Target string

	// Category is the rate-limit category the operation is billed to.
	Category ratelimit.Category

	// Scopes is the credential scope set the operation needs.
	Scopes []string

	// Build constructs the outbound request. Called once per send, so a
	// retried operation rebuilds rather than reusing a consumed body.
	Build func(sess *session.Session) (*Request, error)

	// Classify maps a raw response to nil (success) or a classified
	// error. Nil falls back to ClassifyStatus.
	Classify func(resp *Response) error

	// RateLimits extracts quota metadata from a response; zero, one, or
	// many updates. Nil means the adapter reports no quota headers.
	RateLimits func(resp *Response) []ratelimit.Update
}

func (op *Operation) target() string {
	if op.Target != "" {
		return op.Target
	}
	return op.Adapter
}

func (op *Operation) classify(resp *Response) error {
	if op.Classify != nil {
		return op.Classify(resp)
	}
	return ClassifyStatus(resp)
}

// ClassifyStatus is the default response classifier, mapping plain HTTP
// status conventions onto the error taxonomy. Vendor adapters override it
// for peers with bespoke conventions (JSON success flags, 403-as-rate-
// limit disambiguation).
func ClassifyStatus(resp *Response) error {
	switch {
	case resp.Status >= 200 && resp.Status < 300:
		return nil
	case resp.Status == http.StatusUnauthorized:
		return &apierr.Error{Kind: apierr.KindAuthentication, Status: resp.Status}
	case resp.Status == http.StatusForbidden:
		return &apierr.Error{Kind: apierr.KindPermissionDenied, Status: resp.Status}
	case resp.Status == http.StatusNotFound:
		return &apierr.Error{Kind: apierr.KindNotFound, Status: resp.Status}
	case resp.Status == http.StatusTooManyRequests:
		return &apierr.Error{
			Kind:       apierr.KindRateLimited,
			Status:     resp.Status,
			RetryAfter: resp.RetryAfter(),
		}
	case resp.Status >= 500:
		return &apierr.Error{Kind: apierr.KindTransientServer, Status: resp.Status}
	case resp.Status >= 400:
		return &apierr.Error{Kind: apierr.KindValidation, Status: resp.Status}
	default:
		return &apierr.Error{Kind: apierr.KindUnknown, Status: resp.Status}
	}
}
