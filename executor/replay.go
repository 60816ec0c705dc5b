package executor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/jonwraymond/relayops/apierr"
)

// ReplayMode selects how a ReplayTransport behaves.
type ReplayMode int

const (
	// ModeRecord passes requests through to the inner transport and
	// records each exchange.
	ModeRecord ReplayMode = iota
	// ModeReplay serves recorded responses without touching the network.
	ModeReplay
)

// exchange is one recorded request/response pair.
type exchange struct {
	Fingerprint string    `json:"fingerprint"`
	Response    *Response `json:"response"`
}

// ReplayTransport is a record/replay simulation backend. In record mode it
// delegates to an inner transport and captures every exchange keyed by a
// normalized request fingerprint; in replay mode it serves the recorded
// responses in order per fingerprint. Resilience state (breakers, quotas,
// retries) is untouched: replay sits strictly at the wire boundary.
type ReplayTransport struct {
	mode  ReplayMode
	inner Transport

	mu       sync.Mutex
	recorded []exchange
	queues   map[string][]*Response
}

// NewRecorder creates a transport that records through inner.
func NewRecorder(inner Transport) *ReplayTransport {
	return &ReplayTransport{
		mode:   ModeRecord,
		inner:  inner,
		queues: make(map[string][]*Response),
	}
}

// NewReplayer creates a transport that serves a saved recording.
func NewReplayer(r io.Reader) (*ReplayTransport, error) {
	var recorded []exchange
	if err := json.NewDecoder(r).Decode(&recorded); err != nil {
		return nil, apierr.Wrap(apierr.KindConfiguration, err)
	}

	t := &ReplayTransport{
		mode:   ModeReplay,
		queues: make(map[string][]*Response),
	}
	for _, ex := range recorded {
		t.queues[ex.Fingerprint] = append(t.queues[ex.Fingerprint], ex.Response)
	}
	return t, nil
}

// RoundTrip records or replays one exchange.
func (t *ReplayTransport) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	fp := Fingerprint(req)

	if t.mode == ModeRecord {
		resp, err := t.inner.RoundTrip(ctx, req)
		if err != nil {
			return nil, err
		}
		t.mu.Lock()
		t.recorded = append(t.recorded, exchange{Fingerprint: fp, Response: resp})
		t.mu.Unlock()
		return resp, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	queue := t.queues[fp]
	if len(queue) == 0 {
		return nil, apierr.New(apierr.KindConfiguration,
			"replay: no recorded response for fingerprint %s (%s %s)", fp[:12], req.Method, req.URL)
	}
	resp := queue[0]
	if len(queue) > 1 {
		// Keep serving the last response once the queue drains to one,
		// so idempotent polls replay cleanly.
		t.queues[fp] = queue[1:]
	}
	return resp, nil
}

// Save writes the recording as JSON.
func (t *ReplayTransport) Save(w io.Writer) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t.recorded)
}

// Fingerprint returns the normalized identity of a request: method, path,
// sorted query parameters, and a body digest. Header values are excluded
// so credentials never reach a recording key.
func Fingerprint(req *Request) string {
	var b strings.Builder
	b.WriteString(req.Method)
	b.WriteByte(' ')

	if u, err := url.Parse(req.URL); err == nil {
		b.WriteString(u.Host)
		b.WriteString(u.Path)
		if u.RawQuery != "" {
			params := u.Query()
			keys := make([]string, 0, len(params))
			for k := range params {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			b.WriteByte('?')
			for i, k := range keys {
				if i > 0 {
					b.WriteByte('&')
				}
				vs := params[k]
				sort.Strings(vs)
				b.WriteString(k + "=" + strings.Join(vs, ","))
			}
		}
	} else {
		b.WriteString(req.URL)
	}

	if len(req.Body) > 0 {
		sum := sha256.Sum256(req.Body)
		b.WriteByte(' ')
		b.WriteString(hex.EncodeToString(sum[:8]))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

var _ Transport = (*ReplayTransport)(nil)
