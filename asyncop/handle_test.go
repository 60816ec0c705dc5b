package asyncop

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/relayops/apierr"
	"github.com/jonwraymond/relayops/executor"
	"github.com/jonwraymond/relayops/session"
)

type jobState struct {
	State  string `json:"state"`
	Result string `json:"result,omitempty"`
}

func jobPoller(resp *executor.Response) (Status, []byte, error) {
	var js jobState
	if err := json.Unmarshal(resp.Body, &js); err != nil {
		return StatusSubmitted, nil, apierr.Wrap(apierr.KindValidation, err)
	}
	switch js.State {
	case "queued":
		return StatusQueued, nil, nil
	case "running":
		return StatusRunning, nil, nil
	case "done":
		return StatusSucceeded, []byte(js.Result), nil
	case "error":
		return StatusFailed, nil, nil
	case "cancelled":
		return StatusCancelled, nil, nil
	default:
		return StatusSubmitted, nil, apierr.New(apierr.KindValidation, "unknown job state %q", js.State)
	}
}

func statusOp() executor.Operation {
	return executor.Operation{
		Name:    "job.status",
		Adapter: "test",
		Build: func(_ *session.Session) (*executor.Request, error) {
			return &executor.Request{Method: http.MethodGet, URL: "https://api.test/jobs/j1"}, nil
		},
	}
}

// jobPeer walks through a fixed state sequence, one step per status call.
type jobPeer struct {
	states    []string
	polls     int64
	cancels   int64
	cancelled atomic.Bool
}

func (p *jobPeer) roundTrip(ctx context.Context, req *executor.Request) (*executor.Response, error) {
	if req.Method == http.MethodDelete {
		atomic.AddInt64(&p.cancels, 1)
		p.cancelled.Store(true)
		return &executor.Response{Status: 202}, nil
	}

	n := atomic.AddInt64(&p.polls, 1)
	state := p.states[len(p.states)-1]
	if int(n) <= len(p.states) {
		state = p.states[n-1]
	}
	if p.cancelled.Load() && state != "done" {
		state = "cancelled"
	}

	body, _ := json.Marshal(jobState{State: state, Result: "42"})
	return &executor.Response{Status: 200, Body: body}, nil
}

func newJobHandle(p *jobPeer, config Config) *Handle {
	exec := executor.New(executor.TransportFunc(p.roundTrip), executor.Config{})
	cancelOp := &executor.Operation{
		Name:    "job.cancel",
		Adapter: "test",
		Build: func(_ *session.Session) (*executor.Request, error) {
			return &executor.Request{Method: http.MethodDelete, URL: "https://api.test/jobs/j1"}, nil
		},
	}
	return New(exec, "j1", statusOp(), cancelOp, jobPoller, config)
}

func TestHandle_PollProgression(t *testing.T) {
	peer := &jobPeer{states: []string{"queued", "running", "done"}}
	h := newJobHandle(peer, Config{})

	if h.Status() != StatusSubmitted {
		t.Fatalf("initial status = %v, want submitted", h.Status())
	}

	want := []Status{StatusQueued, StatusRunning, StatusSucceeded}
	for i, w := range want {
		got, err := h.Poll(context.Background())
		if err != nil {
			t.Fatalf("Poll #%d error = %v", i+1, err)
		}
		if got != w {
			t.Errorf("Poll #%d = %v, want %v", i+1, got, w)
		}
	}

	if string(h.Payload()) != "42" {
		t.Errorf("Payload() = %q, want the success result", h.Payload())
	}
}

func TestHandle_TerminalShortCircuits(t *testing.T) {
	peer := &jobPeer{states: []string{"done"}}
	h := newJobHandle(peer, Config{})

	if _, err := h.Poll(context.Background()); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := h.Poll(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := atomic.LoadInt64(&peer.polls); got != 1 {
		t.Errorf("status calls = %d, want 1: a terminal state must not be re-polled", got)
	}
}

func TestHandle_WaitPacing(t *testing.T) {
	peer := &jobPeer{states: []string{"queued", "running", "done"}}
	h := newJobHandle(peer, Config{InitialInterval: 500 * time.Millisecond})

	start := time.Now()
	status, err := h.Wait(context.Background())
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if status != StatusSucceeded {
		t.Errorf("status = %v, want succeeded", status)
	}
	// Two sleeps between three polls: 500ms then 1s of doubled interval.
	if elapsed < 1500*time.Millisecond {
		t.Errorf("Wait() returned after %v, want at least 1.5s of poll spacing", elapsed)
	}
	if got := atomic.LoadInt64(&peer.polls); got != 3 {
		t.Errorf("status calls = %d, want 3", got)
	}
}

func TestHandle_WaitTimeout(t *testing.T) {
	peer := &jobPeer{states: []string{"running"}}
	h := newJobHandle(peer, Config{InitialInterval: 20 * time.Millisecond, MaxInterval: 20 * time.Millisecond})

	status, err := h.WaitTimeout(context.Background(), 100*time.Millisecond)
	if kind := apierr.KindOf(err); kind != apierr.KindTimeout {
		t.Fatalf("kind = %v, want timeout", kind)
	}
	if status.Terminal() {
		t.Errorf("status = %v, want non-terminal: the remote operation is untouched", status)
	}

	// The handle survives the timeout and can be polled again.
	peer.states = []string{"done"}
	atomic.StoreInt64(&peer.polls, 0)
	got, err := h.Poll(context.Background())
	if err != nil || got != StatusSucceeded {
		t.Errorf("Poll() after timeout = (%v, %v), want succeeded", got, err)
	}
}

func TestHandle_WaitCancelled(t *testing.T) {
	peer := &jobPeer{states: []string{"running"}}
	h := newJobHandle(peer, Config{InitialInterval: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := h.Wait(ctx)
	if kind := apierr.KindOf(err); kind != apierr.KindCancelled {
		t.Errorf("kind = %v, want cancelled", kind)
	}
}

func TestHandle_Cancel(t *testing.T) {
	peer := &jobPeer{states: []string{"running"}}
	h := newJobHandle(peer, Config{})

	if _, err := h.Poll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := h.Cancel(context.Background()); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if atomic.LoadInt64(&peer.cancels) != 1 {
		t.Error("cancel request never reached the peer")
	}
	if h.Status() != StatusCancelled {
		t.Errorf("status = %v, want cancelled", h.Status())
	}

	// A stale non-terminal poll must not resurrect a cancelled handle.
	peer.cancelled.Store(false)
	if got, _ := h.Poll(context.Background()); got != StatusCancelled {
		t.Errorf("Poll() after cancel = %v, want cancelled to stick", got)
	}
}

func TestHandle_LateSuccessAfterCancel(t *testing.T) {
	// The peer finished before the cancellation landed.
	peer := &jobPeer{states: []string{"running", "done"}}
	h := newJobHandle(peer, Config{})

	if _, err := h.Poll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := h.Cancel(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, err := h.Poll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != StatusSucceeded {
		t.Errorf("Poll() = %v, want a late success to overwrite the cancel", got)
	}
	if string(h.Payload()) != "42" {
		t.Error("late success payload was not recorded")
	}
}

func TestHandle_NoCancelOp(t *testing.T) {
	peer := &jobPeer{states: []string{"running"}}
	exec := executor.New(executor.TransportFunc(peer.roundTrip), executor.Config{})
	h := New(exec, "j1", statusOp(), nil, jobPoller, Config{})

	err := h.Cancel(context.Background())
	if kind := apierr.KindOf(err); kind != apierr.KindConfiguration {
		t.Errorf("kind = %v, want configuration when no cancel request exists", kind)
	}
}
