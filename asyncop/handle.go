package asyncop

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/relayops/apierr"
	"github.com/jonwraymond/relayops/executor"
)

// Status is the lifecycle state of a remote operation.
type Status int

const (
	// StatusSubmitted means the operation was accepted but not yet seen
	// by a poll.
	StatusSubmitted Status = iota
	// StatusQueued means the peer has the operation waiting to run.
	StatusQueued
	// StatusRunning means the peer is executing the operation.
	StatusRunning
	// StatusSucceeded is terminal.
	StatusSucceeded
	// StatusFailed is terminal.
	StatusFailed
	// StatusCancelled is terminal.
	StatusCancelled
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusSubmitted:
		return "submitted"
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Poller maps one status-check response onto the operation's state and,
// on success, its payload. Vendor adapters provide it (JSON success
// flags, job-state fields).
type Poller func(resp *executor.Response) (Status, []byte, error)

// Config configures a handle's polling behavior.
type Config struct {
	// InitialInterval is the first poll spacing. Default: 500ms
	InitialInterval time.Duration

	// MaxInterval caps the doubling poll spacing. Default: 30s
	MaxInterval time.Duration
}

// Handle tracks one remote operation. Methods are safe for concurrent
// use; the recorded state is mutated only by polling.
type Handle struct {
	// ID is the peer-assigned operation id.
	ID string

	// CreatedAt is when the operation was submitted.
	CreatedAt time.Time

	exec     *executor.Executor
	config   Config
	statusOp executor.Operation
	cancelOp *executor.Operation
	poller   Poller

	mu      sync.RWMutex
	status  Status
	payload []byte
}

// New creates a handle for a submitted operation. statusOp is executed on
// each poll; cancelOp, if non-nil, is executed by Cancel.
func New(exec *executor.Executor, id string, statusOp executor.Operation, cancelOp *executor.Operation, poller Poller, config Config) *Handle {
	if config.InitialInterval <= 0 {
		config.InitialInterval = 500 * time.Millisecond
	}
	if config.MaxInterval <= 0 {
		config.MaxInterval = 30 * time.Second
	}
	return &Handle{
		ID:        id,
		CreatedAt: time.Now(),
		exec:      exec,
		config:    config,
		statusOp:  statusOp,
		cancelOp:  cancelOp,
		poller:    poller,
		status:    StatusSubmitted,
	}
}

// Status returns the last observed state without touching the network.
func (h *Handle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Payload returns the success payload recorded by the last poll, nil
// until the operation succeeds.
func (h *Handle) Payload() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.payload
}

// Poll performs one status check and returns the latest state. Once a
// success or failure has been observed, Poll returns it without another
// network call. A locally recorded cancel still polls: cancellation is
// best-effort and the peer may have completed first.
func (h *Handle) Poll(ctx context.Context) (Status, error) {
	h.mu.RLock()
	current := h.status
	h.mu.RUnlock()
	if current.Terminal() && current != StatusCancelled {
		return current, nil
	}

	resp, err := h.exec.Execute(ctx, h.statusOp)
	if err != nil {
		return current, err
	}

	status, payload, err := h.poller(resp)
	if err != nil {
		return current, err
	}

	h.mu.Lock()
	// A cancel observed locally is not overwritten by a stale poll, but
	// a late success is valid even after Cancel.
	if !(h.status == StatusCancelled && !status.Terminal()) {
		h.status = status
		if status == StatusSucceeded {
			h.payload = payload
		}
	}
	status = h.status
	h.mu.Unlock()

	return status, nil
}

// Wait polls until the operation reaches a terminal state, sleeping a
// doubling, capped interval between polls. It returns the terminal state.
func (h *Handle) Wait(ctx context.Context) (Status, error) {
	interval := h.config.InitialInterval

	for {
		status, err := h.Poll(ctx)
		if err != nil {
			return status, err
		}
		if status.Terminal() {
			return status, nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return status, apierr.Wrap(apierr.KindCancelled, ctx.Err())
		case <-timer.C:
		}

		interval *= 2
		if interval > h.config.MaxInterval {
			interval = h.config.MaxInterval
		}
	}
}

// WaitTimeout races Wait against a deadline. On expiry it returns a
// timeout error and leaves the remote operation running; the handle can
// still be polled or waited on again.
func (h *Handle) WaitTimeout(ctx context.Context, d time.Duration) (Status, error) {
	waitCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	status, err := h.Wait(waitCtx)
	if err != nil && waitCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return status, &apierr.Error{Kind: apierr.KindTimeout, Err: waitCtx.Err()}
	}
	return status, err
}

// Cancel issues a best-effort cancellation. The remote operation may
// still complete; callers must treat a late success as valid.
func (h *Handle) Cancel(ctx context.Context) error {
	if h.cancelOp == nil {
		return apierr.New(apierr.KindConfiguration, "asyncop: operation %s has no cancel request", h.ID)
	}

	if _, err := h.exec.Execute(ctx, *h.cancelOp); err != nil {
		return err
	}

	h.mu.Lock()
	if !h.status.Terminal() {
		h.status = StatusCancelled
	}
	h.mu.Unlock()
	return nil
}
