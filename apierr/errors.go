package apierr

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind classifies a transport failure.
type Kind int

const (
	// KindUnknown is an unclassified failure. Not retried.
	KindUnknown Kind = iota
	// KindConfiguration means required material (key file, endpoint) is
	// absent or malformed. Not retried.
	KindConfiguration
	// KindValidation means the request was rejected as invalid. Not retried.
	KindValidation
	// KindAuthentication means the credential was rejected. Retried once
	// after a forced credential refresh.
	KindAuthentication
	// KindPermissionDenied means the identity lacks access. Not retried.
	KindPermissionDenied
	// KindNotFound means the target does not exist. Not retried.
	KindNotFound
	// KindRateLimited means a quota was exhausted. Retried after the
	// server-indicated or computed wait.
	KindRateLimited
	// KindCircuitOpen means the breaker for the target is open. Fails fast.
	KindCircuitOpen
	// KindTransientServer means a 5xx-class failure. Retried with backoff.
	KindTransientServer
	// KindNetwork means the request never completed (connection reset,
	// DNS failure). Retried with backoff.
	KindNetwork
	// KindTimeout means a single attempt exceeded its per-attempt deadline.
	// Retried with backoff.
	KindTimeout
	// KindDeadlineExceeded means the overall operation deadline expired.
	// Terminal; distinct from KindTimeout so callers can tell "the network
	// was slow once" from "we gave up".
	KindDeadlineExceeded
	// KindDigestMismatch means transferred content failed integrity
	// verification. Never retried automatically.
	KindDigestMismatch
	// KindPoolExhausted means no session slot became available in time.
	KindPoolExhausted
	// KindRetryExhausted means the retry budget ran out. Wraps the last
	// underlying error.
	KindRetryExhausted
	// KindCancelled means the caller cancelled a suspended operation.
	KindCancelled
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindPermissionDenied:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindCircuitOpen:
		return "circuit_open"
	case KindTransientServer:
		return "transient_server"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindDeadlineExceeded:
		return "deadline_exceeded"
	case KindDigestMismatch:
		return "digest_mismatch"
	case KindPoolExhausted:
		return "pool_exhausted"
	case KindRetryExhausted:
		return "retry_exhausted"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is a classified transport failure with enough structured context
// for a caller to decide whether to surface it or retry at a higher level.
type Error struct {
	// Kind is the failure classification.
	Kind Kind

	// Target is the logical target (host or operation class), if known.
	Target string

	// Category is the rate-limit category, if the failure is quota-related.
	Category string

	// Status is the last HTTP (or mapped) status code, 0 if none.
	Status int

	// Attempts is how many attempts were made before giving up.
	Attempts int

	// RetryAfter is a server-provided wait hint, 0 if none.
	RetryAfter time.Duration

	// Err is the underlying cause, may be nil.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "relayops: " + e.Kind.String()
	if e.Target != "" {
		msg += " [" + e.Target + "]"
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an existing error. An err that is already an *Error is
// returned unchanged so the original classification survives rewrapping.
func Wrap(kind Kind, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the classification of err, or KindUnknown. Bare context
// errors are mapped to KindCancelled and KindTimeout; code that can tell an
// overall deadline from a per-attempt one wraps explicitly instead.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// Retryable reports whether an error of this kind may be retried by the
// executor's backoff loop. Authentication is handled separately (one forced
// refresh at the send step) and is not part of the backoff loop.
func Retryable(kind Kind) bool {
	switch kind {
	case KindRateLimited, KindTransientServer, KindNetwork, KindTimeout:
		return true
	default:
		return false
	}
}
