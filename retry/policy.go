package retry

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/jonwraymond/relayops/apierr"
)

// Policy computes retry decisions. The zero value is usable; New applies
// defaults.
type Policy struct {
	// MaxAttempts is the maximum number of attempts (including the
	// first). Default: 3
	MaxAttempts int

	// InitialDelay is the backoff before the first retry. Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps a single computed backoff. Default: 30s
	MaxDelay time.Duration

	// Multiplier grows the delay each attempt. Default: 2.0
	Multiplier float64

	// Jitter adds up to 25% randomness to computed delays to avoid
	// thundering herds.
	Jitter bool

	// MaxElapsed bounds total time across attempts, including waits.
	// Zero means no elapsed bound.
	MaxElapsed time.Duration
}

// New creates a policy with defaults applied.
func New(p Policy) *Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2.0
	}
	return &p
}

// Decision is the outcome of classifying one failure.
type Decision struct {
	// Retry is true when another attempt should be made.
	Retry bool

	// Wait is how long to sleep before the next attempt.
	Wait time.Duration

	// Attempt is the attempt number the decision was made for.
	Attempt int
}

// Decide classifies err after the given attempt (1-based) and elapsed time
// since the operation began. hint is a server-provided wait (Retry-After),
// zero if absent; when present it takes precedence over computed backoff.
func (p *Policy) Decide(err error, attempt int, elapsed time.Duration, hint time.Duration) Decision {
	d := Decision{Attempt: attempt}

	kind := apierr.KindOf(err)
	if !apierr.Retryable(kind) {
		return d
	}
	if attempt >= p.MaxAttempts {
		return d
	}
	if p.MaxElapsed > 0 && elapsed >= p.MaxElapsed {
		return d
	}

	wait := p.Backoff(attempt)
	if hint > 0 {
		wait = hint
	}

	// A wait that would blow the elapsed budget is pointless.
	if p.MaxElapsed > 0 && elapsed+wait > p.MaxElapsed {
		return d
	}

	d.Retry = true
	d.Wait = wait
	return d
}

// Backoff returns the computed delay before retrying after the given
// attempt (1-based), with jitter applied.
func (p *Policy) Backoff(attempt int) time.Duration {
	mult := math.Pow(p.Multiplier, float64(attempt-1))
	delay := time.Duration(float64(p.InitialDelay) * mult)

	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}

	if p.Jitter && delay >= 4 {
		// Up to 25% jitter.
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int64N(int64(delay / 4)))
	}

	return delay
}

// Exhausted wraps the last underlying error in a retry-exhausted failure
// carrying the attempt count.
func Exhausted(last error, attempts int) error {
	return &apierr.Error{
		Kind:     apierr.KindRetryExhausted,
		Attempts: attempts,
		Err:      last,
	}
}
