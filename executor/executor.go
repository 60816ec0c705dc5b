package executor

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/relayops/apierr"
	"github.com/jonwraymond/relayops/circuit"
	"github.com/jonwraymond/relayops/credential"
	"github.com/jonwraymond/relayops/ratelimit"
	"github.com/jonwraymond/relayops/retry"
	"github.com/jonwraymond/relayops/session"
	"github.com/jonwraymond/relayops/telemetry"
)

// Config configures the executor.
type Config struct {
	// AttemptTimeout bounds one send (connect plus read). Default: 30s
	AttemptTimeout time.Duration

	// OverallTimeout bounds the whole retry loop including rate-limit
	// waits and backoff sleeps. Zero means no overall bound. Expiry
	// surfaces as a deadline-exceeded error, distinct from a per-attempt
	// timeout.
	OverallTimeout time.Duration

	// FailFast makes a rate-limited operation return immediately with
	// the wait duration instead of sleeping through it.
	FailFast bool

	// AuthScheme is the Authorization header scheme. Default: "Bearer"
	AuthScheme string
}

// Executor orchestrates logical operations through the resilience core.
// All collaborators are optional except the transport; an executor with
// only a transport degrades to a plain classified sender.
type Executor struct {
	config    Config
	transport Transport
	creds     *credential.Provider
	pool      *session.Pool
	tracker   *ratelimit.Tracker
	bucket    *ratelimit.Bucket
	breakers  *circuit.BreakerSet
	policy    *retry.Policy
	logger    telemetry.Logger
	tracer    trace.Tracer
	metrics   telemetry.Metrics
}

// Option configures an Executor.
type Option func(*Executor)

// WithCredentials attaches a credential provider.
func WithCredentials(p *credential.Provider) Option {
	return func(e *Executor) { e.creds = p }
}

// WithPool attaches a session pool.
func WithPool(p *session.Pool) Option {
	return func(e *Executor) { e.pool = p }
}

// WithTracker attaches a server-quota tracker.
func WithTracker(t *ratelimit.Tracker) Option {
	return func(e *Executor) { e.tracker = t }
}

// WithBucket attaches a client-side token bucket.
func WithBucket(b *ratelimit.Bucket) Option {
	return func(e *Executor) { e.bucket = b }
}

// WithBreakers attaches a per-target breaker set.
func WithBreakers(s *circuit.BreakerSet) Option {
	return func(e *Executor) { e.breakers = s }
}

// WithPolicy sets the retry policy.
func WithPolicy(p *retry.Policy) Option {
	return func(e *Executor) { e.policy = p }
}

// WithObserver wires telemetry. Metrics instrument creation errors fall
// back to noop rather than failing construction.
func WithObserver(obs telemetry.Observer) Option {
	return func(e *Executor) {
		e.logger = obs.Logger()
		e.tracer = obs.Tracer()
		if m, err := telemetry.NewMetrics(obs.Meter()); err == nil {
			e.metrics = m
		}
	}
}

// New creates an executor over the given transport.
func New(transport Transport, config Config, opts ...Option) *Executor {
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = 30 * time.Second
	}
	if config.AuthScheme == "" {
		config.AuthScheme = "Bearer"
	}

	e := &Executor{
		config:    config,
		transport: transport,
		policy:    retry.New(retry.Policy{Jitter: true}),
		logger:    telemetry.NopLogger(),
		tracer:    tracenoop.NewTracerProvider().Tracer("noop"),
		metrics:   telemetry.NopMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one logical operation to completion: through admission
// control, circuit breaking, the send itself, and the retry loop. It
// returns the peer's response on success and exactly one classified error
// on failure. It never panics.
func (e *Executor) Execute(ctx context.Context, op Operation) (*Response, error) {
	meta := telemetry.OpMeta{
		Adapter:  op.Adapter,
		Name:     op.Name,
		Target:   op.target(),
		Category: string(op.Category),
	}

	opCtx := ctx
	if e.config.OverallTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, e.config.OverallTimeout)
		defer cancel()
	}

	spanCtx, span := telemetry.StartSpan(opCtx, e.tracer, meta)
	start := time.Now()

	resp, attempts, err := e.run(spanCtx, ctx, op, meta)

	telemetry.EndSpan(span, attempts, err)
	e.metrics.RecordRequest(ctx, meta, time.Since(start), attempts, err)
	return resp, err
}

// run is the retry loop around attempts.
func (e *Executor) run(ctx, callerCtx context.Context, op Operation, meta telemetry.OpMeta) (*Response, int, error) {
	logger := e.logger.WithOp(meta)
	start := time.Now()

	for attempt := 1; ; attempt++ {
		resp, err := e.attempt(ctx, callerCtx, op, logger)
		if err == nil {
			return resp, attempt, nil
		}
		err = e.normalize(ctx, callerCtx, err)

		kind := apierr.KindOf(err)
		if !apierr.Retryable(kind) {
			return nil, attempt, err
		}
		if kind == apierr.KindRateLimited && e.config.FailFast {
			// Fail-fast callers handle quota waits at their own level.
			return nil, attempt, err
		}

		decision := e.policy.Decide(err, attempt, time.Since(start), retryAfterOf(err))
		if !decision.Retry {
			return nil, attempt, retry.Exhausted(err, attempt)
		}

		logger.Warn(ctx, "retrying operation",
			telemetry.F("kind", kind.String()),
			telemetry.F("attempt", attempt),
			telemetry.F("wait_ms", decision.Wait.Milliseconds()),
		)

		if serr := e.sleep(ctx, decision.Wait); serr != nil {
			return nil, attempt, e.normalize(ctx, callerCtx, serr)
		}
	}
}

// attempt performs one pass through the admission pipeline and one send
// (plus at most one credential-refresh resend). The session permit and the
// half-open probe slot are returned on every exit path.
func (e *Executor) attempt(ctx, callerCtx context.Context, op Operation, logger telemetry.Logger) (*Response, error) {
	// Step 1: session.
	var sess *session.Session
	discard := false
	if e.pool != nil {
		acquired, err := e.pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		sess = acquired
		defer func() {
			if discard {
				e.pool.Discard(sess)
			} else {
				e.pool.Release(sess)
			}
		}()
	}

	// Step 2: admission against the local bucket and the server quota.
	if e.bucket != nil {
		if e.config.FailFast {
			if !e.bucket.Allow() {
				return nil, &apierr.Error{
					Kind:     apierr.KindRateLimited,
					Category: string(op.Category),
					Err:      ratelimit.ErrQuotaExhausted,
				}
			}
		} else if err := e.bucket.Wait(ctx); err != nil {
			return nil, apierr.Wrap(apierr.KindRateLimited, err)
		}
	}
	if e.tracker != nil {
		if ok, wait := e.tracker.Check(op.Category); !ok {
			if e.config.FailFast {
				return nil, &apierr.Error{
					Kind:       apierr.KindRateLimited,
					Category:   string(op.Category),
					RetryAfter: wait,
					Err:        ratelimit.ErrQuotaExhausted,
				}
			}
			logger.Debug(ctx, "waiting for rate limit window",
				telemetry.F("category", string(op.Category)),
				telemetry.F("wait_ms", wait.Milliseconds()),
			)
			if err := e.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
	}

	// Step 3: circuit.
	var breaker *circuit.Breaker
	if e.breakers != nil {
		breaker = e.breakers.For(op.target())
		if !breaker.Allow() {
			return nil, &apierr.Error{
				Kind:   apierr.KindCircuitOpen,
				Target: op.target(),
				Err:    circuit.ErrOpen,
			}
		}
	}

	// Steps 4-6: send, classify, feed state back. From here the breaker
	// must see exactly one record call.
	resp, err := e.send(ctx, op, sess)

	if resp != nil && e.tracker != nil && op.RateLimits != nil {
		e.tracker.Apply(op.RateLimits(resp)...)
	}

	if breaker != nil {
		if indictsTarget(err) {
			breaker.RecordFailure()
		} else {
			breaker.RecordSuccess()
		}
	}

	if err != nil && apierr.KindOf(err) == apierr.KindAuthentication {
		// The session's credential was rejected; do not requeue it.
		discard = true
	}
	return resp, err
}

// send builds and sends the request once, with one forced credential
// refresh and resend if the peer rejects the credential.
func (e *Executor) send(ctx context.Context, op Operation, sess *session.Session) (*Response, error) {
	refreshed := false
	for {
		req, err := e.buildRequest(ctx, op, sess)
		if err != nil {
			return nil, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, e.config.AttemptTimeout)
		resp, err := e.transport.RoundTrip(attemptCtx, req)
		cancel()
		if err != nil {
			return nil, err
		}

		err = op.classify(resp)
		if err == nil {
			return resp, nil
		}

		if apierr.KindOf(err) == apierr.KindAuthentication && !refreshed && e.creds != nil {
			refreshed = true
			if _, rerr := e.creds.ForceRefresh(ctx, op.Scopes); rerr != nil {
				return resp, rerr
			}
			continue
		}
		return resp, err
	}
}

// buildRequest runs the adapter's builder and attaches the credential.
func (e *Executor) buildRequest(ctx context.Context, op Operation, sess *session.Session) (*Request, error) {
	if op.Build == nil {
		return nil, apierr.New(apierr.KindConfiguration, "operation %q has no request builder", op.Name)
	}

	req, err := op.Build(sess)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindConfiguration, err)
	}

	if e.creds != nil {
		cred, err := e.creds.Get(ctx, op.Scopes)
		if err != nil {
			return nil, err
		}
		req.Header().Set("Authorization", e.config.AuthScheme+" "+cred.Secret())
	}
	return req, nil
}

// sleep suspends cooperatively, honoring cancellation and the overall
// deadline. A zero or negative duration returns immediately.
func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// normalize maps raw context errors onto the taxonomy, distinguishing the
// caller's cancellation from the overall deadline and from a per-attempt
// timeout (which the transport classifies itself).
func (e *Executor) normalize(ctx, callerCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if callerCtx.Err() == context.Canceled {
		if apierr.KindOf(err) == apierr.KindCancelled {
			return err
		}
		return &apierr.Error{Kind: apierr.KindCancelled, Err: err}
	}
	if ctx.Err() == context.DeadlineExceeded && callerCtx.Err() == nil {
		return &apierr.Error{Kind: apierr.KindDeadlineExceeded, Err: err}
	}
	return err
}

// indictsTarget reports whether a failure says the target itself is
// unhealthy. Responses that prove the peer is alive (4xx-class outcomes,
// quota exhaustion) do not count against the breaker.
func indictsTarget(err error) bool {
	switch apierr.KindOf(err) {
	case apierr.KindTransientServer, apierr.KindNetwork, apierr.KindTimeout:
		return true
	default:
		return false
	}
}

// retryAfterOf extracts a server wait hint from a classified error.
func retryAfterOf(err error) time.Duration {
	var e *apierr.Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}
