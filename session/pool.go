package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/jonwraymond/relayops/apierr"
	"github.com/jonwraymond/relayops/credential"
)

// Session is an authenticated unit of work against one peer. It is loaned
// to exactly one caller at a time; the pool never hands the same instance
// to two concurrent callers.
type Session struct {
	// ID uniquely identifies the session.
	ID string

	// Credential is the bearer material attached at creation.
	Credential *credential.Credential

	// CreatedAt is when the session was created.
	CreatedAt time.Time

	// LastUsed is when the session was last returned to the pool.
	LastUsed time.Time

	// Context carries optional vendor fields (warehouse, database, role).
	Context map[string]string

	inUse bool
}

// Factory creates a new session, typically by authenticating against the
// peer. A factory failure propagates to the Acquire caller; the pool slot
// is released, not leaked.
type Factory func(ctx context.Context) (*Session, error)

// PoolConfig configures the session pool.
type PoolConfig struct {
	// MaxSize is the maximum number of live sessions. Default: 10
	MaxSize int

	// IdleTimeout discards a session idle longer than this. Default: 5 minutes
	IdleTimeout time.Duration

	// MaxLifetime discards a session older than this regardless of use.
	// Default: 1 hour
	MaxLifetime time.Duration

	// AcquireTimeout bounds how long Acquire waits for a free slot.
	// Default: 30 seconds
	AcquireTimeout time.Duration
}

// Pool is a bounded pool of reusable sessions.
type Pool struct {
	config  PoolConfig
	factory Factory
	sem     *semaphore.Weighted

	mu        sync.Mutex
	idle      []*Session
	closed    bool
	created   int64
	discarded int64
	active    int
}

// NewPool creates a session pool.
func NewPool(factory Factory, config PoolConfig) *Pool {
	if config.MaxSize <= 0 {
		config.MaxSize = 10
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 5 * time.Minute
	}
	if config.MaxLifetime <= 0 {
		config.MaxLifetime = time.Hour
	}
	if config.AcquireTimeout <= 0 {
		config.AcquireTimeout = 30 * time.Second
	}

	return &Pool{
		config:  config,
		factory: factory,
		sem:     semaphore.NewWeighted(int64(config.MaxSize)),
	}
}

// Acquire loans a session to the caller. It suspends until a slot is free,
// up to the acquire timeout, then returns ErrPoolExhausted. Expired idle
// sessions are discarded and replaced lazily.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, apierr.Wrap(apierr.KindConfiguration, ErrPoolClosed)
	}
	p.mu.Unlock()

	acquireCtx, cancel := context.WithTimeout(ctx, p.config.AcquireTimeout)
	defer cancel()

	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		// Caller cancellation wins over the pool's own timeout.
		if ctx.Err() != nil {
			return nil, apierr.Wrap(apierr.KindCancelled, ctx.Err())
		}
		return nil, apierr.Wrap(apierr.KindPoolExhausted, ErrPoolExhausted)
	}

	// Holding a permit from here on; every exit path below either hands
	// the permit to the caller with a session or releases it.
	sess := p.takeIdle()
	if sess == nil {
		created, err := p.factory(ctx)
		if err != nil {
			p.sem.Release(1)
			return nil, err
		}
		if created.ID == "" {
			created.ID = uuid.NewString()
		}
		if created.CreatedAt.IsZero() {
			created.CreatedAt = time.Now()
		}
		p.mu.Lock()
		p.created++
		p.mu.Unlock()
		sess = created
	}

	p.mu.Lock()
	sess.inUse = true
	p.active++
	p.mu.Unlock()

	return sess, nil
}

// Release returns a session to the pool. An expired session is discarded
// instead of being queued for reuse. Release always frees the permit.
func (p *Pool) Release(sess *Session) {
	if sess == nil {
		return
	}

	now := time.Now()

	p.mu.Lock()
	sess.inUse = false
	sess.LastUsed = now
	p.active--
	if p.closed || p.expiredLocked(sess, now) {
		p.discarded++
	} else {
		p.idle = append(p.idle, sess)
	}
	p.mu.Unlock()

	p.sem.Release(1)
}

// Discard drops a session without queuing it for reuse, freeing the
// permit. Used when the session's credential was rejected.
func (p *Pool) Discard(sess *Session) {
	if sess == nil {
		return
	}

	p.mu.Lock()
	sess.inUse = false
	p.active--
	p.discarded++
	p.mu.Unlock()

	p.sem.Release(1)
}

// takeIdle pops the most recently used non-expired idle session,
// discarding expired ones along the way.
func (p *Pool) takeIdle() *Session {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.idle) > 0 {
		last := len(p.idle) - 1
		sess := p.idle[last]
		p.idle = p.idle[:last]

		if p.expiredLocked(sess, now) {
			p.discarded++
			continue
		}
		return sess
	}
	return nil
}

func (p *Pool) expiredLocked(sess *Session, now time.Time) bool {
	if now.Sub(sess.CreatedAt) >= p.config.MaxLifetime {
		return true
	}
	if !sess.LastUsed.IsZero() && now.Sub(sess.LastUsed) >= p.config.IdleTimeout {
		return true
	}
	return false
}

// Close marks the pool closed and drops all idle sessions. Sessions still
// loaned out are discarded when released.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.discarded += int64(len(p.idle))
	p.idle = nil
}

// Metrics returns current pool statistics.
func (p *Pool) Metrics() PoolMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolMetrics{
		Active:    p.active,
		Idle:      len(p.idle),
		MaxSize:   p.config.MaxSize,
		Created:   p.created,
		Discarded: p.discarded,
	}
}

// PoolMetrics contains pool statistics.
type PoolMetrics struct {
	Active    int
	Idle      int
	MaxSize   int
	Created   int64
	Discarded int64
}
