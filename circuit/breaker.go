package circuit

import (
	"sync"
	"time"
)

// State represents the breaker state.
type State int

const (
	// StateClosed means requests flow normally.
	StateClosed State = iota
	// StateOpen means requests are rejected until the reset timeout.
	StateOpen
	// StateHalfOpen means a limited probe is testing recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config configures a breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit. Default: 5
	FailureThreshold int

	// SuccessThreshold is the number of consecutive probe successes that
	// closes a half-open circuit. Default: 1
	SuccessThreshold int

	// ResetTimeout is how long the circuit stays open before admitting a
	// probe. Default: 30 seconds
	ResetTimeout time.Duration

	// OnStateChange is called when the state changes.
	OnStateChange func(target string, from, to State)
}

func (c *Config) applyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
}

// Breaker guards one logical target.
type Breaker struct {
	target string
	config Config

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time
	probing     bool
}

// NewBreaker creates a closed breaker for the target.
func NewBreaker(target string, config Config) *Breaker {
	config.applyDefaults()
	return &Breaker{
		target: target,
		config: config,
		state:  StateClosed,
	}
}

// Allow reports whether a request may be sent. In the half-open state it
// atomically reserves the single probe slot; callers that are admitted
// must follow up with RecordSuccess or RecordFailure to return the slot.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case StateOpen:
		return false
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

// RecordSuccess records a successful request.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.probing = false
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.transitionLocked(StateClosed)
			b.failures = 0
			b.successes = 0
		}
	}
}

// RecordFailure records a failed request.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case StateClosed:
		b.failures++
		b.lastFailure = time.Now()
		if b.failures >= b.config.FailureThreshold {
			b.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		// Probe failed; restart the open window.
		b.probing = false
		b.successes = 0
		b.lastFailure = time.Now()
		b.transitionLocked(StateOpen)
	}
}

// State returns the current state, accounting for reset-timeout expiry.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

// Target returns the logical target this breaker guards.
func (b *Breaker) Target() string {
	return b.target
}

// Reset forces the breaker closed and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	old := b.state
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.probing = false

	if old != StateClosed && b.config.OnStateChange != nil {
		b.config.OnStateChange(b.target, old, StateClosed)
	}
}

// stateLocked lazily moves Open to HalfOpen once the reset timeout has
// elapsed. Caller must hold the lock.
func (b *Breaker) stateLocked() State {
	if b.state == StateOpen && time.Since(b.lastFailure) >= b.config.ResetTimeout {
		b.state = StateHalfOpen
		b.probing = false
		b.successes = 0
		if b.config.OnStateChange != nil {
			b.config.OnStateChange(b.target, StateOpen, StateHalfOpen)
		}
	}
	return b.state
}

func (b *Breaker) transitionLocked(to State) {
	from := b.state
	b.state = to
	if from != to && b.config.OnStateChange != nil {
		b.config.OnStateChange(b.target, from, to)
	}
}

// BreakerSet manages one breaker per logical target, created lazily with a
// shared configuration.
type BreakerSet struct {
	config Config

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewBreakerSet creates an empty set.
func NewBreakerSet(config Config) *BreakerSet {
	config.applyDefaults()
	return &BreakerSet{
		config:   config,
		breakers: make(map[string]*Breaker),
	}
}

// For returns the breaker for a target, creating it on first use.
func (s *BreakerSet) For(target string) *Breaker {
	s.mu.RLock()
	b := s.breakers[target]
	s.mu.RUnlock()
	if b != nil {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b = s.breakers[target]; b == nil {
		b = NewBreaker(target, s.config)
		s.breakers[target] = b
	}
	return b
}
