package ratelimit

import (
	"context"
	"sync"
	"time"
)

// BucketConfig configures the client-side token bucket.
type BucketConfig struct {
	// Rate is the sustained number of requests allowed per second.
	// Default: 100
	Rate float64

	// Burst is the maximum burst size. Default: 10
	Burst int

	// MaxWait bounds how long Wait will sleep for a token.
	// Default: 1 second
	MaxWait time.Duration
}

// Bucket is a token bucket used ahead of server quotas, for peers that
// publish a request rate but no quota headers.
type Bucket struct {
	config BucketConfig

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewBucket creates a token bucket starting at full burst capacity.
func NewBucket(config BucketConfig) *Bucket {
	if config.Rate <= 0 {
		config.Rate = 100
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}
	return &Bucket{
		config: config,
		tokens: float64(config.Burst),
		last:   time.Now(),
	}
}

// Allow consumes one token if available.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Wait suspends until a token is available, the MaxWait elapses, or the
// context is cancelled. It returns ErrQuotaExhausted when the capped wait
// still did not yield a token.
func (b *Bucket) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.Allow() {
		return nil
	}

	b.mu.Lock()
	needed := 1 - b.tokens
	wait := time.Duration(needed / b.config.Rate * float64(time.Second))
	b.mu.Unlock()

	if wait > b.config.MaxWait {
		wait = b.config.MaxWait
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		if b.Allow() {
			return nil
		}
		return ErrQuotaExhausted
	}
}

// Tokens returns the current token count after refill.
func (b *Bucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	return b.tokens
}

func (b *Bucket) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(b.last)
	b.last = now

	b.tokens += elapsed.Seconds() * b.config.Rate
	if b.tokens > float64(b.config.Burst) {
		b.tokens = float64(b.config.Burst)
	}
}
