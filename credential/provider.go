package credential

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/relayops/apierr"
)

// ProviderConfig configures the caching provider.
type ProviderConfig struct {
	// RefreshFraction is the fraction of a credential's TTL after which a
	// proactive refresh is triggered. Default: 0.8
	RefreshFraction float64
}

// cacheEntry pairs a credential with the time it was minted, so the
// proactive refresh threshold can be computed against the full TTL.
type cacheEntry struct {
	cred     *Credential
	issuedAt time.Time
}

// Provider caches credentials per scope set and coalesces refreshes.
type Provider struct {
	source Source
	config ProviderConfig

	mu    sync.RWMutex
	cache map[string]*cacheEntry

	sfGroup singleflight.Group // prevents thundering herd
}

// NewProvider creates a caching provider over the given source.
func NewProvider(source Source, config ProviderConfig) *Provider {
	if config.RefreshFraction <= 0 || config.RefreshFraction > 1 {
		config.RefreshFraction = 0.8
	}
	return &Provider{
		source: source,
		config: config,
		cache:  make(map[string]*cacheEntry),
	}
}

// Get returns a valid credential for the scope set, minting one on a cache
// miss. The fast path takes only a read lock; on a miss, concurrent
// callers for the same scope set share a single Mint call.
func (p *Provider) Get(ctx context.Context, scopes []string) (*Credential, error) {
	if p.source == nil {
		return nil, apierr.Wrap(apierr.KindConfiguration, ErrNoSource)
	}

	key := scopeKey(scopes)
	now := time.Now()

	p.mu.RLock()
	entry := p.cache[key]
	p.mu.RUnlock()

	if entry != nil && p.usable(entry, now) {
		return entry.cred, nil
	}

	return p.refresh(ctx, key, scopes)
}

// Invalidate drops the cached credential for the scope set. Called after a
// 401-class failure so the next Get mints fresh material.
func (p *Provider) Invalidate(scopes []string) {
	key := scopeKey(scopes)

	p.mu.Lock()
	if entry, ok := p.cache[key]; ok {
		entry.cred.Zero()
		delete(p.cache, key)
	}
	p.mu.Unlock()
}

// ForceRefresh invalidates and re-mints in one step, coalescing with any
// refresh already in flight for the same scope set.
func (p *Provider) ForceRefresh(ctx context.Context, scopes []string) (*Credential, error) {
	p.Invalidate(scopes)
	return p.refresh(ctx, scopeKey(scopes), scopes)
}

// refresh mints a credential through singleflight. The cache is re-checked
// inside the flight: a concurrent caller may have completed the refresh by
// the time this one is admitted.
func (p *Provider) refresh(ctx context.Context, key string, scopes []string) (*Credential, error) {
	v, err, _ := p.sfGroup.Do(key, func() (any, error) {
		now := time.Now()

		// Double check: the winner of the previous flight may have
		// repopulated the cache while we queued.
		p.mu.RLock()
		entry := p.cache[key]
		p.mu.RUnlock()
		if entry != nil && p.usable(entry, now) {
			return entry.cred, nil
		}

		cred, err := p.source.Mint(ctx, scopes)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		if old, ok := p.cache[key]; ok && old.cred != cred {
			old.cred.Zero()
		}
		p.cache[key] = &cacheEntry{cred: cred, issuedAt: time.Now()}
		p.mu.Unlock()

		return cred, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Credential), nil
}

// usable reports whether a cached entry can be served: not expired
// and not past the proactive refresh threshold.
func (p *Provider) usable(entry *cacheEntry, now time.Time) bool {
	if entry.cred.Expired(now) {
		return false
	}
	return !entry.cred.ShouldRefresh(now, entry.issuedAt, p.config.RefreshFraction)
}

// Close zeroes all cached material.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, entry := range p.cache {
		entry.cred.Zero()
		delete(p.cache, key)
	}
}
