package ratelimit

import (
	"sync"
	"time"
)

// Category identifies an independent quota tier.
type Category string

// Common categories. Adapters may define their own.
const (
	CategoryCore    Category = "core"
	CategorySearch  Category = "search"
	CategoryGraphQL Category = "graphql"
	CategoryRead    Category = "read"
	CategoryWrite   Category = "write"
)

// Update carries quota metadata extracted from one response. A response
// may yield zero, one, or many updates.
type Update struct {
	Category  Category
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// State is a snapshot of one category's quota.
type State struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	UpdatedAt time.Time
}

// categoryState holds one category's quota under its own lock so
// categories stay independent.
type categoryState struct {
	mu sync.RWMutex
	State
	known bool
}

// Tracker tracks server-reported quota state per category. Many callers
// may check concurrently; updates take the category's write lock.
type Tracker struct {
	mu         sync.RWMutex
	categories map[Category]*categoryState
}

// NewTracker creates an empty tracker. Categories are created lazily on
// first check or update; an unknown category always admits.
func NewTracker() *Tracker {
	return &Tracker{categories: make(map[Category]*categoryState)}
}

// Check reports whether a request in the category may proceed now. When
// the quota is exhausted and the reset time has not passed, it returns
// false and the duration to wait. Once the reset time passes, requests are
// optimistically admitted; the next Update corrects the state.
func (t *Tracker) Check(category Category) (ok bool, wait time.Duration) {
	cs := t.lookup(category)
	if cs == nil {
		return true, 0
	}

	cs.mu.RLock()
	defer cs.mu.RUnlock()

	if !cs.known || cs.Remaining > 0 {
		return true, 0
	}

	now := time.Now()
	if !now.Before(cs.ResetAt) {
		// Window rolled over; admit optimistically.
		return true, 0
	}
	return false, cs.ResetAt.Sub(now)
}

// Apply absorbs quota metadata from a response. Stale updates (older than
// the recorded reset window) are still applied: the server is
// authoritative.
func (t *Tracker) Apply(updates ...Update) {
	for _, u := range updates {
		cs := t.ensure(u.Category)

		cs.mu.Lock()
		cs.Limit = u.Limit
		cs.Remaining = u.Remaining
		cs.ResetAt = u.ResetAt
		cs.UpdatedAt = time.Now()
		cs.known = true
		cs.mu.Unlock()
	}
}

// Snapshot returns the current state of a category and whether the tracker
// has seen it.
func (t *Tracker) Snapshot(category Category) (State, bool) {
	cs := t.lookup(category)
	if cs == nil {
		return State{}, false
	}

	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.State, cs.known
}

func (t *Tracker) lookup(category Category) *categoryState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.categories[category]
}

func (t *Tracker) ensure(category Category) *categoryState {
	t.mu.RLock()
	cs := t.categories[category]
	t.mu.RUnlock()
	if cs != nil {
		return cs
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if cs = t.categories[category]; cs == nil {
		cs = &categoryState{}
		t.categories[category] = cs
	}
	return cs
}
