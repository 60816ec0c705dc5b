package credential

import (
	"sort"
	"strings"
	"time"
)

// Credential is an opaque bearer secret with an expiry and a scope set.
type Credential struct {
	secret    []byte
	ExpiresAt time.Time
	Scopes    []string
}

// NewCredential creates a credential. The secret is copied so the caller's
// buffer can be reused or zeroed independently.
func NewCredential(secret string, expiresAt time.Time, scopes []string) *Credential {
	return &Credential{
		secret:    []byte(secret),
		ExpiresAt: expiresAt,
		Scopes:    scopes,
	}
}

// Secret returns the bearer value for use in an Authorization header.
func (c *Credential) Secret() string {
	return string(c.secret)
}

// Expired reports whether the credential is past its expiry.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ShouldRefresh reports whether the credential has consumed the given
// fraction of its total lifetime, measured from issuedAt.
func (c *Credential) ShouldRefresh(now, issuedAt time.Time, fraction float64) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	ttl := c.ExpiresAt.Sub(issuedAt)
	if ttl <= 0 {
		return true
	}
	return now.Sub(issuedAt) >= time.Duration(float64(ttl)*fraction)
}

// Zero overwrites the secret material. Called when a credential is
// superseded by a refresh.
func (c *Credential) Zero() {
	for i := range c.secret {
		c.secret[i] = 0
	}
	c.secret = nil
}

// String returns a redacted representation. The secret is never printed.
func (c *Credential) String() string {
	return "credential:[REDACTED]"
}

// GoString returns a redacted representation for %#v.
func (c *Credential) GoString() string {
	return c.String()
}

// MarshalJSON redacts the secret.
func (c *Credential) MarshalJSON() ([]byte, error) {
	return []byte(`"[REDACTED]"`), nil
}

// scopeKey returns a canonical cache key for a scope set: sorted,
// deduplicated, space-joined. An empty scope set keys as "".
func scopeKey(scopes []string) string {
	if len(scopes) == 0 {
		return ""
	}
	sorted := make([]string, 0, len(scopes))
	seen := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		if !seen[s] {
			seen[s] = true
			sorted = append(sorted, s)
		}
	}
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}
