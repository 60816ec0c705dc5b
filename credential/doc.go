// Package credential produces and refreshes bearer credentials.
//
// A Source knows how to mint one credential: a static API key, an OAuth2
// client-credentials exchange against a token endpoint, or a key-pair JWT
// signed locally with an RSA private key. The set of sources is closed, so
// dispatch happens once at configuration time rather than through runtime
// polymorphism.
//
// Provider caches credentials per scope set. The fast path is a shared
// read of a non-expired cached credential; on a miss, concurrent callers
// coalesce onto a single refresh via singleflight, so N waiters produce
// exactly one network call. Refresh is proactive at a configurable
// fraction of the credential's TTL and reactive via Invalidate after a
// 401-class failure.
//
// Credential values never expose their secret through String, GoString or
// JSON marshalling.
package credential
