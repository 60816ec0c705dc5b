// Package ratelimit provides admission control against server-reported
// quotas and a local token bucket.
//
// Tracker keeps one independent quota state per category (core, search,
// graphql, read, write, or whatever the adapter defines). Check is consulted
// before sending and reports how long to wait when the quota is exhausted;
// Update absorbs the limit/remaining/reset values the server reported on a
// response. Exhausting one category never blocks another.
//
// Bucket is a client-side token bucket for peers that publish a request
// rate but no quota headers.
package ratelimit
