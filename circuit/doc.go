// Package circuit implements a per-target circuit breaker.
//
// A Breaker moves Closed → Open after a run of consecutive failures, Open
// → HalfOpen once the reset timeout elapses, HalfOpen → Closed after a run
// of consecutive probe successes, and HalfOpen → Open on any probe
// failure. In the half-open state exactly one in-flight probe is admitted
// at a time; concurrent callers are rejected as if the breaker were open.
//
// A breaker protects one logical target (an API host or an operation
// class), not a whole client. BreakerSet manages one breaker per target.
package circuit
