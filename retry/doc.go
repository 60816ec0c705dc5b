// Package retry maps a classified failure and an attempt count to a
// decision: give up, or wait and try again.
//
// The policy is pure: it mutates nothing and performs no sleeps. Rate
// limit, transient-server, network and per-attempt timeout failures back
// off exponentially with jitter; a server-provided wait hint takes
// precedence over the computed delay. Validation, not-found and
// permission failures never retry. Both an attempt budget and an elapsed
// budget bound the loop; crossing either yields a retry-exhausted error
// wrapping the last underlying failure.
package retry
