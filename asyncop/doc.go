// Package asyncop tracks long-running server-side operations.
//
// A Handle wraps one remote operation (an async query, a deferred job).
// Poll performs a single executor-mediated status check; Wait loops with a
// doubling, capped sleep until the operation reaches a terminal state;
// WaitTimeout races Wait against a deadline without cancelling the remote
// operation. Cancel is best-effort: the remote side may complete before
// the cancellation is observed, and a late success after Cancel is valid.
package asyncop
