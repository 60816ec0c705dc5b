// Package session provides a bounded pool of authenticated sessions.
//
// A Session is owned by the pool while idle and loaned to exactly one
// caller while in use. Acquire suspends on a weighted semaphore until a
// slot is free, subject to an acquire timeout; the permit is released on
// every exit path, including create failure and caller cancellation.
// Sessions past their idle timeout or max lifetime are discarded on
// acquire rather than reused.
package session
