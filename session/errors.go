package session

import "errors"

// Sentinel errors for pool operations.
var (
	// ErrPoolExhausted is returned when no slot frees up within the
	// acquire timeout.
	ErrPoolExhausted = errors.New("session: pool exhausted")

	// ErrPoolClosed is returned when acquiring from a closed pool.
	ErrPoolClosed = errors.New("session: pool closed")
)
