package transfer

import "errors"

// Sentinel errors for chunked transfers.
var (
	// ErrDigestMismatch is returned when transferred content fails
	// integrity verification. Data corruption is not transient; the
	// transfer is never retried automatically.
	ErrDigestMismatch = errors.New("transfer: digest mismatch")

	// ErrRangeMismatch signals the peer rejected a chunk's byte range;
	// the manager recovers by querying the authoritative offset.
	ErrRangeMismatch = errors.New("transfer: range mismatch")

	// ErrNoLocation is returned when upload initiation yields no upload
	// location.
	ErrNoLocation = errors.New("transfer: peer returned no upload location")
)
