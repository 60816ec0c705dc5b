package credential

import "errors"

// Sentinel errors for credential acquisition.
var (
	// ErrNoSource is returned when the provider has no configured source.
	ErrNoSource = errors.New("credential: no source configured")

	// ErrMissingKey is returned when key-pair material is absent.
	ErrMissingKey = errors.New("credential: missing private key")

	// ErrMissingEndpoint is returned when the token endpoint is not set.
	ErrMissingEndpoint = errors.New("credential: missing token endpoint")

	// ErrRejected is returned when the identity source rejects the request.
	ErrRejected = errors.New("credential: refresh rejected")
)
