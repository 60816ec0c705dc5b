package ratelimit

import "errors"

// ErrQuotaExhausted is returned when a capped wait did not yield capacity.
var ErrQuotaExhausted = errors.New("ratelimit: quota exhausted")
