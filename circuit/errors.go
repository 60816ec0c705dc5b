package circuit

import "errors"

// ErrOpen is returned by callers that surface a rejected request.
var ErrOpen = errors.New("circuit: breaker is open")
