package daemon

import "errors"

// ErrSessionRequired is returned when a session is not provided.
var ErrSessionRequired = errors.New("session required")
