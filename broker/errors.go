package broker

import "errors"

// ErrInvalidHandler reports a nil handler or client passed to a Builder.
var ErrInvalidHandler = errors.New("invalid handler")
