package registry

import "errors"

var (
	ErrInvalidMiddleware = errors.New("invalid middleware")
	ErrInvalidAction     = errors.New("invalid action")
	ErrDuplicateAction   = errors.New("duplicate action")
)
