package dispatcher

import "errors"

var (
	// ErrIncompleteImplementation is returned by NewCore when a required
	// Implementation hook is missing.
	ErrIncompleteImplementation = errors.New("incomplete dispatcher implementation")
	// ErrInvalidOption reports an unrecognized configuration value.
	ErrInvalidOption = errors.New("invalid dispatcher option")
)
