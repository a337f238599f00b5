package action

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind is the machine-checkable class of a ServiceError.
type Kind string

const (
	KindService            Kind = "ServiceError"
	KindDispatcherNotReady Kind = "DispatcherNotReady"
	KindActionNotFound     Kind = "ActionNotFound"
	KindActionForbidden    Kind = "ActionForbidden"
	KindActionUnauthorized Kind = "ActionUnauthorized"
	KindBadRequest         Kind = "BadRequest"
)

// ServiceError is a per-call error with an HTTP-style code for mapping across
// process boundaries. Errors compare equal under errors.Is when their kinds
// match, so the sentinels below can be used as targets.
type ServiceError struct {
	Kind Kind
	Code int
	Body any
}

func (e *ServiceError) Error() string {
	if e.Body == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Body)
}

func (e *ServiceError) Unwrap() error {
	if err, ok := e.Body.(error); ok {
		return err
	}
	return nil
}

func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrService            = &ServiceError{Kind: KindService, Code: 500}
	ErrDispatcherNotReady = &ServiceError{Kind: KindDispatcherNotReady, Code: 502}
	ErrActionNotFound     = &ServiceError{Kind: KindActionNotFound, Code: 400}
	ErrActionForbidden    = &ServiceError{Kind: KindActionForbidden, Code: 403}
	ErrActionUnauthorized = &ServiceError{Kind: KindActionUnauthorized, Code: 401}
	ErrBadRequest         = &ServiceError{Kind: KindBadRequest, Code: 400}
)

// DefineError returns a constructor for service errors of a custom kind.
func DefineError(kind Kind, code int) func(body any) *ServiceError {
	return func(body any) *ServiceError {
		return &ServiceError{Kind: kind, Code: code, Body: body}
	}
}

var (
	NewServiceError    = DefineError(KindService, 500)
	DispatcherNotReady = DefineError(KindDispatcherNotReady, 502)
	ActionNotFound     = DefineError(KindActionNotFound, 400)
	Forbidden          = DefineError(KindActionForbidden, 403)
	Unauthorized       = DefineError(KindActionUnauthorized, 401)
	BadRequest         = DefineError(KindBadRequest, 400)
)

// AsServiceError extracts the first ServiceError in err's chain.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ErrInvalidName is returned by ValidateName.
var ErrInvalidName = errors.New("invalid action name")

var colonEdge = regexp.MustCompile(`(^:|:$)`)

// ValidateName rejects empty names, names containing '*' and names that
// start or end with ':'.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case strings.Contains(name, "*"):
		return fmt.Errorf("%w: %q contains '*'", ErrInvalidName, name)
	case colonEdge.MatchString(name):
		return fmt.Errorf("%w: %q starts or ends with ':'", ErrInvalidName, name)
	}
	return nil
}
