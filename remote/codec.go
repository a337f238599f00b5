package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/broker/action"
)

// Headers carrying a ServiceError across the wire.
const (
	ErrorKindHeader = "Dispatch-Error-Kind"
	ErrorCodeHeader = "Dispatch-Error-Code"
)

// toValue converts v into a protobuf value. Values structpb cannot take
// directly (typed slices and maps, structs) go through JSON first.
func toValue(v any) (*structpb.Value, error) {
	if pv, err := structpb.NewValue(v); err == nil {
		return pv, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return structpb.NewValue(generic)
}

func connectCode(se *action.ServiceError) connect.Code {
	switch {
	// ActionNotFound carries 400 like BadRequest but gets its own code.
	case se.Kind == action.KindActionNotFound:
		return connect.CodeNotFound
	case se.Code == http.StatusBadRequest:
		return connect.CodeInvalidArgument
	case se.Code == http.StatusUnauthorized:
		return connect.CodeUnauthenticated
	case se.Code == http.StatusForbidden:
		return connect.CodePermissionDenied
	case se.Code == http.StatusBadGateway, se.Code == http.StatusServiceUnavailable:
		return connect.CodeUnavailable
	default:
		return connect.CodeInternal
	}
}

// toConnectError maps a call error onto a connect error. Service errors
// keep their kind and code in headers.
func toConnectError(err error) *connect.Error {
	se, ok := action.AsServiceError(err)
	if !ok {
		return connect.NewError(connect.CodeInternal, err)
	}

	msg := ""
	if se.Body != nil {
		msg = fmt.Sprint(se.Body)
	}
	cerr := connect.NewError(connectCode(se), errors.New(msg))
	cerr.Meta().Set(ErrorKindHeader, string(se.Kind))
	cerr.Meta().Set(ErrorCodeHeader, strconv.Itoa(se.Code))
	return cerr
}

// fromConnectError restores a ServiceError when the server sent one.
func fromConnectError(err error) error {
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return err
	}
	kind := cerr.Meta().Get(ErrorKindHeader)
	if kind == "" {
		if cerr.Code() == connect.CodeUnavailable {
			return action.DispatcherNotReady(cerr)
		}
		return err
	}

	code, convErr := strconv.Atoi(cerr.Meta().Get(ErrorCodeHeader))
	if convErr != nil {
		code = http.StatusInternalServerError
	}
	se := &action.ServiceError{Kind: action.Kind(kind), Code: code}
	if msg := cerr.Message(); msg != "" {
		se.Body = msg
	}
	return se
}
