// Package remote exposes a dispatcher over connect and calls remote ones.
//
// The service is defined without generated stubs: requests and responses
// are well-known protobuf types, so any connect, gRPC or gRPC-Web client
// can reach it.
//
//	path, h := remote.NewHandler(b)
//	mux.Handle(path, h)
//
//	c, err := remote.NewClient(ctx, http.DefaultClient, "http://localhost:8080")
//	agg.Register("billing", c)
package remote

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/dispatcher"
)

const (
	ServiceName          = "dispatch.v1.DispatchService"
	CallProcedure        = "/" + ServiceName + "/Call"
	ListActionsProcedure = "/" + ServiceName + "/ListActions"
	HealthProcedure      = "/" + ServiceName + "/Health"
)

// Request fields of the Call procedure.
const (
	fieldName     = "name"
	fieldParams   = "params"
	fieldMetadata = "metadata"
)

type server struct {
	d dispatcher.Dispatcher
}

// NewHandler serves d and returns the path to mount the handler on.
func NewHandler(d dispatcher.Dispatcher, opts ...connect.HandlerOption) (string, http.Handler) {
	s := &server{d: d}
	mux := http.NewServeMux()
	mux.Handle(CallProcedure, connect.NewUnaryHandler(CallProcedure, s.call, opts...))
	mux.Handle(ListActionsProcedure, connect.NewUnaryHandler(ListActionsProcedure, s.listActions, opts...))
	mux.Handle(HealthProcedure, connect.NewUnaryHandler(HealthProcedure, s.health, opts...))
	return "/" + ServiceName + "/", mux
}

func (s *server) call(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Value], error) {
	fields := req.Msg.AsMap()
	name, _ := fields[fieldName].(string)
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("missing action name"))
	}
	meta, _ := fields[fieldMetadata].(map[string]any)

	v, err := s.d.Call(ctx, name, fields[fieldParams], action.Metadata(meta)).Await()
	if err != nil {
		return nil, toConnectError(err)
	}
	out, err := toValue(v)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

func (s *server) listActions(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[structpb.ListValue], error) {
	names := s.d.ActionsList()
	values := make([]*structpb.Value, len(names))
	for i, name := range names {
		values[i] = structpb.NewStringValue(name)
	}
	return connect.NewResponse(&structpb.ListValue{Values: values}), nil
}

func (s *server) health(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
		"ready":   structpb.NewBoolValue(s.d.IsReady()),
		"healthy": structpb.NewBoolValue(s.d.IsHealthy()),
	}}), nil
}
