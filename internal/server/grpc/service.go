package internalgrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// NotesService is the gRPC service name. Messages are google.protobuf.Struct
// with the same fields as the JSON API.
const NotesService = "notecal.v1.Notes"

type NotesServer interface {
	DayReport(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error)
	Schedule(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv NotesServer, ctx context.Context, r *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) func(
	interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor,
) (interface{}, error) {
	return func(
		srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor,
	) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NotesServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + NotesService + "/" + method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(NotesServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var notesServiceDesc = grpc.ServiceDesc{
	ServiceName: NotesService,
	HandlerType: (*NotesServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "DayReport",
			Handler: unaryHandler("DayReport", func(srv NotesServer, ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
				return srv.DayReport(ctx, r)
			}),
		},
		{
			MethodName: "Schedule",
			Handler: unaryHandler("Schedule", func(srv NotesServer, ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
				return srv.Schedule(ctx, r)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "notecal/v1/notes.proto",
}

// NotesClient calls NotesService over a client connection.
type NotesClient struct {
	cc grpc.ClientConnInterface
}

func NewNotesClient(cc grpc.ClientConnInterface) *NotesClient {
	return &NotesClient{cc: cc}
}

func (c *NotesClient) DayReport(ctx context.Context, date string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]interface{}{"date": date})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+NotesService+"/DayReport", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *NotesClient) Schedule(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+NotesService+"/Schedule", &structpb.Struct{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
