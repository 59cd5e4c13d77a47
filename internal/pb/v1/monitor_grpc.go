package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "flowmonitor.v1.MonitorService"

// Full method names.
const (
	RefreshMethod     = "/" + ServiceName + "/Refresh"
	SelectFlowMethod  = "/" + ServiceName + "/SelectFlow"
	GetViewMethod     = "/" + ServiceName + "/GetView"
	WatchAlarmsMethod = "/" + ServiceName + "/WatchAlarms"
)

// MonitorServiceClient is the client API for MonitorService.
type MonitorServiceClient interface {
	// Refresh runs one cycle and returns its outcome.
	Refresh(ctx context.Context, in *wrapperspb.BoolValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	// SelectFlow switches the monitored diagram.
	SelectFlow(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	// GetView returns the current derived view.
	GetView(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	// WatchAlarms streams every alarm emitted after the call.
	WatchAlarms(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type monitorServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewMonitorServiceClient creates a client on top of cc.
func NewMonitorServiceClient(cc grpc.ClientConnInterface) MonitorServiceClient {
	return &monitorServiceClient{cc: cc}
}

func (c *monitorServiceClient) Refresh(
	ctx context.Context,
	in *wrapperspb.BoolValue,
	opts ...grpc.CallOption,
) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, RefreshMethod, in, out, staticMethod(opts)...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *monitorServiceClient) SelectFlow(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, SelectFlowMethod, in, out, staticMethod(opts)...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *monitorServiceClient) GetView(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetViewMethod, in, out, staticMethod(opts)...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *monitorServiceClient) WatchAlarms(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &MonitorServiceDesc.Streams[0], WatchAlarmsMethod, staticMethod(opts)...)
	if err != nil {
		return nil, err
	}

	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.SendMsg(in); err != nil {
		return nil, err
	}

	if err := x.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}

func staticMethod(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
}

// MonitorServiceServer is the server API for MonitorService.
// Implementations must embed UnimplementedMonitorServiceServer.
type MonitorServiceServer interface {
	Refresh(ctx context.Context, in *wrapperspb.BoolValue) (*wrapperspb.StringValue, error)
	SelectFlow(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error)
	GetView(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	WatchAlarms(in *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error
	mustEmbedUnimplementedMonitorServiceServer()
}

// UnimplementedMonitorServiceServer answers Unimplemented to every call.
type UnimplementedMonitorServiceServer struct{}

// Refresh is not implemented.
func (UnimplementedMonitorServiceServer) Refresh(context.Context, *wrapperspb.BoolValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Refresh not implemented")
}

// SelectFlow is not implemented.
func (UnimplementedMonitorServiceServer) SelectFlow(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method SelectFlow not implemented")
}

// GetView is not implemented.
func (UnimplementedMonitorServiceServer) GetView(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetView not implemented")
}

// WatchAlarms is not implemented.
func (UnimplementedMonitorServiceServer) WatchAlarms(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error {
	return status.Error(codes.Unimplemented, "method WatchAlarms not implemented")
}

func (UnimplementedMonitorServiceServer) mustEmbedUnimplementedMonitorServiceServer() {}

// RegisterMonitorServiceServer registers srv on s.
func RegisterMonitorServiceServer(s grpc.ServiceRegistrar, srv MonitorServiceServer) {
	s.RegisterService(&MonitorServiceDesc, srv)
}

// MonitorServiceDesc is the grpc.ServiceDesc for MonitorService.
//
//nolint:gochecknoglobals // Required by grpc.RegisterService.
var MonitorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MonitorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Refresh", Handler: refreshHandler},
		{MethodName: "SelectFlow", Handler: selectFlowHandler},
		{MethodName: "GetView", Handler: getViewHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchAlarms", Handler: watchAlarmsHandler, ServerStreams: true},
	},
	Metadata: "flowmonitor/v1/monitor.proto",
}

func refreshHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature fixed by grpc.MethodDesc.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.BoolValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	call := func(ctx context.Context, req any) (any, error) {
		return srv.(MonitorServiceServer).Refresh(ctx, req.(*wrapperspb.BoolValue))
	}

	return unary(ctx, srv, in, RefreshMethod, interceptor, call)
}

func selectFlowHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature fixed by grpc.MethodDesc.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	call := func(ctx context.Context, req any) (any, error) {
		return srv.(MonitorServiceServer).SelectFlow(ctx, req.(*wrapperspb.StringValue))
	}

	return unary(ctx, srv, in, SelectFlowMethod, interceptor, call)
}

func getViewHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature fixed by grpc.MethodDesc.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	call := func(ctx context.Context, req any) (any, error) {
		return srv.(MonitorServiceServer).GetView(ctx, req.(*emptypb.Empty))
	}

	return unary(ctx, srv, in, GetViewMethod, interceptor, call)
}

func unary(
	ctx context.Context,
	srv, in any,
	method string,
	interceptor grpc.UnaryServerInterceptor,
	call grpc.UnaryHandler,
) (any, error) {
	if interceptor == nil {
		return call(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: method,
	}

	return interceptor(ctx, in, info, call)
}

func watchAlarmsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	return srv.(MonitorServiceServer).WatchAlarms(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{
		ServerStream: stream,
	})
}
