package monitor

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/flow-monitor/internal/domain/flow"
	"github.com/oshokin/flow-monitor/internal/logger"
	pb "github.com/oshokin/flow-monitor/internal/pb/v1"
	catalog "github.com/oshokin/flow-monitor/internal/repository/flow"
	"github.com/oshokin/flow-monitor/internal/service/monitor"
)

// ActorMetadataKey carries "user@host" of the calling operator.
const ActorMetadataKey = "actor"

// Service abstracts the engine operations the transport layer depends on.
type Service interface {
	Refresh(ctx context.Context, force bool) monitor.CycleResult
	SelectFlow(ctx context.Context, id string) error
	View() *flow.View
}

// Server implements the MonitorService gRPC API.
type Server struct {
	pb.UnimplementedMonitorServiceServer

	// service runs the poll cycles.
	service Service
	// hub feeds WatchAlarms streams.
	hub *Hub
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service, hub *Hub) *Server {
	return &Server{
		service: service,
		hub:     hub,
	}
}

// Refresh runs one cycle and returns its outcome. A failed cycle is reported
// as Internal; dropped and stale cycles are successful calls.
func (s *Server) Refresh(ctx context.Context, req *wrapperspb.BoolValue) (*wrapperspb.StringValue, error) {
	ctx = withActor(ctx)
	force := req.GetValue()

	logger.InfoKV(ctx, "Refresh requested", "force", force)

	result := s.service.Refresh(ctx, force)
	if result.Outcome == monitor.OutcomeFailed {
		return nil, status.Errorf(codes.Internal, "refresh failed: %v", result.Err)
	}

	return wrapperspb.String(string(result.Outcome)), nil
}

// SelectFlow switches the monitored diagram.
func (s *Server) SelectFlow(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	id := strings.TrimSpace(req.GetValue())
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "flow id is required")
	}

	ctx = withActor(ctx)
	logger.InfoKV(ctx, "Flow switch requested", "flow_id", id)

	if err := s.service.SelectFlow(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrUnknownFlow) {
			return nil, status.Errorf(codes.NotFound, "flow %q not found", id)
		}

		return nil, status.Error(codes.Internal, "unable to select flow")
	}

	return new(emptypb.Empty), nil
}

// GetView returns the current derived view.
func (s *Server) GetView(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	view := s.service.View()
	if view == nil {
		return nil, status.Error(codes.NotFound, "no flow selected")
	}

	doc, err := pb.ViewToStruct(view)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode view")
	}

	return doc, nil
}

// WatchAlarms streams alarms emitted after the call until the client leaves.
func (s *Server) WatchAlarms(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := withActor(stream.Context())

	events, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	logger.Info(ctx, "Alarm stream opened")

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Alarm stream closed")

			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}

			doc, err := pb.EventToStruct(event)
			if err != nil {
				return status.Error(codes.Internal, "unable to encode alarm")
			}

			if err = stream.Send(doc); err != nil {
				return err
			}
		}
	}
}

// withActor attaches the caller from request metadata to the logger.
func withActor(ctx context.Context) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}

	if values := md.Get(ActorMetadataKey); len(values) > 0 && values[0] != "" {
		return logger.WithKV(ctx, "actor", values[0])
	}

	return ctx
}
