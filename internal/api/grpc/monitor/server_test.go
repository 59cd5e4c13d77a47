package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/domain/flow"
	pb "github.com/oshokin/flow-monitor/internal/pb/v1"
	catalog "github.com/oshokin/flow-monitor/internal/repository/flow"
	"github.com/oshokin/flow-monitor/internal/service/monitor"
)

var (
	errTestFetch  = errors.New("test fetch error")
	errTestSelect = errors.New("test select error")
)

// fakeService implements the Service interface for unit testing the transport.
type fakeService struct {
	result   monitor.CycleResult
	force    bool
	selected string
	view     *flow.View
}

func (f *fakeService) Refresh(_ context.Context, force bool) monitor.CycleResult {
	f.force = force

	return f.result
}

func (f *fakeService) SelectFlow(_ context.Context, id string) error {
	switch id {
	case "missing":
		return fmt.Errorf("select flow: %w", catalog.ErrUnknownFlow)
	case "broken":
		return errTestSelect
	}

	f.selected = id

	return nil
}

func (f *fakeService) View() *flow.View {
	return f.view
}

// TestServer_Refresh maps outcomes and failures.
func TestServer_Refresh(t *testing.T) {
	t.Parallel()

	svc := &fakeService{result: monitor.CycleResult{Outcome: monitor.OutcomeDropped}}
	s := NewServer(svc, NewHub(0))

	resp, err := s.Refresh(context.Background(), wrapperspb.Bool(true))
	require.NoError(t, err)
	require.Equal(t, "dropped", resp.GetValue())
	require.True(t, svc.force)

	svc.result = monitor.CycleResult{Outcome: monitor.OutcomeFailed, Err: errTestFetch}

	_, err = s.Refresh(context.Background(), nil)
	require.Equal(t, codes.Internal, status.Code(err))
	require.False(t, svc.force)
}

// TestServer_SelectFlow_Validation ensures invalid and unknown ids are mapped to codes.
func TestServer_SelectFlow_Validation(t *testing.T) {
	t.Parallel()

	svc := new(fakeService)
	s := NewServer(svc, NewHub(0))

	_, err := s.SelectFlow(context.Background(), nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.SelectFlow(context.Background(), wrapperspb.String("  "))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.SelectFlow(context.Background(), wrapperspb.String("missing"))
	require.Equal(t, codes.NotFound, status.Code(err))

	_, err = s.SelectFlow(context.Background(), wrapperspb.String("broken"))
	require.Equal(t, codes.Internal, status.Code(err))

	_, err = s.SelectFlow(context.Background(), wrapperspb.String(" tanks "))
	require.NoError(t, err)
	require.Equal(t, "tanks", svc.selected)
}

// TestServer_GetView covers the empty and populated cases.
func TestServer_GetView(t *testing.T) {
	t.Parallel()

	svc := new(fakeService)
	s := NewServer(svc, NewHub(0))

	_, err := s.GetView(context.Background(), nil)
	require.Equal(t, codes.NotFound, status.Code(err))

	svc.view = &flow.View{FlowID: "pumps", Sequence: 4}

	doc, err := s.GetView(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "pumps", doc.GetFields()["flow_id"].GetStringValue())
}

// TestHub_DropsWhenFull asserts a slow subscriber never blocks Notify.
func TestHub_DropsWhenFull(t *testing.T) {
	t.Parallel()

	h := NewHub(1)
	events, unsubscribe := h.Subscribe()

	h.Notify(context.Background(), []*alarm.Event{{ID: "a-1"}, {ID: "a-2"}})
	require.Equal(t, "a-1", (<-events).ID)

	unsubscribe()
	unsubscribe()

	_, open := <-events
	require.False(t, open)
	require.Zero(t, h.Subscribers())

	h.Notify(context.Background(), []*alarm.Event{{ID: "a-3"}})
}

// TestServer_WatchAlarms streams an alarm over a real connection.
func TestServer_WatchAlarms(t *testing.T) {
	t.Parallel()

	hub := NewHub(0)
	srv := grpc.NewServer()
	pb.RegisterMonitorServiceServer(srv, NewServer(new(fakeService), hub))

	lis, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = srv.Serve(lis)
	}()

	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := pb.NewMonitorServiceClient(conn).WatchAlarms(ctx, new(emptypb.Empty))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Notify(ctx, []*alarm.Event{{ID: "a-1", MeasurementCode: "M1", SpecType: alarm.SpecTypeAbove, SpecLimit: 100}})

	doc, err := stream.Recv()
	require.NoError(t, err)

	event, err := pb.EventFromStruct(doc)
	require.NoError(t, err)
	require.Equal(t, "a-1", event.ID)
	require.InDelta(t, 100.0, event.SpecLimit, 0)

	cancel()
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
