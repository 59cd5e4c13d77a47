package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/domain/flow"
	"github.com/oshokin/flow-monitor/internal/service/common"
)

// TestGRPC_Roundtrip starts the real monitor and exercises refresh, alarm
// streaming and flow switching through the client.
func TestGRPC_Roundtrip(t *testing.T) {
	t.Parallel()

	m := startMonitor(t)
	ctx := context.Background()

	c, err := common.Dial(ctx, m.grpcAddress,
		common.WithCallTimeout(3*time.Second),
		common.WithActor("tester@integration"),
	)
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	view, err := c.GetView(ctx)
	require.NoError(t, err)
	require.Equal(t, "pumps", view.FlowID)
	require.Len(t, view.Nodes, 3)
	require.Equal(t, flow.StatusActive, view.Nodes[0].Status)
	require.Len(t, view.Nodes[0].Bound, 1)
	require.InDelta(t, 80, view.Nodes[0].Bound[0].Value, 0)

	// Nothing moved since the initial forced refresh.
	require.Equal(t, "unchanged", forceRefresh(t, c))

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	alarms := make(chan *alarm.Event, 4)

	go func() {
		_ = c.WatchAlarms(streamCtx, func(event *alarm.Event) error {
			alarms <- event

			return nil
		})
	}()

	// Give the stream time to subscribe.
	time.Sleep(200 * time.Millisecond)

	m.plant.setValue(120)

	require.Equal(t, "applied", forceRefresh(t, c))

	select {
	case event := <-alarms:
		require.Equal(t, "EQ1", event.EquipmentCode)
		require.Equal(t, "M1", event.MeasurementCode)
		require.Equal(t, alarm.SpecTypeAbove, event.SpecType)
		require.InDelta(t, 100, event.SpecLimit, 0)
		require.NotEmpty(t, event.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("no alarm received")
	}

	view, err = c.GetView(ctx)
	require.NoError(t, err)
	require.Equal(t, flow.SpecStateAbove, view.Nodes[0].Bound[0].SpecState)

	require.NoError(t, c.SelectFlow(ctx, "tanks"))

	view, err = c.GetView(ctx)
	require.NoError(t, err)
	require.Equal(t, "tanks", view.FlowID)
	require.Len(t, view.Nodes, 1)

	err = c.SelectFlow(ctx, "missing")
	require.Equal(t, codes.NotFound, status.Code(err))
}
