package monitor

import (
	"context"
	"time"

	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/domain/flow"
)

// Fetcher reads one joint snapshot. An empty dataSourceID asks the fetcher
// to resolve the scope itself.
type Fetcher interface {
	Fetch(ctx context.Context, dataSourceID string) (*flow.Snapshot, error)
}

// FlowSource provides diagram definitions.
type FlowSource interface {
	Flow(id string) (*flow.Flow, error)
	Flows() []flow.Flow
}

// Renderer receives every new view and the per-node transient resets that
// follow a successful forced refresh. Calls happen inside the cycle and
// must not block.
type Renderer interface {
	Render(ctx context.Context, view *flow.View)
	ResetTransient(ctx context.Context, nodeIDs []string)
}

// Notifier receives the alarms of a cycle. Calls must not block.
type Notifier interface {
	Notify(ctx context.Context, events []*alarm.Event)
}

// Recorder collects cycle metrics.
type Recorder interface {
	ObserveCycle(outcome string, elapsed time.Duration)
	AddAlarms(n int)
	AddChangedNodes(n int)
	SetLastApplied(at time.Time)
}

type nopRenderer struct{}

func (nopRenderer) Render(context.Context, *flow.View) {}
func (nopRenderer) ResetTransient(context.Context, []string) {}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, []*alarm.Event) {}

type nopRecorder struct{}

func (nopRecorder) ObserveCycle(string, time.Duration) {}
func (nopRecorder) AddAlarms(int) {}
func (nopRecorder) AddChangedNodes(int) {}
func (nopRecorder) SetLastApplied(time.Time) {}
