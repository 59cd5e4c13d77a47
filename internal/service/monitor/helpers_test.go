package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/domain/flow"
)

var (
	errTestFetch   = errors.New("test fetch error")
	errTestUnknown = errors.New("test unknown flow")

	testEpoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testEpoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeFetcher returns the snapshot set by the test. When hold is set, the
// next Fetch signals entered and waits for release.
type fakeFetcher struct {
	mu       sync.Mutex
	snap     *flow.Snapshot
	err      error
	sources  []string
	hold     bool
	entered  chan struct{}
	release  chan struct{}
	requests atomic.Int64
}

func (f *fakeFetcher) Set(snap *flow.Snapshot, err error) {
	f.mu.Lock()
	f.snap, f.err = snap, err
	f.mu.Unlock()
}

// Hold makes the next Fetch block until the returned function is called.
func (f *fakeFetcher) Hold() (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hold = true
	f.entered = make(chan struct{})
	f.release = make(chan struct{})

	return f.entered, func() { close(f.release) }
}

func (f *fakeFetcher) Fetch(_ context.Context, dataSourceID string) (*flow.Snapshot, error) {
	f.requests.Add(1)

	f.mu.Lock()
	f.sources = append(f.sources, dataSourceID)
	hold, entered, release := f.hold, f.entered, f.release
	f.hold = false
	f.mu.Unlock()

	if hold {
		close(entered)
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	return f.snap, nil
}

// fakeFlows is an in-memory catalog.
type fakeFlows map[string]*flow.Flow

func (f fakeFlows) Flow(id string) (*flow.Flow, error) {
	found, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errTestUnknown, id)
	}

	return found, nil
}

func (f fakeFlows) Flows() []flow.Flow {
	out := make([]flow.Flow, 0, len(f))
	for _, v := range f {
		out = append(out, *v)
	}

	return out
}

// recorder captures everything the engine hands to its collaborators.
type recorder struct {
	mu       sync.Mutex
	views    []*flow.View
	resets   [][]string
	alarms   []*alarm.Event
	outcomes []string
	changed  int
}

func (r *recorder) Render(_ context.Context, v *flow.View) {
	r.mu.Lock()
	r.views = append(r.views, v)
	r.mu.Unlock()
}

func (r *recorder) ResetTransient(_ context.Context, ids []string) {
	r.mu.Lock()
	r.resets = append(r.resets, ids)
	r.mu.Unlock()
}

func (r *recorder) Notify(_ context.Context, events []*alarm.Event) {
	r.mu.Lock()
	r.alarms = append(r.alarms, events...)
	r.mu.Unlock()
}

func (r *recorder) ObserveCycle(outcome string, _ time.Duration) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, outcome)
	r.mu.Unlock()
}

func (r *recorder) AddAlarms(int) {}

func (r *recorder) AddChangedNodes(n int) {
	r.mu.Lock()
	r.changed += n
	r.mu.Unlock()
}

func (r *recorder) SetLastApplied(time.Time) {}

func (r *recorder) Views() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.views)
}

func (r *recorder) Alarms() []*alarm.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]*alarm.Event(nil), r.alarms...)
}

func (r *recorder) Resets() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.resets)
}

// pumpFlow is EQ1 -> EQ2 with a gauge watching M1 and a caption.
func pumpFlow() *flow.Flow {
	return &flow.Flow{
		ID:           "pumps",
		Name:         "Pump line",
		DataSourceID: "ds-1",
		Nodes: []flow.Node{
			{ID: "n-eq1", Kind: flow.KindEquipment, Label: "Feed pump", EquipmentCode: "EQ1", WatchList: []string{"M1"}},
			{ID: "n-eq2", Kind: flow.KindEquipment, Label: "Transfer pump", EquipmentCode: "EQ2"},
			{ID: "n-gauge", Kind: flow.KindInstrument, Label: "Pressure", WatchList: []string{"M1"}},
			{ID: "n-text", Kind: flow.KindText, Label: "Line 1"},
		},
		Edges: []flow.Edge{
			{ID: "e-1", Source: "n-eq1", Target: "n-eq2"},
			{ID: "e-2", Source: "n-eq1", Target: "n-gauge"},
			{ID: "e-3", Source: "n-eq2", Target: "n-missing"},
		},
	}
}

func equipment(code string, status flow.EquipmentStatus) flow.EquipmentSnapshot {
	return flow.EquipmentSnapshot{EquipmentCode: code, EquipmentName: "Pump " + code, Status: status}
}

func measurement(eq, code string, value float64, status flow.SpecStatus, at time.Time) flow.MeasurementSnapshot {
	return flow.MeasurementSnapshot{
		EquipmentCode:   eq,
		MeasurementCode: code,
		MeasurementDesc: "Pressure",
		Value:           value,
		Timestamp:       at,
		SpecStatus:      status,
		UpperSpecLimit:  flow.Float(100),
		LowerSpecLimit:  flow.Float(10),
		Unit:            "bar",
	}
}

func pumpSnapshot(eq1, eq2 flow.EquipmentStatus, m1 float64, status flow.SpecStatus) *flow.Snapshot {
	return &flow.Snapshot{
		Equipment: []flow.EquipmentSnapshot{equipment("EQ1", eq1), equipment("EQ2", eq2)},
		Measurements: []flow.MeasurementSnapshot{
			measurement("EQ1", "M1", m1, status, testEpoch),
		},
	}
}

func sequentialIDs() func() string {
	var n atomic.Int64

	return func() string {
		return fmt.Sprintf("alarm-%d", n.Add(1))
	}
}
