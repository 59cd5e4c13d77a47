package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/domain/flow"
	"github.com/oshokin/flow-monitor/internal/logger"
)

// Outcome classifies how a refresh request ended.
type Outcome string

const (
	// OutcomeApplied means a change was detected and folded into a new view.
	OutcomeApplied Outcome = "applied"
	// OutcomeUnchanged means the snapshots matched the previous cycle.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeDropped means no cycle was started (in flight or rate limited).
	OutcomeDropped Outcome = "dropped"
	// OutcomeStale means a flow switch superseded the cycle before it applied.
	OutcomeStale Outcome = "stale"
	// OutcomeFailed means the cycle was aborted without touching any state.
	OutcomeFailed Outcome = "failed"
)

// ErrNoFlowSelected is returned by cycles started before any flow is selected.
var ErrNoFlowSelected = errors.New("no flow selected")

// CycleResult describes one refresh request.
type CycleResult struct {
	Sequence           uint64
	Outcome            Outcome
	Reason             string
	StatusChanged      bool
	MeasurementChanged bool
	ChangedNodes       []string
	ChangedEdges       int
	Alarms             []*alarm.Event
	Err                error
}

// Engine drives poll cycles for the selected flow.
type Engine struct {
	fetcher  Fetcher
	flows    FlowSource
	renderer Renderer
	notifier Notifier
	recorder Recorder
	interval time.Duration
	now      func() time.Time
	newID    func() string

	gate *gate
	// seq numbers issued cycles; SelectFlow bumps it to invalidate a cycle in flight.
	seq atomic.Uint64
	// pendingForce is set by SelectFlow until a forced cycle for the new flow starts.
	pendingForce atomic.Bool

	// mu guards the fields below. They are always replaced together.
	mu    sync.RWMutex
	flow  *flow.Flow
	cache *stateCache
	view  *flow.View
}

// Option configures the engine.
type Option func(*Engine)

// WithRenderer sets the collaborator receiving views.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) {
		if r != nil {
			e.renderer = r
		}
	}
}

// WithNotifier sets the collaborator receiving alarms.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithInterval sets the configured auto-refresh period.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.interval = d
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator replaces the alarm id generator.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// New creates an engine. No flow is selected until SelectFlow is called.
func New(fetcher Fetcher, flows FlowSource, opts ...Option) *Engine {
	e := &Engine{
		fetcher:  fetcher,
		flows:    flows,
		renderer: nopRenderer{},
		notifier: nopNotifier{},
		recorder: nopRecorder{},
		now:      time.Now,
		newID:    uuid.NewString,
		cache:    newStateCache(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.gate = newGate(e.now)

	return e
}

// Flows lists the selectable diagrams.
func (e *Engine) Flows() []flow.Flow {
	return e.flows.Flows()
}

// View returns the current derived view, or nil before the first selection.
// The returned value is shared and must not be modified.
func (e *Engine) View() *flow.View {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.view
}

// SelectFlow switches to another diagram: the previous-state cache is reset
// so the first cycle treats every value as changed, and one forced refresh
// is issued. If a cycle is in flight, its results are discarded and the
// forced refresh runs right after it.
func (e *Engine) SelectFlow(ctx context.Context, id string) error {
	selected, err := e.flows.Flow(id)
	if err != nil {
		return fmt.Errorf("select flow %q: %w", id, err)
	}

	view := flow.NewView(selected)

	e.mu.Lock()
	e.flow = selected
	e.cache = newStateCache()
	e.view = view
	view.Sequence = e.seq.Add(1)
	e.mu.Unlock()

	ctx = logger.WithKV(ctx, "flow_id", selected.ID)
	logger.InfoKV(ctx, "Flow selected", "nodes", len(view.Nodes), "edges", len(view.Edges))

	e.renderer.Render(ctx, view)
	e.pendingForce.Store(true)

	if result := e.Refresh(ctx, true); result.Outcome == OutcomeDropped {
		logger.Info(ctx, "Cycle in flight, forced refresh deferred until it completes")
	}

	return nil
}

// Refresh runs one cycle unless the single-flight guard or the rate limit
// drops it. Forced calls skip the rate limit.
func (e *Engine) Refresh(ctx context.Context, force bool) CycleResult {
	result := e.refresh(ctx, force)

	if result.Outcome != OutcomeDropped && e.pendingForce.CompareAndSwap(true, false) {
		logger.Info(ctx, "Running the forced refresh deferred by a flow switch")
		e.refresh(ctx, true)
	}

	return result
}

// Run fires automatic refreshes until ctx is done. The period is the
// configured interval clamped to MinRefreshInterval.
func (e *Engine) Run(ctx context.Context) error {
	interval := EffectiveInterval(e.interval)

	logger.DebugKV(ctx, "Auto-refresh started", "configured", e.interval.String(), "effective", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "Auto-refresh stopped")

			return nil
		case <-ticker.C:
			e.Refresh(ctx, false)
		}
	}
}

func (e *Engine) refresh(ctx context.Context, force bool) CycleResult {
	if reason := e.gate.acquire(force); reason != dropNone {
		logger.DebugKV(ctx, "Refresh dropped", "reason", reason, "force", force)
		e.recorder.ObserveCycle(string(OutcomeDropped), 0)

		return CycleResult{Outcome: OutcomeDropped, Reason: string(reason)}
	}

	defer e.gate.release()

	if force {
		e.pendingForce.Store(false)
	}

	seq := e.seq.Add(1)
	ctx = logger.WithKV(ctx, "sequence", seq)
	started := e.now()

	result := e.cycle(ctx, seq, force)
	result.Sequence = seq

	e.recorder.ObserveCycle(string(result.Outcome), e.now().Sub(started))
	logger.DebugKV(ctx, "Cycle finished",
		"outcome", result.Outcome,
		"status_changed", result.StatusChanged,
		"measurement_changed", result.MeasurementChanged,
		"changed_nodes", len(result.ChangedNodes),
		"alarms", len(result.Alarms))

	return result
}

// cycle fetches, diffs and applies. Nothing shared is touched before the
// final locked section, so every failure leaves the previous state intact.
//
//nolint:funlen // The cycle reads top to bottom; splitting it hides the apply order.
func (e *Engine) cycle(ctx context.Context, seq uint64, force bool) CycleResult {
	e.mu.RLock()
	current, view, cache := e.flow, e.view, e.cache
	e.mu.RUnlock()

	if current == nil {
		return CycleResult{Outcome: OutcomeFailed, Err: ErrNoFlowSelected}
	}

	snap, err := e.fetcher.Fetch(ctx, current.DataSourceID)
	if err != nil {
		logger.ErrorKV(ctx, "Snapshot fetch failed, cycle aborted", "flow_id", current.ID, "error", err)

		return CycleResult{Outcome: OutcomeFailed, Err: fmt.Errorf("fetch snapshots: %w", err)}
	}

	delta := diff(cache, snap)
	result := CycleResult{
		StatusChanged:      delta.StatusChanged,
		MeasurementChanged: delta.MeasurementChanged,
	}

	if !delta.Changed() {
		if e.seq.Load() != seq {
			result.Outcome = OutcomeStale

			return result
		}

		result.Outcome = OutcomeUnchanged

		if force {
			e.renderer.ResetTransient(ctx, view.NodeIDs())
		}

		return result
	}

	nodes, changedNodes := reconcileNodes(view.Nodes, delta)

	edges, changedEdges := deriveEdges(nodes, view.Edges)

	events := correlate(nodes, delta, cache, e.newID)

	next := &flow.View{
		FlowID:    view.FlowID,
		FlowName:  view.FlowName,
		Sequence:  seq,
		UpdatedAt: e.now(),
		Nodes:     nodes,
		Edges:     edges,
	}

	e.mu.Lock()
	if e.seq.Load() != seq {
		e.mu.Unlock()
		logger.Info(ctx, "Discarding cycle results superseded by a flow switch")

		result.Outcome = OutcomeStale

		return result
	}

	e.cache = delta.next()
	e.view = next
	e.mu.Unlock()

	result.Outcome = OutcomeApplied
	result.ChangedNodes = changedNodes
	result.ChangedEdges = changedEdges
	result.Alarms = events

	e.recorder.AddChangedNodes(len(changedNodes))
	e.recorder.SetLastApplied(next.UpdatedAt)

	if len(changedNodes) > 0 || changedEdges > 0 {
		e.renderer.Render(ctx, next)
	}

	if force {
		e.renderer.ResetTransient(ctx, next.NodeIDs())
	}

	if len(events) > 0 {
		e.recorder.AddAlarms(len(events))
		e.notifier.Notify(ctx, events)
	}

	return result
}
