package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/domain/flow"
	"github.com/oshokin/flow-monitor/internal/service/monitor"
)

// DefaultAlarmHistory is how many alarms the dashboard keeps on screen.
const DefaultAlarmHistory = 10

// Refresher runs a poll cycle on demand.
type Refresher interface {
	Refresh(ctx context.Context, force bool) monitor.CycleResult
}

// RefreshFunc adapts a function to Refresher.
type RefreshFunc func(ctx context.Context, force bool) monitor.CycleResult

// Refresh implements Refresher.
func (f RefreshFunc) Refresh(ctx context.Context, force bool) monitor.CycleResult {
	return f(ctx, force)
}

// ViewMsg carries a new view.
type ViewMsg struct {
	View *flow.View
}

// AlarmMsg carries a batch of alarms.
type AlarmMsg struct {
	Events []*alarm.Event
}

// ResetMsg clears the change highlight of the listed nodes.
type ResetMsg struct {
	NodeIDs []string
}

type refreshedMsg struct {
	result monitor.CycleResult
}

// Model is the dashboard state.
type Model struct {
	ctx       context.Context //nolint:containedctx // Commands outlive Update calls.
	refresher Refresher

	view *flow.View
	// changed holds nodes whose pointer moved since the previous view.
	changed map[string]struct{}
	alarms  []*alarm.Event
	history int
	status  string
	width   int
}

// NewModel creates a dashboard that triggers forced refreshes on refresher.
func NewModel(ctx context.Context, refresher Refresher) Model {
	return Model{
		ctx:       ctx,
		refresher: refresher,
		changed:   make(map[string]struct{}),
		history:   DefaultAlarmHistory,
		status:    "waiting for the first view",
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			if m.refresher == nil {
				return m, nil
			}

			m.status = "refreshing"

			return m, refresh(m.ctx, m.refresher)
		case "c":
			m.alarms = nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case ViewMsg:
		m.applyView(msg.View)
	case ResetMsg:
		m.changed = without(m.changed, msg.NodeIDs)
	case AlarmMsg:
		m.alarms = append(m.alarms, msg.Events...)
		if extra := len(m.alarms) - m.history; extra > 0 {
			m.alarms = m.alarms[extra:]
		}
	case refreshedMsg:
		m.status = describe(msg.result)
	}

	return m, nil
}

func (m *Model) applyView(view *flow.View) {
	if view == nil {
		return
	}

	previous := make(map[string]*flow.Node)

	if m.view != nil && m.view.FlowID == view.FlowID {
		for _, n := range m.view.Nodes {
			previous[n.ID] = n
		}
	} else {
		m.changed = make(map[string]struct{})
	}

	for _, n := range view.Nodes {
		if old, ok := previous[n.ID]; ok && old != n {
			m.changed[n.ID] = struct{}{}
		}
	}

	m.view = view
	m.status = "view " + strconv.FormatUint(view.Sequence, 10) + " applied"
}

func without(set map[string]struct{}, ids []string) map[string]struct{} {
	next := make(map[string]struct{}, len(set))
	for id := range set {
		next[id] = struct{}{}
	}

	for _, id := range ids {
		delete(next, id)
	}

	return next
}

func refresh(ctx context.Context, refresher Refresher) tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{result: refresher.Refresh(ctx, true)}
	}
}

func describe(result monitor.CycleResult) string {
	switch {
	case result.Err != nil:
		return fmt.Sprintf("refresh %s: %v", result.Outcome, result.Err)
	case result.Reason != "":
		return fmt.Sprintf("refresh %s: %s", result.Outcome, result.Reason)
	default:
		return "refresh " + string(result.Outcome)
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	if m.view == nil {
		b.WriteString(titleStyle.Render("flow-monitor"))
		b.WriteString("\n\n")
	} else {
		b.WriteString(m.renderHeader())
		b.WriteString("\n")
		b.WriteString(panelStyle.Render(m.renderNodes()))
		b.WriteString("\n")
		b.WriteString(panelStyle.Render(m.renderEdges()))
		b.WriteString("\n")
	}

	b.WriteString(panelStyle.Render(m.renderAlarms()))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.status + "  |  r: forced refresh  c: clear alarms  q: quit"))

	return b.String()
}

func (m Model) renderHeader() string {
	name := m.view.FlowName
	if name == "" {
		name = m.view.FlowID
	}

	return titleStyle.Render(name) + " " +
		labelStyle.Render(fmt.Sprintf("#%d at %s", m.view.Sequence, m.view.UpdatedAt.Format(time.TimeOnly)))
}

func (m Model) renderNodes() string {
	lines := []string{headerStyle.Render("Nodes")}

	for _, n := range m.view.Nodes {
		label := n.Label
		if label == "" {
			label = n.ID
		}

		if _, ok := m.changed[n.ID]; ok {
			label = highlightStyle.Render(label)
		}

		line := fmt.Sprintf("%s %s", label, labelStyle.Render(string(n.Kind)))
		if n.Status != "" {
			line += " " + statusStyle(n.Status).Render(string(n.Status))
		}

		for i := range n.Bound {
			line += " " + renderBound(&n.Bound[i])
		}

		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

func renderBound(b *flow.BoundMeasurement) string {
	text := b.Code + "=" + strconv.FormatFloat(b.Value, 'f', -1, 64)
	if b.Unit != "" {
		text += " " + b.Unit
	}

	switch b.Trend {
	case flow.TrendUp:
		text += " ↑"
	case flow.TrendDown:
		text += " ↓"
	case flow.TrendStable:
	}

	return specStyle(b.SpecState).Render(text)
}

func (m Model) renderEdges() string {
	lines := []string{headerStyle.Render("Connections")}

	for _, e := range m.view.Edges {
		arrow := "──▶"
		if e.Style.DashPattern != "" {
			arrow = "╌╌▶"
		}

		line := fmt.Sprintf("%s %s %s", e.Source, edgeStyle(e.Style.Color).Render(arrow), e.Target)
		if e.Style.Label != "" {
			line += " " + labelStyle.Render(e.Style.Label)
		}

		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderAlarms() string {
	lines := []string{headerStyle.Render("Alarms")}

	if len(m.alarms) == 0 {
		lines = append(lines, labelStyle.Render("none"))
	}

	for i := len(m.alarms) - 1; i >= 0; i-- {
		e := m.alarms[i]
		lines = append(lines, critStyle.Render(fmt.Sprintf("%s %s/%s %s %s (limit %s)",
			e.Timestamp.Format(time.TimeOnly),
			e.EquipmentCode,
			e.MeasurementCode,
			strconv.FormatFloat(e.Value, 'f', -1, 64),
			e.SpecType,
			strconv.FormatFloat(e.SpecLimit, 'f', -1, 64),
		)))
	}

	return strings.Join(lines, "\n")
}
