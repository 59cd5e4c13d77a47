package monitor

import (
	"slices"

	"github.com/oshokin/flow-monitor/internal/domain/flow"
)

type statusPair struct {
	source flow.EquipmentStatus
	target flow.EquipmentStatus
}

var (
	runningStyle = flow.EdgeStyle{Color: flow.ColorGreen, StrokeWidth: 1.5, Animated: true}

	//nolint:gochecknoglobals // Lookup table.
	edgeStyles = map[statusPair]flow.EdgeStyle{
		{flow.StatusActive, flow.StatusActive}: runningStyle,
		{flow.StatusActive, flow.StatusPause}:  pausedStyle("target paused"),
		{flow.StatusActive, flow.StatusStop}:   stoppedStyle("target stopped"),
		{flow.StatusPause, flow.StatusActive}:  pausedStyle("source paused"),
		{flow.StatusPause, flow.StatusPause}:   pausedStyle("both paused"),
		{flow.StatusPause, flow.StatusStop}:    stoppedStyle("target stopped"),
		{flow.StatusStop, flow.StatusActive}:   stoppedStyle("source stopped"),
		{flow.StatusStop, flow.StatusPause}:    stoppedStyle("source stopped"),
		{flow.StatusStop, flow.StatusStop}:     stoppedStyle("both stopped"),
	}

	// NeutralEdgeStyle is used for every edge touching a non-equipment node.
	NeutralEdgeStyle = flow.EdgeStyle{Color: flow.ColorMuted, StrokeWidth: 1, DashPattern: "5,5"}
)

func pausedStyle(label string) flow.EdgeStyle {
	return flow.EdgeStyle{Color: flow.ColorYellow, StrokeWidth: 2, DashPattern: "8,4", Animated: true, Label: label}
}

func stoppedStyle(label string) flow.EdgeStyle {
	return flow.EdgeStyle{Color: flow.ColorRed, StrokeWidth: 1.5, Label: label}
}

// EdgeStyleFor returns the presentation of an equipment-to-equipment edge.
// Missing or unknown statuses count as STOP.
func EdgeStyleFor(source, target flow.EquipmentStatus) flow.EdgeStyle {
	return edgeStyles[statusPair{source.Normalize(), target.Normalize()}]
}

// deriveEdges restyles edges from the reconciled node statuses. Like nodes,
// edges whose style is unchanged keep their pointer.
func deriveEdges(nodes []*flow.Node, edges []*flow.Edge) ([]*flow.Edge, int) {
	kinds := make(map[string]flow.NodeKind, len(nodes))
	statuses := make(map[string]flow.EquipmentStatus, len(nodes))

	for _, n := range nodes {
		kinds[n.ID] = n.Kind
		if n.Kind == flow.KindEquipment {
			statuses[n.ID] = n.Status
		}
	}

	var (
		result  = edges
		copied  bool
		changed int
	)

	for i, edge := range edges {
		style := NeutralEdgeStyle
		if kinds[edge.Source] == flow.KindEquipment && kinds[edge.Target] == flow.KindEquipment {
			style = EdgeStyleFor(statuses[edge.Source], statuses[edge.Target])
		}

		if edge.Style == style {
			continue
		}

		if !copied {
			result = slices.Clone(edges)
			copied = true
		}

		updated := edge.Clone()
		updated.Style = style
		result[i] = updated
		changed++
	}

	return result, changed
}
