package monitor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/flow-monitor/internal/domain/flow"
)

// TestEdgeStyleFor covers the full status matrix plus unknown statuses.
func TestEdgeStyleFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		source, target flow.EquipmentStatus
		color          flow.Color
		label          string
		animated       bool
	}{
		{flow.StatusActive, flow.StatusActive, flow.ColorGreen, "", true},
		{flow.StatusActive, flow.StatusPause, flow.ColorYellow, "target paused", true},
		{flow.StatusActive, flow.StatusStop, flow.ColorRed, "target stopped", false},
		{flow.StatusPause, flow.StatusActive, flow.ColorYellow, "source paused", true},
		{flow.StatusPause, flow.StatusPause, flow.ColorYellow, "both paused", true},
		{flow.StatusPause, flow.StatusStop, flow.ColorRed, "target stopped", false},
		{flow.StatusStop, flow.StatusActive, flow.ColorRed, "source stopped", false},
		{flow.StatusStop, flow.StatusPause, flow.ColorRed, "source stopped", false},
		{flow.StatusStop, flow.StatusStop, flow.ColorRed, "both stopped", false},
		{"", flow.StatusActive, flow.ColorRed, "source stopped", false},
		{flow.StatusActive, "BROKEN", flow.ColorRed, "target stopped", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.source)+"->"+string(tt.target), func(t *testing.T) {
			t.Parallel()

			style := EdgeStyleFor(tt.source, tt.target)
			require.Equal(t, tt.color, style.Color)
			require.Equal(t, tt.label, style.Label)
			require.Equal(t, tt.animated, style.Animated)
			require.Positive(t, style.StrokeWidth)
		})
	}
}

// TestDeriveEdges_Total asserts every edge receives a style and non-equipment ends get the neutral one.
func TestDeriveEdges_Total(t *testing.T) {
	t.Parallel()

	view := flow.NewView(pumpFlow())
	nodes, _ := reconcileNodes(view.Nodes, diff(newStateCache(),
		pumpSnapshot(flow.StatusActive, flow.StatusStop, 80, flow.SpecIn)))

	edges, changed := deriveEdges(nodes, view.Edges)

	require.Equal(t, 3, changed)

	for _, e := range edges {
		require.NotEqual(t, flow.EdgeStyle{}, e.Style, e.ID)
	}

	require.Equal(t, flow.ColorRed, edges[0].Style.Color)
	require.Equal(t, "target stopped", edges[0].Style.Label)
	require.Equal(t, NeutralEdgeStyle, edges[1].Style)
	require.Equal(t, NeutralEdgeStyle, edges[2].Style)

	// Restyling with the same statuses keeps every pointer.
	again, changed := deriveEdges(nodes, edges)
	require.Zero(t, changed)

	for i := range edges {
		require.Same(t, edges[i], again[i])
	}

	// The input is never modified.
	require.Equal(t, flow.EdgeStyle{}, view.Edges[0].Style)
}
