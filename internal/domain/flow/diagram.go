package flow

import (
	"slices"
	"time"
)

// NodeKind is the type of a diagram node.
type NodeKind string

const (
	// KindEquipment is bound to one equipment code and shows its status.
	KindEquipment NodeKind = "equipment"
	// KindInstrument displays any measurement in the system.
	KindInstrument NodeKind = "instrument"
	// KindGroup is a visual container.
	KindGroup NodeKind = "group"
	// KindText is a free-form annotation.
	KindText NodeKind = "text"
)

// Trend is the direction of an instrument value since the previous cycle.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// BoundMeasurement is a measurement displayed on a node.
type BoundMeasurement struct {
	Code      string    `json:"code"`
	Desc      string    `json:"desc,omitempty"`
	Value     float64   `json:"value"`
	SpecState SpecState `json:"spec_state"`
	USL       *float64  `json:"usl,omitempty"`
	LSL       *float64  `json:"lsl,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	// Trend is set on instrument nodes only.
	Trend Trend `json:"trend,omitempty"`
}

// Equal compares two bound measurements by value, following the limit pointers.
func (b *BoundMeasurement) Equal(other *BoundMeasurement) bool {
	return b.Code == other.Code &&
		b.Desc == other.Desc &&
		b.Value == other.Value &&
		b.SpecState == other.SpecState &&
		equalLimit(b.USL, other.USL) &&
		equalLimit(b.LSL, other.LSL) &&
		b.Unit == other.Unit &&
		b.Trend == other.Trend
}

func equalLimit(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

// Node is a diagram node. The engine owns only Status and Bound.
type Node struct {
	ID            string   `json:"id"`
	Kind          NodeKind `json:"kind"`
	Label         string   `json:"label,omitempty"`
	EquipmentCode string   `json:"equipment_code,omitempty"`
	// WatchList is the ordered set of measurement codes the operator chose to display.
	WatchList []string `json:"watch_list,omitempty"`

	Status EquipmentStatus    `json:"status,omitempty"`
	Bound  []BoundMeasurement `json:"bound,omitempty"`
}

// Watches reports whether code is on the node's watch-list.
func (n *Node) Watches(code string) bool {
	return slices.Contains(n.WatchList, code)
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}

	cloned := *n
	cloned.WatchList = slices.Clone(n.WatchList)
	cloned.Bound = slices.Clone(n.Bound)

	return &cloned
}

// SameDerived reports whether the node already shows status and bound.
func (n *Node) SameDerived(status EquipmentStatus, bound []BoundMeasurement) bool {
	if n.Status != status || len(n.Bound) != len(bound) {
		return false
	}

	for i := range bound {
		if !n.Bound[i].Equal(&bound[i]) {
			return false
		}
	}

	return true
}

// Color is a semantic edge color; renderers map it to their palette.
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
	ColorMuted  Color = "muted"
)

// EdgeStyle is the derived presentation of a connection.
type EdgeStyle struct {
	Color       Color   `json:"color,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`
	// DashPattern is empty for a solid line.
	DashPattern string `json:"dash_pattern,omitempty"`
	Animated    bool   `json:"animated,omitempty"`
	Label       string `json:"label,omitempty"`
}

// Edge is a connection between two nodes.
type Edge struct {
	ID     string    `json:"id"`
	Source string    `json:"source"`
	Target string    `json:"target"`
	Style  EdgeStyle `json:"style"`
}

// Clone returns a copy of the edge.
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}

	cloned := *e

	return &cloned
}

// Flow is a diagram definition as saved by the editor.
type Flow struct {
	ID   string
	Name string
	// DataSourceID scopes backend reads. Empty triggers fallback resolution.
	DataSourceID string
	Nodes        []Node
	Edges        []Edge
}

// View is the derived state of the selected flow handed to renderers.
// Nodes and edges that did not change keep their pointers across views.
type View struct {
	FlowID    string    `json:"flow_id"`
	FlowName  string    `json:"flow_name,omitempty"`
	Sequence  uint64    `json:"sequence"`
	UpdatedAt time.Time `json:"updated_at"`
	Nodes     []*Node   `json:"nodes"`
	Edges     []*Edge   `json:"edges"`
}

// NewView builds the initial view of a flow with empty derived fields.
func NewView(f *Flow) *View {
	view := &View{
		FlowID:   f.ID,
		FlowName: f.Name,
		Nodes:    make([]*Node, 0, len(f.Nodes)),
		Edges:    make([]*Edge, 0, len(f.Edges)),
	}

	for i := range f.Nodes {
		node := f.Nodes[i].Clone()
		node.Status = ""
		node.Bound = nil
		view.Nodes = append(view.Nodes, node)
	}

	for i := range f.Edges {
		edge := f.Edges[i].Clone()
		edge.Style = EdgeStyle{}
		view.Edges = append(view.Edges, edge)
	}

	return view
}

// Node returns the node with the given id or nil.
func (v *View) Node(id string) *Node {
	for _, n := range v.Nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// Edge returns the edge with the given id or nil.
func (v *View) Edge(id string) *Edge {
	for _, e := range v.Edges {
		if e.ID == id {
			return e
		}
	}

	return nil
}

// NodeIDs lists node ids in diagram order.
func (v *View) NodeIDs() []string {
	ids := make([]string, 0, len(v.Nodes))
	for _, n := range v.Nodes {
		ids = append(ids, n.ID)
	}

	return ids
}
