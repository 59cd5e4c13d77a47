package monitor

import (
	"slices"

	"github.com/oshokin/flow-monitor/internal/domain/flow"
)

// reconcileNodes recomputes the derived fields of every equipment and
// instrument node from delta. A node is replaced by an updated copy only when
// its derived fields differ by value; untouched nodes keep their pointer and,
// when nothing differs at all, nodes itself is returned.
func reconcileNodes(nodes []*flow.Node, delta *Delta) ([]*flow.Node, []string) {
	var (
		result  = nodes
		copied  bool
		changed []string
		byCode  map[string]flow.MeasurementSnapshot
	)

	for i, node := range nodes {
		var (
			status flow.EquipmentStatus
			bound  []flow.BoundMeasurement
		)

		switch node.Kind {
		case flow.KindEquipment:
			status, bound = deriveEquipment(node, delta)
		case flow.KindInstrument:
			if byCode == nil {
				byCode = latestByCode(delta.Measurements)
			}

			status, bound = node.Status, deriveInstrument(node, byCode)
		default:
			continue
		}

		if node.SameDerived(status, bound) {
			continue
		}

		if !copied {
			result = slices.Clone(nodes)
			copied = true
		}

		updated := node.Clone()
		updated.Status = status
		updated.Bound = bound
		result[i] = updated

		changed = append(changed, node.ID)
	}

	return result, changed
}

// deriveEquipment binds the node to its equipment status and to the watched
// measurements of the same equipment. An empty watch-list binds nothing.
func deriveEquipment(node *flow.Node, delta *Delta) (flow.EquipmentStatus, []flow.BoundMeasurement) {
	var status flow.EquipmentStatus
	if eq, ok := delta.Equipment[node.EquipmentCode]; ok {
		status = eq.Status
	}

	var bound []flow.BoundMeasurement

	for _, code := range watchSet(node.WatchList) {
		m, ok := delta.Measurements[flow.MeasurementKey(node.EquipmentCode, code)]
		if !ok {
			continue
		}

		bound = append(bound, boundFrom(&m))
	}

	return status, bound
}

// deriveInstrument binds any measurement in the system by code alone and
// computes the trend against the value the node showed before.
func deriveInstrument(node *flow.Node, byCode map[string]flow.MeasurementSnapshot) []flow.BoundMeasurement {
	previous := make(map[string]float64, len(node.Bound))
	for _, b := range node.Bound {
		previous[b.Code] = b.Value
	}

	var bound []flow.BoundMeasurement

	for _, code := range watchSet(node.WatchList) {
		m, ok := byCode[code]
		if !ok {
			continue
		}

		b := boundFrom(&m)
		b.Trend = flow.TrendStable

		if old, seen := previous[code]; seen {
			switch {
			case m.Value > old:
				b.Trend = flow.TrendUp
			case m.Value < old:
				b.Trend = flow.TrendDown
			}
		}

		bound = append(bound, b)
	}

	return bound
}

// latestByCode indexes measurements by measurement code alone, keeping the
// latest row when several equipments report the same code. Ties go to the
// smaller key so the choice does not depend on map order.
func latestByCode(measurements map[string]flow.MeasurementSnapshot) map[string]flow.MeasurementSnapshot {
	byCode := make(map[string]flow.MeasurementSnapshot, len(measurements))

	for key, m := range measurements {
		current, ok := byCode[m.MeasurementCode]
		if ok {
			if m.Timestamp.Before(current.Timestamp) {
				continue
			}

			if m.Timestamp.Equal(current.Timestamp) && key > current.Key() {
				continue
			}
		}

		byCode[m.MeasurementCode] = m
	}

	return byCode
}

// watchSet drops duplicate codes while keeping the operator's order.
func watchSet(codes []string) []string {
	if len(codes) < 2 {
		return codes
	}

	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))

	for _, code := range codes {
		if _, dup := seen[code]; dup {
			continue
		}

		seen[code] = struct{}{}
		out = append(out, code)
	}

	return out
}

func boundFrom(m *flow.MeasurementSnapshot) flow.BoundMeasurement {
	return flow.BoundMeasurement{
		Code:      m.MeasurementCode,
		Desc:      m.MeasurementDesc,
		Value:     m.Value,
		SpecState: m.SpecStatus.State(),
		USL:       m.UpperSpecLimit,
		LSL:       m.LowerSpecLimit,
		Unit:      m.Unit,
	}
}
