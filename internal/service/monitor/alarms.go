package monitor

import (
	"slices"
	"sort"

	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/domain/flow"
)

// correlate returns one alarm per watched measurement that entered a spec
// violation since the previous cycle. Only equipment nodes watch for alarms:
// a measurement is monitored when its equipment is bound to an equipment node
// that lists its code. A key absent from prev counts as a transition, so a
// violation already present on the first cycle after a flow load alarms once.
func correlate(nodes []*flow.Node, delta *Delta, prev *stateCache, newID func() string) []*alarm.Event {
	byEquipment := make(map[string][]*flow.Node)

	for _, n := range nodes {
		if n.Kind == flow.KindEquipment && n.EquipmentCode != "" {
			byEquipment[n.EquipmentCode] = append(byEquipment[n.EquipmentCode], n)
		}
	}

	if len(byEquipment) == 0 {
		return nil
	}

	var keys []string

	for key, m := range delta.Measurements {
		if !m.SpecStatus.IsViolation() {
			continue
		}

		if slices.ContainsFunc(byEquipment[m.EquipmentCode], func(n *flow.Node) bool {
			return n.Watches(m.MeasurementCode)
		}) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	var events []*alarm.Event

	for _, key := range keys {
		m := delta.Measurements[key]

		specType, limit, ok := violation(&m)
		if !ok {
			continue
		}

		if old, seen := prev.measurements[key]; seen && old.SpecStatus == m.SpecStatus {
			continue
		}

		events = append(events, &alarm.Event{
			ID:              newID(),
			EquipmentCode:   m.EquipmentCode,
			EquipmentName:   delta.Equipment[m.EquipmentCode].EquipmentName,
			MeasurementCode: m.MeasurementCode,
			MeasurementDesc: m.MeasurementDesc,
			Value:           m.Value,
			SpecType:        specType,
			SpecLimit:       limit,
			USL:             m.UpperSpecLimit,
			LSL:             m.LowerSpecLimit,
			Unit:            m.Unit,
			Timestamp:       m.Timestamp,
		})
	}

	return events
}

// violation reports the crossed limit of an out-of-spec measurement.
// A violation without its relevant limit is not alarm-eligible.
func violation(m *flow.MeasurementSnapshot) (alarm.SpecType, float64, bool) {
	switch {
	case m.SpecStatus == flow.SpecAbove && m.UpperSpecLimit != nil:
		return alarm.SpecTypeAbove, *m.UpperSpecLimit, true
	case m.SpecStatus == flow.SpecBelow && m.LowerSpecLimit != nil:
		return alarm.SpecTypeBelow, *m.LowerSpecLimit, true
	default:
		return "", 0, false
	}
}
