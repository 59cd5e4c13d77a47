package alarm

import "time"

// SpecType tells which limit was crossed.
type SpecType string

const (
	// SpecTypeAbove is raised against the upper spec limit.
	SpecTypeAbove SpecType = "ABOVE_SPEC"
	// SpecTypeBelow is raised against the lower spec limit.
	SpecTypeBelow SpecType = "BELOW_SPEC"
)

// Event is a write-once alarm notification.
type Event struct {
	// ID is fresh for every emission.
	ID              string   `json:"id"`
	EquipmentCode   string   `json:"equipment_code"`
	EquipmentName   string   `json:"equipment_name,omitempty"`
	MeasurementCode string   `json:"measurement_code"`
	MeasurementDesc string   `json:"measurement_desc,omitempty"`
	Value           float64  `json:"value"`
	SpecType        SpecType `json:"spec_type"`
	// SpecLimit is the limit that was crossed (USL or LSL).
	SpecLimit float64  `json:"spec_limit"`
	USL       *float64 `json:"usl,omitempty"`
	LSL       *float64 `json:"lsl,omitempty"`
	Unit      string   `json:"unit,omitempty"`
	// Timestamp is the measurement time, not the emission time.
	Timestamp time.Time `json:"timestamp"`
}

// Clone returns a copy of the event with its own limit pointers.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}

	cloned := *e
	cloned.USL = cloneFloat(e.USL)
	cloned.LSL = cloneFloat(e.LSL)

	return &cloned
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}

	c := *v

	return &c
}
