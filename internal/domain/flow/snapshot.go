package flow

import "time"

// EquipmentStatus is the operating status reported for a piece of equipment.
type EquipmentStatus string

const (
	// StatusActive means the equipment is running.
	StatusActive EquipmentStatus = "ACTIVE"
	// StatusPause means the equipment is paused.
	StatusPause EquipmentStatus = "PAUSE"
	// StatusStop means the equipment is stopped.
	StatusStop EquipmentStatus = "STOP"
)

// Normalize maps unknown or missing statuses to StatusStop.
func (s EquipmentStatus) Normalize() EquipmentStatus {
	switch s {
	case StatusActive, StatusPause, StatusStop:
		return s
	default:
		return StatusStop
	}
}

// SpecStatus is the numeric classification of a measurement against its limits.
type SpecStatus int

const (
	// SpecIn is a value inside its limits.
	SpecIn SpecStatus = 0
	// SpecBelow is a value under the lower spec limit.
	SpecBelow SpecStatus = 1
	// SpecAbove is a value over the upper spec limit.
	SpecAbove SpecStatus = 2
	// SpecNone means no limits are configured.
	SpecNone SpecStatus = 9
)

// SpecState is the human-readable form of SpecStatus.
type SpecState string

const (
	SpecStateIn    SpecState = "IN_SPEC"
	SpecStateAbove SpecState = "ABOVE_SPEC"
	SpecStateBelow SpecState = "BELOW_SPEC"
	SpecStateNone  SpecState = "NO_SPEC"
)

// ParseSpecStatus converts a wire code into a SpecStatus.
// Unknown codes are treated as SpecNone, which never alarms.
func ParseSpecStatus(code int) SpecStatus {
	switch s := SpecStatus(code); s {
	case SpecIn, SpecBelow, SpecAbove, SpecNone:
		return s
	default:
		return SpecNone
	}
}

// State returns the readable enum for the status.
func (s SpecStatus) State() SpecState {
	switch s {
	case SpecIn:
		return SpecStateIn
	case SpecAbove:
		return SpecStateAbove
	case SpecBelow:
		return SpecStateBelow
	default:
		return SpecStateNone
	}
}

// IsViolation reports whether the status is outside the configured limits.
func (s SpecStatus) IsViolation() bool {
	return s == SpecAbove || s == SpecBelow
}

// EquipmentSnapshot is one equipment status row of a poll cycle.
type EquipmentSnapshot struct {
	EquipmentCode string
	EquipmentType string
	EquipmentName string
	Status        EquipmentStatus
	// LastRunTime is nil when the backend reports no run yet.
	LastRunTime *time.Time
}

// Valid reports whether the row carries its key.
func (e *EquipmentSnapshot) Valid() bool {
	return e.EquipmentCode != ""
}

// MeasurementSnapshot is one measurement row of a poll cycle.
// Several rows may share a key; the one with the latest Timestamp wins.
type MeasurementSnapshot struct {
	EquipmentCode   string
	MeasurementCode string
	MeasurementDesc string
	Value           float64
	Timestamp       time.Time
	SpecStatus      SpecStatus
	UpperSpecLimit  *float64
	LowerSpecLimit  *float64
	TargetValue     *float64
	Unit            string
}

// Valid reports whether the row carries both parts of its key.
func (m *MeasurementSnapshot) Valid() bool {
	return m.EquipmentCode != "" && m.MeasurementCode != ""
}

// Key returns the "equipment::measurement" cache key of the row.
func (m *MeasurementSnapshot) Key() string {
	return MeasurementKey(m.EquipmentCode, m.MeasurementCode)
}

// MeasurementKey builds the cache key of a measurement.
func MeasurementKey(equipmentCode, measurementCode string) string {
	return equipmentCode + "::" + measurementCode
}

// Snapshot is the joint result of one fetch: both lists or nothing.
type Snapshot struct {
	Equipment    []EquipmentSnapshot
	Measurements []MeasurementSnapshot
}

// Float returns a pointer to v. It keeps optional limits readable in literals.
func Float(v float64) *float64 {
	return &v
}
