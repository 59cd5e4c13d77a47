package monitor

import (
	"time"

	"github.com/oshokin/flow-monitor/internal/domain/flow"
)

// stateCache holds the authoritative values of the previous applied cycle.
// It is never mutated; a changed cycle replaces it as a whole.
type stateCache struct {
	equipment    map[string]flow.EquipmentSnapshot
	measurements map[string]flow.MeasurementSnapshot
}

func newStateCache() *stateCache {
	return &stateCache{
		equipment:    make(map[string]flow.EquipmentSnapshot),
		measurements: make(map[string]flow.MeasurementSnapshot),
	}
}

// Delta is the result of comparing a fresh snapshot with the previous cycle.
type Delta struct {
	StatusChanged      bool
	MeasurementChanged bool

	// Equipment is the fresh snapshot keyed by equipment code.
	Equipment map[string]flow.EquipmentSnapshot
	// Measurements is the fresh snapshot keyed by "equipment::measurement",
	// holding only the latest row per key.
	Measurements map[string]flow.MeasurementSnapshot

	// ChangedEquipment and ChangedMeasurements are the keys that are new or differ.
	ChangedEquipment    map[string]struct{}
	ChangedMeasurements map[string]struct{}
}

// Changed reports whether anything downstream has to be recomputed.
func (d *Delta) Changed() bool {
	return d.StatusChanged || d.MeasurementChanged
}

// next returns the cache that replaces the previous one once this delta is applied.
func (d *Delta) next() *stateCache {
	return &stateCache{
		equipment:    d.Equipment,
		measurements: d.Measurements,
	}
}

// latestMeasurements keys rows by "equipment::measurement" and keeps the row
// with the latest timestamp. Rows without a full key are skipped.
func latestMeasurements(rows []flow.MeasurementSnapshot) map[string]flow.MeasurementSnapshot {
	latest := make(map[string]flow.MeasurementSnapshot, len(rows))

	for _, row := range rows {
		if !row.Valid() {
			continue
		}

		key := row.Key()
		if current, ok := latest[key]; ok && row.Timestamp.Before(current.Timestamp) {
			continue
		}

		latest[key] = row
	}

	return latest
}

// diff compares snap against prev. prev is only read.
func diff(prev *stateCache, snap *flow.Snapshot) *Delta {
	delta := &Delta{
		Equipment:           make(map[string]flow.EquipmentSnapshot, len(snap.Equipment)),
		Measurements:        latestMeasurements(snap.Measurements),
		ChangedEquipment:    make(map[string]struct{}),
		ChangedMeasurements: make(map[string]struct{}),
	}

	for _, row := range snap.Equipment {
		if !row.Valid() {
			continue
		}

		delta.Equipment[row.EquipmentCode] = row
	}

	for code, row := range delta.Equipment {
		old, ok := prev.equipment[code]
		if ok && old.Status == row.Status && sameTime(old.LastRunTime, row.LastRunTime) {
			continue
		}

		delta.ChangedEquipment[code] = struct{}{}
		delta.StatusChanged = true
	}

	for key, row := range delta.Measurements {
		old, ok := prev.measurements[key]
		if ok && old.Value == row.Value && old.SpecStatus == row.SpecStatus {
			continue
		}

		delta.ChangedMeasurements[key] = struct{}{}
		delta.MeasurementChanged = true
	}

	return delta
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Equal(*b)
}
